package icp

import (
	"net"

	"github.com/go-i2p/logger"
)

// Datagram is a UDP payload together with its peer address: the source of
// a received datagram or the destination of one about to be sent.
type Datagram struct {
	Data []byte
	Addr *net.UDPAddr
}

// Decoder turns a received datagram into a Message.
type Decoder interface {
	Decode(d *Datagram) (Message, error)
}

// EagerDecoder copies every field out of the datagram.
type EagerDecoder struct{}

// LazyDecoder keeps a reference to the datagram buffer.
type LazyDecoder struct{}

// Decode implements Decoder.
func (EagerDecoder) Decode(d *Datagram) (Message, error) {
	if d == nil {
		return nil, protocolErrorf("nil datagram")
	}
	m, err := DecodeEager(d.Data)
	if err != nil {
		logDecodeFailure("EagerDecoder", d, err)
		return nil, err
	}
	annotate(m, d.Addr)
	return m, nil
}

// Decode implements Decoder.
func (LazyDecoder) Decode(d *Datagram) (Message, error) {
	if d == nil {
		return nil, protocolErrorf("nil datagram")
	}
	m, err := NewLazyMessage(d.Data)
	if err != nil {
		logDecodeFailure("LazyDecoder", d, err)
		return nil, err
	}
	annotate(m, d.Addr)
	return m, nil
}

// DecodeEager parses buf into an EagerMessage. buf is not retained.
func DecodeEager(buf []byte) (*EagerMessage, error) {
	f, err := scanFrame(buf)
	if err != nil {
		return nil, err
	}
	op := ReadOpcode(buf)
	fields := Fields{
		Opcode:        op,
		Version:       ReadVersion(buf),
		RequestNumber: ReadRequestNumber(buf),
		Options:       ReadOptions(buf),
		OptionData:    ReadOptionData(buf),
		Sender:        ReadSender(buf),
		URL:           string(buf[f.urlStart:f.urlEnd]),
	}
	if op == OpQuery {
		fields.Requester = ReadRequester(buf)
	}
	if op == OpHitObj {
		fields.Payload = buf[f.objStart : f.objStart+f.objLength]
	}
	return NewMessage(fields), nil
}

func annotate(m Message, addr *net.UDPAddr) {
	if addr == nil {
		return
	}
	m.SetUDPAddress(addr.IP)
	m.SetUDPPort(addr.Port)
}

func logDecodeFailure(at string, d *Datagram, err error) {
	log.WithError(err).WithFields(logger.Fields{
		"at":     at + ".Decode",
		"peer":   d.Addr.String(),
		"length": len(d.Data),
	}).Debug("failed to decode ICP datagram")
}
