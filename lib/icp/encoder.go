package icp

import (
	"encoding/binary"
	"net"
	"strings"

	"github.com/samber/oops"
)

// Encoder serializes messages into datagrams. It is stateless.
type Encoder struct{}

// Encode serializes m into a datagram addressed to addr:port.
func (Encoder) Encode(m Message, addr net.IP, port int) (*Datagram, error) {
	buf, err := Marshal(m)
	if err != nil {
		return nil, err
	}
	return &Datagram{Data: buf, Addr: &net.UDPAddr{IP: addr, Port: port}}, nil
}

// Marshal returns the wire bytes of m. Decoding them yields a message Equal
// to m.
func Marshal(m Message) ([]byte, error) {
	if isNilMessage(m) {
		return nil, oops.Wrapf(ErrNilMessage, "cannot encode")
	}
	if lazy, ok := m.(*LazyMessage); ok {
		return append([]byte{}, lazy.Bytes()...), nil
	}
	if err := checkEncodable(m); err != nil {
		return nil, err
	}

	op := m.Opcode()
	url := m.PayloadURL()
	object := m.PayloadObject()
	length := ComputeLength(op, len(url), len(object))

	buf := make([]byte, length)
	buf[offsetOpcode] = byte(op)
	buf[offsetVersion] = m.Version()
	binary.BigEndian.PutUint16(buf[offsetLength:], uint16(length))
	binary.BigEndian.PutUint32(buf[offsetRequestNumber:], m.RequestNumber())
	binary.BigEndian.PutUint32(buf[offsetOptions:], m.Options())
	binary.BigEndian.PutUint32(buf[offsetOptionData:], m.OptionData())
	copy(buf[offsetSender:], m.SenderAddress().To4())
	if op == OpQuery {
		copy(buf[offsetRequester:], m.RequesterAddress().To4())
	}
	pos := URLOffset(op)
	pos += copy(buf[pos:], url)
	buf[pos] = 0
	pos++
	if op == OpHitObj {
		binary.BigEndian.PutUint16(buf[pos:], uint16(len(object)))
		pos += ObjectLengthSize
		copy(buf[pos:], object)
	}
	return buf, nil
}

func checkEncodable(m Message) error {
	op := m.Opcode()
	if !op.Valid() {
		return protocolErrorf("cannot encode invalid opcode %d", byte(op))
	}
	if m.Version() != Version {
		return protocolErrorf("cannot encode version %d", m.Version())
	}
	if m.SenderAddress().To4() == nil {
		return protocolErrorf("sender address %v is not IPv4", m.SenderAddress())
	}
	if op == OpQuery && m.RequesterAddress().To4() == nil {
		return protocolErrorf("requester address %v is not IPv4", m.RequesterAddress())
	}
	if strings.IndexByte(m.PayloadURL(), 0) >= 0 {
		return protocolErrorf("URL contains a NUL byte")
	}
	if length := MessageLength(m); length > MaxLength {
		return protocolErrorf("message length %d exceeds %d", length, MaxLength)
	}
	return nil
}
