package icp

import (
	"encoding/binary"
	"net"

	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Factory decodes received datagrams with the configured strategy and
// constructs outgoing queries stamped with this cache's own address.
type Factory struct {
	decoder Decoder
	builder *Builder
}

// NewFactory returns a Factory advertising sender. When lazy is true,
// Decode returns *LazyMessage values, otherwise *EagerMessage values.
func NewFactory(sender net.IP, lazy bool) *Factory {
	var decoder Decoder = EagerDecoder{}
	if lazy {
		decoder = LazyDecoder{}
	}
	return &Factory{decoder: decoder, builder: NewBuilder(sender)}
}

// Decode turns d into a Message.
func (f *Factory) Decode(d *Datagram) (Message, error) {
	return f.decoder.Decode(d)
}

// Lazy reports whether Decode uses the lazy strategy.
func (f *Factory) Lazy() bool {
	_, ok := f.decoder.(LazyDecoder)
	return ok
}

// Builder returns the response builder sharing this factory's address.
func (f *Factory) Builder() *Builder {
	return f.builder
}

// MakeQuery builds a QUERY for url on behalf of requester with a fresh
// random request number. wantsSrcRtt and wantsHitObj set the matching
// option flags.
func (f *Factory) MakeQuery(requester net.IP, url string, wantsSrcRtt, wantsHitObj bool) (*EagerMessage, error) {
	requestNumber, err := newRequestNumber()
	if err != nil {
		return nil, err
	}
	return f.MakeQueryWithNumber(requestNumber, requester, url, wantsSrcRtt, wantsHitObj)
}

// MakeQueryWithNumber is MakeQuery with a caller-chosen request number.
func (f *Factory) MakeQueryWithNumber(requestNumber uint32, requester net.IP, url string, wantsSrcRtt, wantsHitObj bool) (*EagerMessage, error) {
	var options uint32
	if wantsSrcRtt {
		options |= FlagSrcRtt
	}
	if wantsHitObj {
		options |= FlagHitObj
	}
	query := NewMessage(Fields{
		Opcode:        OpQuery,
		Version:       Version,
		RequestNumber: requestNumber,
		Options:       options,
		Sender:        f.builder.sender,
		Requester:     requester,
		URL:           url,
	})
	if err := checkEncodable(query); err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		"at":             "(Factory) MakeQuery",
		"request_number": requestNumber,
		"url":            url,
		"src_rtt":        wantsSrcRtt,
		"hit_obj":        wantsHitObj,
	}).Debug("built ICP query")
	return query, nil
}

func newRequestNumber() (uint32, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return 0, oops.Errorf("icp: crypto/rand failed: %w", err)
	}
	return binary.BigEndian.Uint32(b), nil
}
