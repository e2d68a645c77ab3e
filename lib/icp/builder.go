package icp

import (
	"net"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Builder derives protocol-correct responses from queries. Every response
// mirrors the query's request number, version and URL and carries the
// builder's own sender address. A Builder is safe for concurrent use.
type Builder struct {
	sender net.IP
}

// NewBuilder returns a Builder that stamps responses with sender, the
// address this cache advertises to its peers.
func NewBuilder(sender net.IP) *Builder {
	return &Builder{sender: normalizeAddress(sender)}
}

// Sender returns the address stamped on built messages.
func (b *Builder) Sender() net.IP {
	return append(net.IP{}, b.sender...)
}

// MakeDenied answers query with DENIED.
func (b *Builder) MakeDenied(query Message) (*EagerMessage, error) {
	return b.respond("MakeDenied", query, OpDenied, nil, false, 0)
}

// MakeError answers query with ERR.
func (b *Builder) MakeError(query Message) (*EagerMessage, error) {
	return b.respond("MakeError", query, OpErr, nil, false, 0)
}

// MakeHit answers query with HIT.
func (b *Builder) MakeHit(query Message) (*EagerMessage, error) {
	return b.respond("MakeHit", query, OpHit, nil, false, 0)
}

// MakeMissNoFetch answers query with MISS_NOFETCH.
func (b *Builder) MakeMissNoFetch(query Message) (*EagerMessage, error) {
	return b.respond("MakeMissNoFetch", query, OpMissNoFetch, nil, false, 0)
}

// The operations below need a Deriver and report ErrUnsupported otherwise.

// MakeHitSrcRtt answers query with HIT carrying srcRtt.
func (b *Builder) MakeHitSrcRtt(query Message, srcRtt uint16) (*EagerMessage, error) {
	return b.respondFull("MakeHitSrcRtt", query, OpHit, nil, true, srcRtt)
}

// MakeMiss answers query with MISS.
func (b *Builder) MakeMiss(query Message) (*EagerMessage, error) {
	return b.respondFull("MakeMiss", query, OpMiss, nil, false, 0)
}

// MakeMissSrcRtt answers query with MISS carrying srcRtt.
func (b *Builder) MakeMissSrcRtt(query Message, srcRtt uint16) (*EagerMessage, error) {
	return b.respondFull("MakeMissSrcRtt", query, OpMiss, nil, true, srcRtt)
}

// MakeMissNoFetchSrcRtt answers query with MISS_NOFETCH carrying srcRtt.
func (b *Builder) MakeMissNoFetchSrcRtt(query Message, srcRtt uint16) (*EagerMessage, error) {
	return b.respondFull("MakeMissNoFetchSrcRtt", query, OpMissNoFetch, nil, true, srcRtt)
}

// MakeHitObj answers query with HIT_OBJ carrying payload. The payload is
// attached whether or not the query set the HIT_OBJ request flag.
func (b *Builder) MakeHitObj(query Message, payload []byte) (*EagerMessage, error) {
	return b.respondFull("MakeHitObj", query, OpHitObj, nonNil(payload), false, 0)
}

// MakeHitObjSrcRtt answers query with HIT_OBJ carrying payload and srcRtt.
func (b *Builder) MakeHitObjSrcRtt(query Message, payload []byte, srcRtt uint16) (*EagerMessage, error) {
	return b.respondFull("MakeHitObjSrcRtt", query, OpHitObj, nonNil(payload), true, srcRtt)
}

func (b *Builder) respondFull(at string, query Message, op Opcode, payload []byte, withRtt bool, srcRtt uint16) (*EagerMessage, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}
	if _, ok := query.(Deriver); !ok {
		log.WithFields(logger.Fields{
			"at":     "(Builder) " + at,
			"opcode": op.String(),
			"reason": "message representation is not a Deriver",
		}).Debug("unsupported response derivation")
		return nil, oops.Wrapf(ErrUnsupported, "%s from %T", at, query)
	}
	return b.respond(at, query, op, payload, withRtt, srcRtt)
}

func (b *Builder) respond(at string, query Message, op Opcode, payload []byte, withRtt bool, srcRtt uint16) (*EagerMessage, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}
	var options, optionData uint32
	if withRtt {
		if !query.RequestsSrcRtt() {
			return nil, protocolErrorf("%s: query %d did not request a source RTT", at, query.RequestNumber())
		}
		options = FlagSrcRtt
		optionData = uint32(srcRtt)
	}
	if length := ComputeLength(op, len(query.PayloadURL()), len(payload)); length > MaxLength {
		return nil, protocolErrorf("%s: response length %d exceeds %d", at, length, MaxLength)
	}

	response := NewMessage(Fields{
		Opcode:        op,
		Version:       query.Version(),
		RequestNumber: query.RequestNumber(),
		Options:       options,
		OptionData:    optionData,
		Sender:        b.sender,
		URL:           query.PayloadURL(),
		Payload:       payload,
	})
	log.WithFields(logger.Fields{
		"at":             "(Builder) " + at,
		"opcode":         op.String(),
		"request_number": query.RequestNumber(),
	}).Debug("built ICP response")
	return response, nil
}

// checkQuery enforces the preconditions shared by every builder operation.
func checkQuery(query Message) error {
	if isNilMessage(query) {
		return oops.Wrapf(ErrNilMessage, "query")
	}
	if !query.Opcode().Valid() {
		return protocolErrorf("query has invalid opcode %d", byte(query.Opcode()))
	}
	if query.Version() != Version {
		return protocolErrorf("query has unsupported version %d", query.Version())
	}
	if !query.IsQuery() {
		return protocolErrorf("cannot respond to %s", query.Opcode())
	}
	return nil
}

func nonNil(payload []byte) []byte {
	if payload == nil {
		return []byte{}
	}
	return payload
}
