package icp

import (
	"bytes"
	"net"
)

// Message is one decoded or about-to-be-sent ICP message.
//
// RequesterAddress is nil unless the opcode is OpQuery. PayloadObject is nil
// and PayloadObjectLength is 0 unless the opcode is OpHitObj. The UDP
// address and port are a transport annotation and the only mutable part.
type Message interface {
	Opcode() Opcode
	Version() byte
	Length() int
	RequestNumber() uint32
	Options() uint32
	OptionData() uint32
	SenderAddress() net.IP
	RequesterAddress() net.IP
	PayloadURL() string
	PayloadObject() []byte
	PayloadObjectLength() int

	IsQuery() bool
	IsResponse() bool
	RequestsHitObj() bool
	RequestsSrcRtt() bool
	ContainsSrcRttResponse() bool
	// SrcRttResponse returns the RTT carried by a response, or 0 when
	// ContainsSrcRttResponse is false.
	SrcRttResponse() uint16

	UDPAddress() net.IP
	UDPPort() int
	SetUDPAddress(addr net.IP)
	SetUDPPort(port int)
}

// Deriver is a Message whose fields are fully materialized, so every
// response kind can be derived from it. *EagerMessage implements it and
// *LazyMessage deliberately does not.
type Deriver interface {
	Message
	Fields() Fields
}

// Fields is the plain field set of a message, used to construct one.
type Fields struct {
	Opcode        Opcode
	Version       byte
	RequestNumber uint32
	Options       uint32
	OptionData    uint32
	Sender        net.IP
	Requester     net.IP
	URL           string
	Payload       []byte
}

// EagerMessage holds a copy of every field.
type EagerMessage struct {
	fields  Fields
	udpAddr net.IP
	udpPort int
}

// NewMessage builds an EagerMessage from f. Fields that the opcode does not
// carry are dropped: the requester address outside QUERY and the payload
// outside HIT_OBJ. A missing sender, or requester on a QUERY, becomes
// 0.0.0.0. No other validation happens here; Encode rejects what cannot be
// put on the wire.
func NewMessage(f Fields) *EagerMessage {
	f.Sender = normalizeAddress(f.Sender)
	if f.Opcode == OpQuery {
		f.Requester = normalizeAddress(f.Requester)
	} else {
		f.Requester = nil
	}
	if f.Opcode == OpHitObj {
		f.Payload = append([]byte{}, f.Payload...)
	} else {
		f.Payload = nil
	}
	return &EagerMessage{fields: f}
}

func normalizeAddress(ip net.IP) net.IP {
	if ip == nil {
		return net.IPv4zero.To4()
	}
	if v4 := ip.To4(); v4 != nil {
		return append(net.IP{}, v4...)
	}
	return append(net.IP{}, ip...)
}

func (m *EagerMessage) Opcode() Opcode        { return m.fields.Opcode }
func (m *EagerMessage) Version() byte         { return m.fields.Version }
func (m *EagerMessage) RequestNumber() uint32 { return m.fields.RequestNumber }
func (m *EagerMessage) Options() uint32       { return m.fields.Options }
func (m *EagerMessage) OptionData() uint32    { return m.fields.OptionData }
func (m *EagerMessage) PayloadURL() string    { return m.fields.URL }

// Length returns the wire length, always recomputed from the fields.
func (m *EagerMessage) Length() int {
	return MessageLength(m)
}

func (m *EagerMessage) SenderAddress() net.IP {
	return append(net.IP{}, m.fields.Sender...)
}

func (m *EagerMessage) RequesterAddress() net.IP {
	if m.fields.Requester == nil {
		return nil
	}
	return append(net.IP{}, m.fields.Requester...)
}

func (m *EagerMessage) PayloadObject() []byte {
	if m.fields.Payload == nil {
		return nil
	}
	return append([]byte{}, m.fields.Payload...)
}

func (m *EagerMessage) PayloadObjectLength() int {
	return len(m.fields.Payload)
}

func (m *EagerMessage) IsQuery() bool                { return isQuery(m) }
func (m *EagerMessage) IsResponse() bool             { return m.fields.Opcode.IsResponse() }
func (m *EagerMessage) RequestsHitObj() bool         { return requestsHitObj(m) }
func (m *EagerMessage) RequestsSrcRtt() bool         { return requestsSrcRtt(m) }
func (m *EagerMessage) ContainsSrcRttResponse() bool { return containsSrcRttResponse(m) }
func (m *EagerMessage) SrcRttResponse() uint16       { return srcRttResponse(m) }

func (m *EagerMessage) UDPAddress() net.IP        { return m.udpAddr }
func (m *EagerMessage) UDPPort() int              { return m.udpPort }
func (m *EagerMessage) SetUDPAddress(addr net.IP) { m.udpAddr = addr }
func (m *EagerMessage) SetUDPPort(port int)       { m.udpPort = port }

// Fields returns a copy of the message fields.
func (m *EagerMessage) Fields() Fields {
	f := m.fields
	f.Sender = m.SenderAddress()
	f.Requester = m.RequesterAddress()
	f.Payload = m.PayloadObject()
	return f
}

// Role predicates shared by every representation.

func isQuery(m Message) bool {
	return m.Opcode() == OpQuery
}

func requestsHitObj(m Message) bool {
	return m.IsQuery() && m.Options()&FlagHitObj != 0
}

func requestsSrcRtt(m Message) bool {
	return m.IsQuery() && m.Options()&FlagSrcRtt != 0
}

func containsSrcRttResponse(m Message) bool {
	return m.IsResponse() && m.Options()&FlagSrcRtt != 0
}

func srcRttResponse(m Message) uint16 {
	if !m.ContainsSrcRttResponse() {
		return 0
	}
	return uint16(m.OptionData() & 0xffff)
}

// Materialize returns an eager copy of m, carrying its UDP annotation.
// A nil m yields nil.
func Materialize(m Message) *EagerMessage {
	if isNilMessage(m) {
		return nil
	}
	if e, ok := m.(*EagerMessage); ok {
		cp := NewMessage(e.Fields())
		cp.udpAddr, cp.udpPort = e.udpAddr, e.udpPort
		return cp
	}
	e := NewMessage(Fields{
		Opcode:        m.Opcode(),
		Version:       m.Version(),
		RequestNumber: m.RequestNumber(),
		Options:       m.Options(),
		OptionData:    m.OptionData(),
		Sender:        m.SenderAddress(),
		Requester:     m.RequesterAddress(),
		URL:           m.PayloadURL(),
		Payload:       m.PayloadObject(),
	})
	e.udpAddr, e.udpPort = m.UDPAddress(), m.UDPPort()
	return e
}

// Equal compares a and b field by field. The UDP annotation is ignored.
func Equal(a, b Message) bool {
	if isNilMessage(a) || isNilMessage(b) {
		return isNilMessage(a) && isNilMessage(b)
	}
	return a.Opcode() == b.Opcode() &&
		a.Version() == b.Version() &&
		a.Length() == b.Length() &&
		a.RequestNumber() == b.RequestNumber() &&
		a.Options() == b.Options() &&
		a.OptionData() == b.OptionData() &&
		a.SenderAddress().Equal(b.SenderAddress()) &&
		equalOptionalIP(a.RequesterAddress(), b.RequesterAddress()) &&
		a.PayloadURL() == b.PayloadURL() &&
		bytes.Equal(a.PayloadObject(), b.PayloadObject()) &&
		a.PayloadObjectLength() == b.PayloadObjectLength()
}

func equalOptionalIP(a, b net.IP) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func isNilMessage(m Message) bool {
	switch v := m.(type) {
	case nil:
		return true
	case *EagerMessage:
		return v == nil
	case *LazyMessage:
		return v == nil
	}
	return false
}
