package icp

import "net"

// LazyMessage wraps a received datagram and extracts fields on demand, so
// addresses and HIT_OBJ payloads a caller never looks at are never copied.
//
// The framing is validated when the message is created. LazyMessage does
// not implement Deriver: the Builder can only derive DENIED, ERR, bare HIT
// and bare MISS_NOFETCH responses from it.
type LazyMessage struct {
	buf     []byte
	frame   frame
	udpAddr net.IP
	udpPort int
}

// NewLazyMessage validates buf and wraps it without copying. buf must not be
// modified while the message is in use.
func NewLazyMessage(buf []byte) (*LazyMessage, error) {
	f, err := scanFrame(buf)
	if err != nil {
		return nil, err
	}
	return &LazyMessage{buf: buf, frame: f}, nil
}

func (m *LazyMessage) Opcode() Opcode        { return ReadOpcode(m.buf) }
func (m *LazyMessage) Version() byte         { return ReadVersion(m.buf) }
func (m *LazyMessage) Length() int           { return ReadLength(m.buf) }
func (m *LazyMessage) RequestNumber() uint32 { return ReadRequestNumber(m.buf) }
func (m *LazyMessage) Options() uint32       { return ReadOptions(m.buf) }
func (m *LazyMessage) OptionData() uint32    { return ReadOptionData(m.buf) }
func (m *LazyMessage) SenderAddress() net.IP { return ReadSender(m.buf) }

func (m *LazyMessage) RequesterAddress() net.IP {
	if !m.IsQuery() {
		return nil
	}
	return ReadRequester(m.buf)
}

func (m *LazyMessage) PayloadURL() string {
	return string(m.buf[m.frame.urlStart:m.frame.urlEnd])
}

func (m *LazyMessage) PayloadObject() []byte {
	if m.Opcode() != OpHitObj {
		return nil
	}
	return append([]byte{}, m.buf[m.frame.objStart:m.frame.objStart+m.frame.objLength]...)
}

func (m *LazyMessage) PayloadObjectLength() int {
	if m.Opcode() != OpHitObj {
		return 0
	}
	return m.frame.objLength
}

func (m *LazyMessage) IsQuery() bool                { return isQuery(m) }
func (m *LazyMessage) IsResponse() bool             { return m.Opcode().IsResponse() }
func (m *LazyMessage) RequestsHitObj() bool         { return requestsHitObj(m) }
func (m *LazyMessage) RequestsSrcRtt() bool         { return requestsSrcRtt(m) }
func (m *LazyMessage) ContainsSrcRttResponse() bool { return containsSrcRttResponse(m) }
func (m *LazyMessage) SrcRttResponse() uint16       { return srcRttResponse(m) }

func (m *LazyMessage) UDPAddress() net.IP        { return m.udpAddr }
func (m *LazyMessage) UDPPort() int              { return m.udpPort }
func (m *LazyMessage) SetUDPAddress(addr net.IP) { m.udpAddr = addr }
func (m *LazyMessage) SetUDPPort(port int)       { m.udpPort = port }

// Bytes returns the datagram the message was decoded from.
func (m *LazyMessage) Bytes() []byte {
	return m.buf
}
