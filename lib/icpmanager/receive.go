package icpmanager

import (
	"errors"
	"net"

	"github.com/go-i2p/go-icp/lib/icp"
	"github.com/go-i2p/logger"
)

// serve reads datagrams from conn until it is closed.
func (m *Manager) serve(conn net.PacketConn) {
	buf := make([]byte, icp.MaxLength)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.WithField("at", "(Manager) serve").Debug("ICP socket closed, receive loop exiting")
				return
			}
			log.WithError(err).WithField("at", "(Manager) serve").Warn("ICP receive failed")
			continue
		}
		d := &icp.Datagram{Data: append([]byte{}, buf[:n]...), Addr: toUDPAddr(addr)}
		m.handleDatagram(conn, d)
	}
}

func toUDPAddr(addr net.Addr) *net.UDPAddr {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp
	}
	resolved, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		return &net.UDPAddr{}
	}
	return resolved
}

// handleDatagram processes one datagram. Failures are logged and the
// datagram is dropped.
func (m *Manager) handleDatagram(conn net.PacketConn, d *icp.Datagram) {
	m.rw.RLock()
	factory := m.factory
	limiter := m.limiter
	m.rw.RUnlock()
	if factory == nil {
		return
	}

	msg, err := factory.Decode(d)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "(Manager) handleDatagram",
			"peer":   d.Addr.String(),
			"reason": "undecodable datagram dropped",
		}).Warn("dropping ICP datagram")
		return
	}

	if !msg.IsQuery() {
		m.deliver(msg)
		return
	}

	var response icp.Message
	if limiter != nil && !limiter.Allow() {
		response, err = asMessage(factory.Builder().MakeMissNoFetch(msg))
	} else {
		response, err = m.answer(factory.Builder(), msg)
	}
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":             "(Manager) handleDatagram",
			"peer":           d.Addr.String(),
			"request_number": msg.RequestNumber(),
		}).Warn("dropping ICP query")
		return
	}

	out, err := m.encoder.Encode(response, d.Addr.IP, d.Addr.Port)
	if err != nil {
		log.WithError(err).WithField("at", "(Manager) handleDatagram").Warn("failed to encode ICP response")
		return
	}
	if _, err := conn.WriteTo(out.Data, out.Addr); err != nil {
		log.WithError(err).WithField("at", "(Manager) handleDatagram").Warn("failed to send ICP response")
		return
	}
	log.WithFields(logger.Fields{
		"at":             "(Manager) handleDatagram",
		"peer":           d.Addr.String(),
		"request_number": msg.RequestNumber(),
		"opcode":         response.Opcode().String(),
	}).Debug("answered ICP query")
}

// answer runs the query handler, falling back to ERR when it fails.
func (m *Manager) answer(b *icp.Builder, query icp.Message) (icp.Message, error) {
	response, err := m.handler.HandleQuery(b, query)
	if err == nil && response != nil {
		return response, nil
	}
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":             "(Manager) answer",
			"request_number": query.RequestNumber(),
		}).Debug("query handler failed, answering ERR")
	}
	return asMessage(b.MakeError(query))
}

func (m *Manager) deliver(msg icp.Message) {
	m.listenersMu.RLock()
	snapshot := make([]ResponseListener, len(m.listeners))
	copy(snapshot, m.listeners)
	m.listenersMu.RUnlock()

	for _, l := range snapshot {
		l(msg)
	}
}
