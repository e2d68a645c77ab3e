package icpmanager

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/go-i2p/go-icp/lib/config"
	"github.com/go-i2p/go-icp/lib/icp"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

var log = logger.GetGoI2PLogger()

// ErrNotRunning is returned by Send while no socket is bound.
var ErrNotRunning = errors.New("icp server is not running")

// ListenFunc binds a UDP socket on port.
type ListenFunc func(port int) (net.PacketConn, error)

// ListenUDP binds port on every IPv4 interface.
func ListenUDP(port int) (net.PacketConn, error) {
	return net.ListenPacket("udp4", fmt.Sprintf(":%d", port))
}

// Manager owns the ICP socket, its receive loop and the peer rate limiter.
type Manager struct {
	// mu serializes SetConfig and Stop: observe, plan and apply happen as
	// one step.
	mu sync.Mutex

	// rw guards the fields below, read by getters and the receive loop.
	rw      sync.RWMutex
	conn    net.PacketConn
	state   State
	limiter *rate.Limiter
	factory *icp.Factory
	cfg     *config.ICPConfig

	listen    ListenFunc
	handler   QueryHandler
	cache     *StaticCache
	ownsCache bool
	encoder   icp.Encoder

	listenersMu sync.RWMutex
	listeners   []ResponseListener
}

// Option configures a Manager.
type Option func(*Manager)

// WithListenFunc replaces how sockets are bound.
func WithListenFunc(f ListenFunc) Option {
	return func(m *Manager) { m.listen = f }
}

// WithQueryHandler replaces the default CacheResponder.
func WithQueryHandler(h QueryHandler) Option {
	return func(m *Manager) {
		m.handler = h
		m.ownsCache = false
	}
}

// WithCache answers queries from cache instead of the configured URL list.
func WithCache(cache Cache) Option {
	return func(m *Manager) {
		m.handler = NewCacheResponder(cache)
		m.ownsCache = false
	}
}

// NewManager returns a stopped Manager. Until SetConfig is called it
// answers from a StaticCache fed by the daemon.icp.cached_urls key.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		state:  Stopped,
		listen: ListenUDP,
		cache:  NewStaticCache(nil),
	}
	m.handler = NewCacheResponder(m.cache)
	m.ownsCache = true
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsIcpServerRunning reports whether a socket is bound.
func (m *Manager) IsIcpServerRunning() bool {
	m.rw.RLock()
	defer m.rw.RUnlock()
	return m.state.Running
}

// CurrentPort returns the bound port, or config.NoPort while stopped.
func (m *Manager) CurrentPort() int {
	m.rw.RLock()
	defer m.rw.RUnlock()
	return m.state.Port
}

// State returns the current listener state.
func (m *Manager) State() State {
	m.rw.RLock()
	defer m.rw.RUnlock()
	return m.state
}

// Limiter returns the peer rate limiter, or nil while stopped.
func (m *Manager) Limiter() *rate.Limiter {
	m.rw.RLock()
	defer m.rw.RUnlock()
	return m.limiter
}

// LocalAddr returns the bound socket address, or nil while stopped.
func (m *Manager) LocalAddr() net.Addr {
	m.rw.RLock()
	defer m.rw.RUnlock()
	if m.conn == nil {
		return nil
	}
	return m.conn.LocalAddr()
}

// OnResponse registers l for every non-QUERY message received.
func (m *Manager) OnResponse(l ResponseListener) {
	if l == nil {
		return
	}
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, l)
}

// SetConfig applies a new configuration snapshot. prev and changedKeys
// describe what changed; a call with a previous snapshot and no changed
// keys is ignored. A snapshot that resolves to stopped is always applied,
// whatever else it holds. A snapshot that would run is checked first and,
// when it cannot run, rejected with the current state left alone.
func (m *Manager) SetConfig(next, prev *config.ICPConfig, changedKeys []string) error {
	if prev != nil && len(changedKeys) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := Plan(m.State(), next)
	log.WithFields(logger.Fields{
		"at":           "(Manager) SetConfig",
		"from":         t.From.String(),
		"to":           t.To.String(),
		"action":       t.Action.String(),
		"changed_keys": changedKeys,
	}).Debug("applying ICP configuration")

	if !t.To.Running {
		m.rw.Lock()
		m.cfg = next
		m.rw.Unlock()
		return m.apply(t)
	}
	if err := config.ValidateForRun(next); err != nil {
		return oops.Wrapf(err, "icp: rejecting configuration")
	}
	m.refreshSettings(next)
	return m.apply(t)
}

// Stop closes the socket and discards the limiter. Stopping a stopped
// Manager does nothing. Stop does not wait for the receive loop, which
// exits once its pending read fails, so it may be called from a
// QueryHandler or ResponseListener.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.apply(Transition{From: m.State(), To: Stopped, Action: stopAction(m.State())}); err != nil {
		log.WithError(err).Warn("error stopping ICP server")
	}
}

// Close stops the Manager. It implements io.Closer.
func (m *Manager) Close() error {
	m.Stop()
	return nil
}

func stopAction(s State) Action {
	if s.Running {
		return ActionStop
	}
	return ActionNone
}

// refreshSettings updates everything that changes without a rebind: the
// advertised address, decoding strategy, cached URLs and limiter rates.
func (m *Manager) refreshSettings(cfg *config.ICPConfig) {
	factory := icp.NewFactory(net.ParseIP(cfg.Address), cfg.LazyDecode)

	m.rw.Lock()
	m.cfg = cfg
	m.factory = factory
	if m.limiter != nil {
		m.limiter.SetLimit(rate.Limit(cfg.RateLimit))
		m.limiter.SetBurst(cfg.RateBurst)
	}
	m.rw.Unlock()

	if m.ownsCache {
		m.cache.Replace(cfg.CachedURLs)
	}
}

// apply performs t. The caller holds mu.
func (m *Manager) apply(t Transition) error {
	switch t.Action {
	case ActionNone:
		return nil
	case ActionStop:
		m.closeSocket()
		log.WithFields(logger.Fields{
			"at":    "(Manager) apply",
			"phase": "shutdown",
			"port":  t.From.Port,
		}).Info("ICP server stopped")
		return nil
	case ActionRebind:
		m.closeSocket()
	}
	return m.bind(t.To.Port)
}

func (m *Manager) bind(port int) error {
	conn, err := m.listen(port)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "(Manager) bind",
			"phase":  "startup",
			"port":   port,
			"reason": "failed to bind ICP socket",
		}).Error("ICP server startup failed")
		return oops.Wrapf(err, "icp: binding port %d", port)
	}

	m.rw.Lock()
	m.conn = conn
	m.state = State{Running: true, Port: port}
	m.limiter = rate.NewLimiter(rate.Limit(m.cfg.RateLimit), m.cfg.RateBurst)
	m.rw.Unlock()

	go m.serve(conn)

	log.WithFields(logger.Fields{
		"at":    "(Manager) bind",
		"phase": "startup",
		"port":  port,
		"local": conn.LocalAddr().String(),
	}).Info("ICP server started")
	return nil
}

// closeSocket closes the socket. The caller holds mu, which the receive
// loop may be waiting on from a callback, so the loop is not joined here.
func (m *Manager) closeSocket() {
	m.rw.Lock()
	conn := m.conn
	m.conn = nil
	m.state = Stopped
	m.limiter = nil
	m.rw.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		log.WithError(err).Warn("error closing ICP socket")
	}
}

// Send encodes msg and sends it to addr:port over the bound socket.
func (m *Manager) Send(msg icp.Message, addr net.IP, port int) error {
	m.rw.RLock()
	conn := m.conn
	m.rw.RUnlock()
	if conn == nil {
		return ErrNotRunning
	}
	d, err := m.encoder.Encode(msg, addr, port)
	if err != nil {
		return err
	}
	if _, err := conn.WriteTo(d.Data, d.Addr); err != nil {
		return oops.Wrapf(err, "icp: sending to %s", d.Addr)
	}
	return nil
}
