package icpmanager

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeConn is a PacketConn that blocks in ReadFrom until closed.
type fakeConn struct {
	port   int
	closed chan struct{}
	once   sync.Once
}

func (c *fakeConn) ReadFrom(b []byte) (int, net.Addr, error) {
	<-c.closed
	return 0, nil, net.ErrClosed
}

func (c *fakeConn) WriteTo(b []byte, addr net.Addr) (int, error) { return len(b), nil }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: c.port}
}

func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

// fakeNet hands out fakeConns and refuses to bind a port twice.
type fakeNet struct {
	mu    sync.Mutex
	binds []int
	open  map[int]*fakeConn
	fail  map[int]bool
}

func newFakeNet() *fakeNet {
	return &fakeNet{open: map[int]*fakeConn{}, fail: map[int]bool{}}
}

func (n *fakeNet) listen(port int) (net.PacketConn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[port] {
		return nil, fmt.Errorf("bind %d: permission denied", port)
	}
	if c, ok := n.open[port]; ok {
		select {
		case <-c.closed:
		default:
			return nil, fmt.Errorf("bind %d: address already in use", port)
		}
	}
	c := &fakeConn{port: port, closed: make(chan struct{})}
	n.open[port] = c
	n.binds = append(n.binds, port)
	return c, nil
}

func (n *fakeNet) bindCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.binds)
}

func (n *fakeNet) openPorts() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	var ports []int
	for port, c := range n.open {
		select {
		case <-c.closed:
		default:
			ports = append(ports, port)
		}
	}
	return ports
}

func freePort(t *testing.T, except ...int) int {
	t.Helper()
	for {
		port := probePort(t)
		if !containsPort(except, port) {
			return port
		}
	}
}

func containsPort(ports []int, port int) bool {
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}

func probePort(t *testing.T) int {
	t.Helper()
	probe, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := probe.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, probe.Close())
	return port
}
