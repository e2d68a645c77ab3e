// Package signals dispatches process signals to registered handlers:
// SIGHUP to reload handlers, SIGINT and SIGTERM to interrupt handlers.
package signals

import (
	"os"
	"os/signal"
	"sync"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// sigChan is buffered so a signal arriving before Handle runs is kept.
var sigChan = make(chan os.Signal, 1)

// Handler is called when a signal is received.
type Handler func()

// HandlerID identifies a registered handler for deregistration.
type HandlerID int

type registered struct {
	id HandlerID
	fn Handler
}

type handlerList struct {
	kind    string
	mu      sync.Mutex
	next    HandlerID
	entries []registered
}

var (
	reloaders    = &handlerList{kind: "reload"}
	interrupters = &handlerList{kind: "interrupt"}
	stopOnce     sync.Once
)

func (l *handlerList) add(f Handler) HandlerID {
	if f == nil {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.next
	l.next++
	l.entries = append(l.entries, registered{id: id, fn: f})
	return id
}

func (l *handlerList) remove(id HandlerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, h := range l.entries {
		if h.id == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *handlerList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// run calls every handler in registration order. A panicking handler is
// logged and the rest still run.
func (l *handlerList) run() {
	l.mu.Lock()
	snapshot := append([]registered(nil), l.entries...)
	l.mu.Unlock()

	for _, h := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logger.Fields{
						"at":      "signals.run",
						"kind":    l.kind,
						"handler": int(h.id),
					}).Errorf("panic in signal handler: %v", r)
				}
			}()
			h.fn()
		}()
	}
}

// RegisterReloadHandler registers f for SIGHUP. Nil handlers are ignored
// and return -1.
func RegisterReloadHandler(f Handler) HandlerID { return reloaders.add(f) }

// DeregisterReloadHandler removes a reload handler.
func DeregisterReloadHandler(id HandlerID) { reloaders.remove(id) }

// RegisterInterruptHandler registers f for SIGINT and SIGTERM. Nil handlers
// are ignored and return -1.
func RegisterInterruptHandler(f Handler) HandlerID { return interrupters.add(f) }

// DeregisterInterruptHandler removes an interrupt handler.
func DeregisterInterruptHandler(id HandlerID) { interrupters.remove(id) }

// Handle dispatches signals until StopHandle is called.
func Handle() {
	for sig := range sigChan {
		dispatch(sig)
	}
}

// StopHandle stops signal delivery and makes Handle return. Only the first
// call has an effect.
func StopHandle() {
	stopOnce.Do(func() {
		signal.Stop(sigChan)
		close(sigChan)
	})
}
