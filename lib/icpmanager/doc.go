// Package icpmanager owns the ICP UDP listener of the daemon.
//
// The Manager turns each configuration snapshot into a target state with
// Plan, which is pure, and then applies the resulting Transition: binding,
// rebinding or closing the socket and (re)creating the peer rate limiter.
// Overlapping SetConfig calls are serialized, so two reconfigurations never
// both bind a port or leave a half-closed socket behind.
//
// While running, one goroutine reads datagrams, answers queries through a
// QueryHandler and hands every other message to the registered
// ResponseListeners. A datagram that fails to decode or answer is logged
// and dropped; it never stops the listener.
package icpmanager
