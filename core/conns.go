package core

import (
	"context"
	"net"
	"sync"
	"time"
)

// connTracker owns connection-lifetime bookkeeping. Every accepted
// connection is in the set from accept until its close fires; shutdown
// draining waits on the set becoming empty.
type connTracker struct {
	mu    sync.RWMutex
	conns map[net.Conn]struct{}
}

func newConnTracker() *connTracker {
	return &connTracker{
		conns: make(map[net.Conn]struct{}, 1024),
	}
}

func (t *connTracker) add(conn net.Conn) {
	t.mu.Lock()
	t.conns[conn] = struct{}{}
	t.mu.Unlock()
}

func (t *connTracker) remove(conn net.Conn) {
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()
}

func (t *connTracker) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

func (t *connTracker) snapshot() []net.Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	conns := make([]net.Conn, 0, len(t.conns))
	for c := range t.conns {
		conns = append(conns, c)
	}
	return conns
}

// drain half-closes every tracked connection and waits for the set to
// empty. Connections still open when ctx expires or the timeout elapses
// are forcibly closed.
func (t *connTracker) drain(ctx context.Context, timeout time.Duration) error {
	for _, conn := range t.snapshot() {
		if hc, ok := conn.(interface{ CloseWrite() error }); ok {
			hc.CloseWrite()
		}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for t.count() > 0 {
		select {
		case <-tick.C:
		case <-deadline.C:
			t.forceClose()
			return nil
		case <-ctx.Done():
			t.forceClose()
			return ctx.Err()
		}
	}
	return nil
}

func (t *connTracker) forceClose() {
	for _, conn := range t.snapshot() {
		conn.Close()
	}
}

// trackedListener tunes and registers every accepted TCP connection before
// any outer listener wrapper (connection limiting) can hide the concrete
// *net.TCPConn. Tuning disables small-packet coalescing and enables
// keep-alive with the configured period.
type trackedListener struct {
	net.Listener
	tracker   *connTracker
	keepAlive time.Duration
}

func (l *trackedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
		tcp.SetKeepAlive(true)
		if l.keepAlive > 0 {
			tcp.SetKeepAlivePeriod(l.keepAlive)
		}
		conn = &trackedConn{TCPConn: tcp, tracker: l.tracker}
	}

	l.tracker.add(conn)
	return conn, nil
}

// trackedConn deregisters itself on close. The embedded *net.TCPConn keeps
// CloseWrite reachable for the drain's graceful half-close.
type trackedConn struct {
	*net.TCPConn
	tracker *connTracker
	once    sync.Once
}

func (c *trackedConn) Close() error {
	c.once.Do(func() {
		c.tracker.remove(c)
	})
	return c.TCPConn.Close()
}
