package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"

	"github.com/searchktools/micro-server/config"
	"github.com/searchktools/micro-server/core/codec"
	"github.com/searchktools/micro-server/core/http"
	"github.com/searchktools/micro-server/core/middleware"
	"github.com/searchktools/micro-server/core/pools"
	"github.com/searchktools/micro-server/core/router"
)

// HandlerFunc handles one dispatched request
type HandlerFunc = router.Handler

// Server is the request-serving runtime: it owns the accept loop, the
// shutdown flag, and wires the route registry, body buffer pool, and
// connection tracker together per incoming request.
type Server struct {
	cfg      *config.Config
	router   *router.Registry
	pipeline *middleware.Pipeline
	bodyPool *pools.BufferPool
	tracker  *connTracker

	lnMu         sync.Mutex
	ln           net.Listener
	stopped      bool
	ready        chan struct{}
	shuttingDown atomic.Bool
	stopOnce     sync.Once
	stopDone     chan struct{}
}

// NewServer creates a server runtime from cfg (nil selects defaults).
// Register all routes before Listen.
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	pools.ApplyGCConfig(pools.DefaultGCConfig())

	return &Server{
		cfg:      cfg,
		router:   router.New(cfg.RouteCacheSize),
		pipeline: middleware.NewPipeline(),
		bodyPool: pools.NewBufferPool(cfg.BufferSlots, cfg.BufferSize),
		tracker:  newConnTracker(),
		ready:    make(chan struct{}),
		stopDone: make(chan struct{}),
	}
}

// Use adds a middleware to the dispatch pipeline
func (s *Server) Use(handler middleware.HandlerFunc) {
	s.pipeline.Use(handler)
}

// Handle registers a handler for an exact method and path
func (s *Server) Handle(method, path string, handler HandlerFunc) {
	s.router.Register(method, path, handler)
}

// GET registers a GET route
func (s *Server) GET(path string, handler HandlerFunc) {
	s.Handle("GET", path, handler)
}

// POST registers a POST route
func (s *Server) POST(path string, handler HandlerFunc) {
	s.Handle("POST", path, handler)
}

// PUT registers a PUT route
func (s *Server) PUT(path string, handler HandlerFunc) {
	s.Handle("PUT", path, handler)
}

// DELETE registers a DELETE route
func (s *Server) DELETE(path string, handler HandlerFunc) {
	s.Handle("DELETE", path, handler)
}

// Listen binds the port with SO_REUSEPORT and serves until Stop completes.
// It returns the bind error on failure, nil after a clean shutdown.
func (s *Server) Listen(port int) error {
	lc := net.ListenConfig{Control: reusePortControl}
	tcpLn, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("bind port %d: %w", port, err)
	}

	var ln net.Listener = &trackedListener{
		Listener:  tcpLn,
		tracker:   s.tracker,
		keepAlive: s.cfg.KeepAliveTimeout,
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	// A Stop that raced ahead of the bind already consumed the shutdown
	// path; the listener must not outlive it
	s.lnMu.Lock()
	if s.stopped {
		s.lnMu.Unlock()
		ln.Close()
		return nil
	}
	s.ln = ln
	s.lnMu.Unlock()
	close(s.ready)

	log.Printf("🚀 Server listening on :%d [%s]", port, s.cfg.Env)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				// Stop closed the listener; wait for the drain to finish
				<-s.stopDone
				return nil
			}
			log.Printf("Accept error: %v", err)
			continue
		}

		go s.serveConn(conn)
	}
}

// Addr returns the bound listener address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.lnMu.Lock()
	ln := s.ln
	s.lnMu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Addr()
}

// serveConn runs one connection's request loop until the peer goes away,
// a request forces a close, or the keep-alive window expires.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	br := bufio.NewReaderSize(conn, 4096)
	keepAliveMS := int(s.cfg.KeepAliveTimeout / time.Millisecond)

	for {
		if s.cfg.KeepAliveTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.KeepAliveTimeout))
		}

		req, err := http.ParseRequest(br, s.bodyPool)
		if err != nil {
			s.handleParseError(conn, req, err, keepAliveMS)
			return
		}

		res := http.AcquireResponse(conn, codec.Negotiate(req.Accept), keepAliveMS)
		closeAfter := s.dispatch(req, res)

		// Connection tokens are case-insensitive on the wire
		wantClose := closeAfter || req.Proto == "HTTP/1.0" || strings.EqualFold(req.Connection, "close")
		http.ReleaseResponse(res)
		http.ReleaseRequest(req)

		if wantClose {
			return
		}
	}
}

// handleParseError maps a parse failure to its wire behavior. Every path
// here ends with the connection closed.
func (s *Server) handleParseError(conn net.Conn, req *http.Request, err error, keepAliveMS int) {
	if req != nil {
		defer http.ReleaseRequest(req)
	}

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		// Peer closed or keep-alive window expired
	case errors.Is(err, http.ErrBodyTooLarge):
		// No partial-body tolerance: terminate without a response
	case errors.Is(err, pools.ErrPoolExhausted),
		errors.Is(err, http.ErrInvalidRequest):
		res := http.AcquireResponse(conn, nil, keepAliveMS)
		res.Text(500, BodyInternal)
		http.ReleaseResponse(res)
	default:
		// Transport-level read error
	}
}

// dispatch answers one normalized request. The returned flag forces the
// connection closed after the response.
func (s *Server) dispatch(req *http.Request, res *http.Response) (closeAfter bool) {
	// Shutdown flag first: bypass routing entirely once draining
	if s.shuttingDown.Load() {
		res.Text(503, BodyShuttingDown)
		return true
	}

	handler, ok := s.router.Resolve(req.Method, req.RawURL)
	if !ok {
		res.Text(404, BodyNotFound)
		return false
	}

	if err := s.invoke(req, res, handler); err != nil {
		if !res.Written() {
			res.Text(500, BodyInternal)
		}
		return true
	}

	// A handler that returns without sending still owes the peer a
	// framed response to keep the connection usable
	if !res.Written() {
		res.Send(map[string]any{})
	}
	return false
}

// invoke runs the middleware pipeline and handler, containing panics to
// this request.
func (s *Server) invoke(req *http.Request, res *http.Response, handler HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in handler %s %s: %v", req.Method, req.Path, r)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.pipeline.Execute(req, res, handler)
}

// Stop drains the server: new requests are answered 503, the listener
// closes, and tracked connections are half-closed and awaited up to the
// configured drain timeout, after which stragglers are forcibly closed.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.shuttingDown.Store(true)
		log.Printf("Server shutting down: draining %d connections", s.tracker.count())

		s.lnMu.Lock()
		s.stopped = true
		ln := s.ln
		s.lnMu.Unlock()
		if ln != nil {
			ln.Close()
		}

		err = s.tracker.drain(ctx, s.cfg.DrainTimeout)

		s.shuttingDown.Store(false)
		close(s.stopDone)
		log.Printf("Server stopped")
	})
	return err
}

// Stats returns runtime counters
func (s *Server) Stats() ServerStats {
	return ServerStats{
		ActiveConnections: s.tracker.count(),
		RouteCacheEntries: s.router.CacheLen(),
		BodyPool:          s.bodyPool.Stats(),
	}
}

// ServerStats contains runtime statistics
type ServerStats struct {
	ActiveConnections int
	RouteCacheEntries int
	BodyPool          pools.BufferPoolStats
}
