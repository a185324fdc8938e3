package middleware

import (
	"log"

	"github.com/searchktools/micro-server/core/http"
	"github.com/searchktools/micro-server/core/router"
)

// HandlerFunc is the signature for middleware handlers, identical to a
// route handler. A middleware that writes a response short-circuits the
// rest of the chain.
type HandlerFunc = router.Handler

// Pipeline is an ordered middleware chain
type Pipeline struct {
	handlers []HandlerFunc
	length   int
}

// NewPipeline creates a new middleware pipeline
func NewPipeline() *Pipeline {
	return &Pipeline{
		handlers: make([]HandlerFunc, 0, 16),
	}
}

// Use adds a middleware to the pipeline
func (p *Pipeline) Use(handler HandlerFunc) *Pipeline {
	p.handlers = append(p.handlers, handler)
	p.length = len(p.handlers)
	return p
}

// Execute runs the middleware chain then the final handler. A middleware
// error propagates immediately; a middleware that already emitted a
// response ends the chain without running the final handler.
func (p *Pipeline) Execute(req *http.Request, res *http.Response, finalHandler HandlerFunc) error {
	// Fast path: no middlewares
	if p.length == 0 {
		return finalHandler(req, res)
	}

	for i := 0; i < p.length; i++ {
		if err := p.handlers[i](req, res); err != nil {
			return err
		}
		if res.Written() {
			return nil
		}
	}

	return finalHandler(req, res)
}

// Common middleware implementations

// Logger logs requests
func Logger() HandlerFunc {
	return func(req *http.Request, res *http.Response) error {
		log.Printf("[%s] %s", req.Method, req.Path)
		return nil
	}
}

// CORS adds CORS headers
func CORS() HandlerFunc {
	return func(req *http.Request, res *http.Response) error {
		res.SetHeader("Access-Control-Allow-Origin", "*")
		res.SetHeader("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		res.SetHeader("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if req.Method == "OPTIONS" {
			return res.Status(204).Send(map[string]any{})
		}
		return nil
	}
}
