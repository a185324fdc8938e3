package middleware

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/searchktools/micro-server/core/http"
)

func newTestResponse(buf *bytes.Buffer) *http.Response {
	return http.AcquireResponse(buf, nil, 1000)
}

// TestExecuteOrder verifies middlewares run in registration order before
// the final handler
func TestExecuteOrder(t *testing.T) {
	var order []string
	record := func(name string) HandlerFunc {
		return func(req *http.Request, res *http.Response) error {
			order = append(order, name)
			return nil
		}
	}

	p := NewPipeline()
	p.Use(record("first")).Use(record("second"))

	var buf bytes.Buffer
	res := newTestResponse(&buf)
	defer http.ReleaseResponse(res)

	err := p.Execute(&http.Request{}, res, record("handler"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	want := []string{"first", "second", "handler"}
	if len(order) != 3 || order[0] != want[0] || order[1] != want[1] || order[2] != want[2] {
		t.Errorf("order = %v, want %v", order, want)
	}
}

// TestShortCircuit verifies a middleware that writes a response stops the
// chain
func TestShortCircuit(t *testing.T) {
	p := NewPipeline()
	p.Use(func(req *http.Request, res *http.Response) error {
		return res.Status(401).Send(map[string]string{"error": "unauthorized"})
	})

	handlerRan := false
	var buf bytes.Buffer
	res := newTestResponse(&buf)
	defer http.ReleaseResponse(res)

	err := p.Execute(&http.Request{}, res, func(req *http.Request, res *http.Response) error {
		handlerRan = true
		return nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if handlerRan {
		t.Error("final handler ran after middleware responded")
	}
	if !strings.HasPrefix(buf.String(), "HTTP/1.1 401") {
		t.Errorf("response = %q", buf.String())
	}
}

// TestMiddlewareError verifies an error propagates immediately
func TestMiddlewareError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline()
	p.Use(func(req *http.Request, res *http.Response) error { return boom })

	var buf bytes.Buffer
	res := newTestResponse(&buf)
	defer http.ReleaseResponse(res)

	err := p.Execute(&http.Request{}, res, func(req *http.Request, res *http.Response) error {
		t.Error("handler ran after middleware error")
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
}

// TestEmptyPipeline verifies the fast path straight to the handler
func TestEmptyPipeline(t *testing.T) {
	ran := false
	var buf bytes.Buffer
	res := newTestResponse(&buf)
	defer http.ReleaseResponse(res)

	NewPipeline().Execute(&http.Request{}, res, func(req *http.Request, res *http.Response) error {
		ran = true
		return nil
	})
	if !ran {
		t.Error("handler did not run")
	}
}

// TestCORSPreflight verifies OPTIONS requests are answered directly
func TestCORSPreflight(t *testing.T) {
	var buf bytes.Buffer
	res := newTestResponse(&buf)
	defer http.ReleaseResponse(res)

	err := CORS()(&http.Request{Method: "OPTIONS"}, res)
	if err != nil {
		t.Fatalf("CORS failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "HTTP/1.1 204") {
		t.Errorf("preflight response = %q", buf.String())
	}
	if !res.Written() {
		t.Error("preflight should have responded")
	}
}
