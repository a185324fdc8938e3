package http

import (
	"bufio"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/searchktools/micro-server/core/pools"
)

func reader(raw string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(raw))
}

func testPool() *pools.BufferPool {
	return pools.NewBufferPool(4, 64)
}

// TestParseQueryString tests the query-string scanner
func TestParseQueryString(t *testing.T) {
	tests := []struct {
		qs   string
		want map[string]string
	}{
		{"a=1&b=2", map[string]string{"a": "1", "b": "2"}},
		{"a=1&a=2", map[string]string{"a": "2"}},
		{"a&b=", map[string]string{"a": "", "b": ""}},
		{"&a=1", map[string]string{"a": "1"}},
		{"a=1&&b=2", map[string]string{"a": "1", "b": "2"}},
		{"a%20b=c%20d", map[string]string{"a b": "c d"}},
		{"bad%zz=1&ok=2", map[string]string{"ok": "2"}},
		{"k=bad%2", map[string]string{}},
		{"", map[string]string{}},
		{"=", map[string]string{}},
	}

	for _, tt := range tests {
		got := parseQueryString(tt.qs, nil)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseQueryString(%q) = %v, want %v", tt.qs, got, tt.want)
		}
	}
}

// TestParseRequestBasic tests request line, URL split, and header parsing
func TestParseRequestBasic(t *testing.T) {
	raw := "GET /api/search?q=hello&page=2 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: test\r\n" +
		"X-Custom: abc\r\n" +
		"\r\n"

	req, err := ParseRequest(reader(raw), testPool())
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	defer ReleaseRequest(req)

	if req.Method != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.Path != "/api/search" {
		t.Errorf("Path = %q, want /api/search", req.Path)
	}
	if req.RawURL != "/api/search?q=hello&page=2" {
		t.Errorf("RawURL = %q", req.RawURL)
	}
	if req.Proto != "HTTP/1.1" {
		t.Errorf("Proto = %q, want HTTP/1.1", req.Proto)
	}
	if req.Query["q"] != "hello" || req.Query["page"] != "2" {
		t.Errorf("Query = %v", req.Query)
	}
	if req.Host != "example.com" {
		t.Errorf("Host = %q", req.Host)
	}
	if req.Header("X-Custom") != "abc" {
		t.Errorf("X-Custom = %q", req.Header("X-Custom"))
	}
}

// TestParseRequestNoQuery verifies that a URL without '?' skips query work
func TestParseRequestNoQuery(t *testing.T) {
	req, err := ParseRequest(reader("GET /plain HTTP/1.1\r\n\r\n"), testPool())
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	defer ReleaseRequest(req)

	if req.Path != "/plain" || req.RawURL != "/plain" {
		t.Errorf("Path = %q, RawURL = %q", req.Path, req.RawURL)
	}
	if len(req.Query) != 0 {
		t.Errorf("Query = %v, want empty", req.Query)
	}
}

// TestParseRequestInvalid tests malformed request lines
func TestParseRequestInvalid(t *testing.T) {
	for _, raw := range []string{"GARBAGE\r\n\r\n", "GET /only-one-space\r\n\r\n"} {
		_, err := ParseRequest(reader(raw), testPool())
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("ParseRequest(%q) error = %v, want ErrInvalidRequest", raw, err)
		}
	}
}

// TestBodyJSON tests JSON body decoding into the normalized request
func TestBodyJSON(t *testing.T) {
	body := `{"name":"alice","n":3}`
	raw := "POST /users HTTP/1.1\r\n" +
		"Content-Length: " + itoa(len(body)) + "\r\n" +
		"\r\n" + body

	req, err := ParseRequest(reader(raw), testPool())
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	defer ReleaseRequest(req)

	m, ok := req.Body.(map[string]any)
	if !ok {
		t.Fatalf("Body type = %T, want map", req.Body)
	}
	if m["name"] != "alice" {
		t.Errorf("Body[name] = %v", m["name"])
	}
}

// TestBodySkippedForGETAndHEAD verifies body parsing never runs for
// methods with no conventional body
func TestBodySkippedForGETAndHEAD(t *testing.T) {
	for _, method := range []string{"GET", "HEAD"} {
		raw := method + " / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
		req, err := ParseRequest(reader(raw), testPool())
		if err != nil {
			t.Fatalf("%s: ParseRequest failed: %v", method, err)
		}
		if m, ok := req.Body.(map[string]any); !ok || len(m) != 0 {
			t.Errorf("%s: Body = %v, want empty object", method, req.Body)
		}
		ReleaseRequest(req)
	}
}

// TestBodyMalformedJSON verifies a parse failure yields the empty object
func TestBodyMalformedJSON(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Length: 8\r\n\r\nnot-json"
	req, err := ParseRequest(reader(raw), testPool())
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	defer ReleaseRequest(req)

	if m, ok := req.Body.(map[string]any); !ok || len(m) != 0 {
		t.Errorf("Body = %v, want empty object", req.Body)
	}
}

// TestBodyTruncated verifies a transport error mid-body yields the empty
// object instead of propagating
func TestBodyTruncated(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Length: 20\r\n\r\n{\"short\""
	req, err := ParseRequest(reader(raw), testPool())
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	defer ReleaseRequest(req)

	if m, ok := req.Body.(map[string]any); !ok || len(m) != 0 {
		t.Errorf("Body = %v, want empty object", req.Body)
	}
}

// TestBodySizeBoundary tests the buffer-capacity boundary: exactly the
// pool's capacity parses, one byte beyond fails the connection
func TestBodySizeBoundary(t *testing.T) {
	pool := testPool() // 64-byte buffers

	exact := `{"pad":"` + strings.Repeat("x", 64-10) + `"}`
	if len(exact) != 64 {
		t.Fatalf("test body length = %d, want 64", len(exact))
	}

	raw := "POST / HTTP/1.1\r\nContent-Length: 64\r\n\r\n" + exact
	req, err := ParseRequest(reader(raw), pool)
	if err != nil {
		t.Fatalf("exact-capacity body failed: %v", err)
	}
	if m, ok := req.Body.(map[string]any); !ok || m["pad"] == nil {
		t.Errorf("Body = %v, want decoded object", req.Body)
	}
	ReleaseRequest(req)

	raw = "POST / HTTP/1.1\r\nContent-Length: 65\r\n\r\n" + exact + "y"
	_, err = ParseRequest(reader(raw), pool)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("oversized body error = %v, want ErrBodyTooLarge", err)
	}
}

// TestBodyPoolExhausted verifies exhaustion surfaces instead of aliasing
func TestBodyPoolExhausted(t *testing.T) {
	pool := pools.NewBufferPool(1, 64)
	held, err := pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer held.Release()

	raw := "POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\n{}"
	_, err = ParseRequest(reader(raw), pool)
	if !errors.Is(err, pools.ErrPoolExhausted) {
		t.Errorf("error = %v, want ErrPoolExhausted", err)
	}
}

// TestBufferReleasedAfterParse verifies the pooled buffer returns to the
// pool whether or not the body decoded
func TestBufferReleasedAfterParse(t *testing.T) {
	pool := pools.NewBufferPool(1, 64)

	for i := 0; i < 3; i++ {
		raw := "POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\n{}"
		req, err := ParseRequest(reader(raw), pool)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		ReleaseRequest(req)
	}

	if free := pool.Stats().Free; free != 1 {
		t.Errorf("free slots = %d, want 1", free)
	}
}

func itoa(n int) string {
	return string(appendInt(nil, n))
}
