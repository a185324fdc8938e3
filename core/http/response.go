package http

import (
	"io"
	"sync"

	"github.com/searchktools/micro-server/core/codec"
)

// Response is a mutable response handle. Status and SetHeader return the
// same handle for chaining; Send serializes and emits exactly once.
type Response struct {
	w      io.Writer
	status int

	// Custom response headers (allocated only when needed)
	headers map[string]string

	// Pre-allocated response buffer
	buf []byte

	codec       codec.Codec
	keepAliveMS int
	written     bool
}

var responsePool = sync.Pool{
	New: func() any {
		return &Response{
			buf: make([]byte, 0, 4096),
		}
	},
}

// AcquireResponse returns a pooled response handle writing to w. The codec
// decides the success wire format; nil means JSON.
func AcquireResponse(w io.Writer, c codec.Codec, keepAliveMS int) *Response {
	r := responsePool.Get().(*Response)
	r.w = w
	r.status = 200
	r.codec = c
	if r.codec == nil {
		r.codec = codec.JSON()
	}
	r.keepAliveMS = keepAliveMS
	r.written = false
	return r
}

func ReleaseResponse(r *Response) {
	r.w = nil
	r.codec = nil
	if r.headers != nil {
		for k := range r.headers {
			delete(r.headers, k)
		}
	}
	r.buf = r.buf[:0]
	responsePool.Put(r)
}

// Status sets the pending status code
func (r *Response) Status(code int) *Response {
	r.status = code
	return r
}

// SetHeader sets a response header
func (r *Response) SetHeader(key, value string) *Response {
	if r.headers == nil {
		r.headers = make(map[string]string, 8)
	}
	r.headers[key] = value
	return r
}

// StatusCode returns the pending status code
func (r *Response) StatusCode() int {
	return r.status
}

// Written reports whether a response has already been emitted on this handle
func (r *Response) Written() bool {
	return r.written
}

// Send serializes body through the negotiated codec and emits the response.
// Payloads the negotiated codec cannot carry fall back to JSON.
func (r *Response) Send(body any) error {
	c := r.codec
	if pc, ok := c.(*codec.ProtobufCodec); ok && !pc.Encodable(body) {
		c = codec.JSON()
	}

	data, err := c.Encode(body)
	if err != nil {
		return err
	}

	r.buf = r.buf[:0]
	r.buf = appendStatusLine(r.buf, r.status)

	if _, ok := r.headers["Content-Type"]; !ok {
		r.buf = append(r.buf, "Content-Type: "...)
		r.buf = append(r.buf, c.ContentType()...)
		r.buf = append(r.buf, "\r\n"...)
	}
	for k, v := range r.headers {
		r.buf = append(r.buf, k...)
		r.buf = append(r.buf, ": "...)
		r.buf = append(r.buf, v...)
		r.buf = append(r.buf, "\r\n"...)
	}

	r.buf = append(r.buf, "Content-Length: "...)
	r.buf = appendInt(r.buf, len(data))
	r.buf = append(r.buf, "\r\nConnection: keep-alive\r\nKeep-Alive: timeout="...)
	r.buf = appendInt(r.buf, r.keepAliveMS)
	r.buf = append(r.buf, "\r\n\r\n"...)
	r.buf = append(r.buf, data...)

	r.written = true
	_, err = r.w.Write(r.buf)
	return err
}

// Text emits a plain text response with fixed framing. 5xx responses carry
// Connection: close because the runtime tears the connection down after
// them; everything else stays on the keep-alive cycle.
func (r *Response) Text(code int, body string) error {
	r.status = code
	r.buf = r.buf[:0]
	r.buf = appendStatusLine(r.buf, code)
	r.buf = append(r.buf, "Content-Type: text/plain\r\nContent-Length: "...)
	r.buf = appendInt(r.buf, len(body))
	if code >= 500 {
		r.buf = append(r.buf, "\r\nConnection: close\r\n\r\n"...)
	} else {
		r.buf = append(r.buf, "\r\nConnection: keep-alive\r\n\r\n"...)
	}
	r.buf = append(r.buf, body...)

	r.written = true
	_, err := r.w.Write(r.buf)
	return err
}

func appendStatusLine(b []byte, code int) []byte {
	b = append(b, "HTTP/1.1 "...)
	b = appendInt(b, code)
	b = append(b, ' ')
	b = append(b, statusText(code)...)
	b = append(b, "\r\n"...)
	return b
}

// appendInt appends the decimal representation of i
func appendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}

	if i < 0 {
		b = append(b, '-')
		i = -i
	}

	var digits [20]byte
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}

	for n > 0 {
		n--
		b = append(b, digits[n])
	}

	return b
}

// statusText returns the HTTP status text for the given code
func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}
