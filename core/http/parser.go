package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/searchktools/micro-server/core/pools"
)

var (
	ErrInvalidRequest = errors.New("invalid HTTP request")
	ErrBodyTooLarge   = errors.New("request body exceeds buffer capacity")
)

// emptyObject is the body value for requests with no usable payload.
func emptyObject() map[string]any {
	return map[string]any{}
}

// ParseRequest reads one HTTP/1.1 request from the connection's buffered
// reader and produces a normalized Request. Body bytes are absorbed into a
// buffer leased from pool and never escape this function.
//
// A body larger than the pool's buffer capacity returns ErrBodyTooLarge and
// the caller must terminate the connection: the unread bytes would desync
// the keep-alive stream. Transport errors and malformed JSON during the
// body read are swallowed and the body resolves to the empty object.
func ParseRequest(br *bufio.Reader, pool *pools.BufferPool) (*Request, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}

	req := AcquireRequest()

	// Parse METHOD URL PROTO
	sp1 := strings.IndexByte(line, ' ')
	if sp1 == -1 {
		ReleaseRequest(req)
		return nil, ErrInvalidRequest
	}
	sp2 := strings.IndexByte(line[sp1+1:], ' ')
	if sp2 == -1 {
		ReleaseRequest(req)
		return nil, ErrInvalidRequest
	}
	sp2 += sp1 + 1

	req.Method = line[:sp1]
	req.RawURL = line[sp1+1 : sp2]
	req.Proto = line[sp2+1:]

	// URL splitting: no '?' means the whole URL is the path and no query
	// parsing happens at all
	if q := strings.IndexByte(req.RawURL, '?'); q != -1 {
		req.Path = req.RawURL[:q]
		req.Query = parseQueryString(req.RawURL[q+1:], req.Query)
	} else {
		req.Path = req.RawURL
	}

	// Parse headers
	for {
		line, err = readLine(br)
		if err != nil {
			ReleaseRequest(req)
			return nil, ErrInvalidRequest
		}
		if line == "" {
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon > 0 {
			key := strings.TrimSpace(line[:colon])
			value := strings.TrimSpace(line[colon+1:])
			req.SetHeader(key, value)
		}
	}

	if err := readBody(br, req, pool); err != nil {
		return req, err
	}

	return req, nil
}

// readBody accumulates the request body into a pooled buffer and decodes it
// as JSON. GET and HEAD skip body handling entirely.
func readBody(br *bufio.Reader, req *Request, pool *pools.BufferPool) error {
	req.Body = emptyObject()

	if req.Method == "GET" || req.Method == "HEAD" {
		return nil
	}

	n := 0
	if req.ContentLength != "" {
		v, err := strconv.Atoi(req.ContentLength)
		if err != nil || v < 0 {
			return nil
		}
		n = v
	}
	if n == 0 {
		return nil
	}

	if n > pool.Cap() {
		return ErrBodyTooLarge
	}

	buf, err := pool.Acquire()
	if err != nil {
		return err
	}
	defer buf.Release()

	if _, err := io.ReadFull(br, buf.B[:n]); err != nil {
		// Transport error mid-body: the body resolves to the empty
		// object and the next read on this connection will fail
		return nil
	}

	var v any
	if err := json.Unmarshal(buf.B[:n], &v); err != nil {
		return nil
	}
	req.Body = v

	return nil
}

// parseQueryString scans the query portion left to right. Keys and values
// are percent-decoded; a pair whose decoding fails is dropped. Duplicate
// keys keep the last occurrence.
func parseQueryString(qs string, query map[string]string) map[string]string {
	if query == nil {
		query = make(map[string]string)
	}

	i := 0
	for i < len(qs) {
		start := i
		for i < len(qs) && qs[i] != '=' && qs[i] != '&' {
			i++
		}
		key := qs[start:i]
		if key == "" {
			// Degenerate '&&' or leading '&': skip one character
			i++
			continue
		}

		var value string
		if i < len(qs) && qs[i] == '=' {
			i++
			vs := i
			for i < len(qs) && qs[i] != '&' {
				i++
			}
			value = qs[vs:i]
		}
		if i < len(qs) && qs[i] == '&' {
			i++
		}

		dk, kerr := url.PathUnescape(key)
		dv, verr := url.PathUnescape(value)
		if kerr != nil || verr != nil {
			continue
		}
		query[dk] = dv
	}

	return query
}

// readLine reads one CRLF-terminated line, tolerating bare LF.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
