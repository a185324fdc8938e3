package router

import (
	"strings"

	"github.com/searchktools/micro-server/core/http"
)

// Handler handles one dispatched request. A non-nil error (or a panic) is
// caught at the runtime boundary and answered with a generic 500.
type Handler func(req *http.Request, res *http.Response) error

// DefaultCacheCapacity bounds the observed-URL cache. Every distinct query
// string creates its own cache entry for the same handler, so the bound
// matters for URL-shaped attack traffic.
const DefaultCacheCapacity = 4096

// Registry resolves a (method, path) pair to a handler with two-tier
// lookup: an LRU cache keyed by the literal URL observed on the wire, and
// the canonical exact-match table keyed by method and path.
//
// Registration is not synchronized; register all routes before serving.
type Registry struct {
	routes map[string]Handler
	cache  *urlCache
}

// New creates a registry whose observed-URL cache holds up to cacheCap
// entries (<= 0 selects DefaultCacheCapacity).
func New(cacheCap int) *Registry {
	if cacheCap <= 0 {
		cacheCap = DefaultCacheCapacity
	}
	return &Registry{
		routes: make(map[string]Handler, 64),
		cache:  newURLCache(cacheCap),
	}
}

// Register stores handler under method and path. The match is exact and
// case-sensitive; re-registering the same pair overwrites silently.
func (r *Registry) Register(method, path string, handler Handler) {
	r.routes[method+":"+path] = handler
}

// Resolve finds the handler for the URL observed on the wire. The cache
// key includes the query string verbatim; the canonical table is probed
// with the path portion only, and a canonical hit populates the cache
// under the full-URL key.
func (r *Registry) Resolve(method, rawURL string) (Handler, bool) {
	key := method + ":" + rawURL
	if h, ok := r.cache.get(key); ok {
		return h, true
	}

	path := rawURL
	if i := strings.IndexByte(rawURL, '?'); i != -1 {
		path = rawURL[:i]
	}

	h, ok := r.routes[method+":"+path]
	if !ok {
		return nil, false
	}

	r.cache.put(key, h)
	return h, true
}

// CacheLen returns the number of live observed-URL cache entries.
func (r *Registry) CacheLen() int {
	return r.cache.len()
}
