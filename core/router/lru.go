package router

import "sync"

// urlCache is a bounded LRU map from observed-URL keys to handlers.
// Most recently used entries are at the front of the list; inserting past
// capacity evicts the tail.
type urlCache struct {
	mu      sync.Mutex
	cap     int
	entries map[string]*cacheNode
	head    *cacheNode
	tail    *cacheNode
}

// cacheNode is a node in the LRU doubly-linked list.
type cacheNode struct {
	key     string
	handler Handler
	prev    *cacheNode
	next    *cacheNode
}

func newURLCache(capacity int) *urlCache {
	return &urlCache{
		cap:     capacity,
		entries: make(map[string]*cacheNode, capacity),
	}
}

func (c *urlCache) get(key string) (Handler, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(node)
	return node.handler, true
}

func (c *urlCache) put(key string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.entries[key]; ok {
		node.handler = handler
		c.moveToFront(node)
		return
	}

	node := &cacheNode{key: key, handler: handler}
	c.entries[key] = node
	c.pushFront(node)

	if len(c.entries) > c.cap {
		evicted := c.tail
		c.remove(evicted)
		delete(c.entries, evicted.key)
	}
}

func (c *urlCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// pushFront adds a node to the front of the list (most recently used).
func (c *urlCache) pushFront(node *cacheNode) {
	if c.head == nil {
		c.head = node
		c.tail = node
		return
	}
	node.next = c.head
	c.head.prev = node
	c.head = node
}

// remove unlinks a node from the list.
func (c *urlCache) remove(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}

// moveToFront moves an existing node to the front of the list.
func (c *urlCache) moveToFront(node *cacheNode) {
	if node == c.head {
		return
	}
	c.remove(node)
	c.pushFront(node)
}
