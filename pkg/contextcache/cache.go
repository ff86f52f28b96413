// Package contextcache caches assembled past-conversation context per
// (conversation, user message) so repeated utterances skip re-assembly.
package contextcache

import (
	"hash/fnv"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCapacity = 100

type key struct {
	conversationID string
	fingerprint    uint64
}

// Cache is a bounded LRU keyed by conversation id and a full-width
// FNV-1a fingerprint of the user message. The full 64-bit hash keeps
// collision probability negligible. Safe for concurrent use.
type Cache struct {
	inner *lru.Cache[key, string]
}

func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New[key, string](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get returns the cached context for the conversation/message pair.
func (c *Cache) Get(conversationID, message string) (string, bool) {
	return c.inner.Get(newKey(conversationID, message))
}

// Put stores assembled context, evicting the least recently used entry
// when over capacity.
func (c *Cache) Put(conversationID, message, contextText string) {
	c.inner.Add(newKey(conversationID, message), contextText)
}

func (c *Cache) Len() int { return c.inner.Len() }

func newKey(conversationID, message string) key {
	h := fnv.New64a()
	_, _ = h.Write([]byte(message))
	return key{conversationID: conversationID, fingerprint: h.Sum64()}
}
