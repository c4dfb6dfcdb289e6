// Package tagcache is a TTL key/value cache with secondary tag and path
// indexes, so cached upstream responses can be dropped out-of-band by
// invalidation tag or by page path (the revalidation webhook's two verbs).
package tagcache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Store struct {
	c *gocache.Cache

	mu      sync.Mutex
	byTag   map[string]map[string]struct{} // tag -> keys
	byPath  map[string]map[string]struct{} // path -> keys
	keyTags map[string][]string            // key -> tags (for index pruning)
	keyPath map[string][]string            // key -> paths
}

// New creates a store. defaultTTL applies when Set is called with ttl <= 0.
func New(defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	s := &Store{
		c:       gocache.New(defaultTTL, 10*time.Minute),
		byTag:   make(map[string]map[string]struct{}),
		byPath:  make(map[string]map[string]struct{}),
		keyTags: make(map[string][]string),
		keyPath: make(map[string][]string),
	}
	// prune indexes when go-cache expires or deletes an entry
	s.c.OnEvicted(func(key string, _ any) { s.forget(key) })
	return s
}

func (s *Store) Get(key string) (any, bool) {
	return s.c.Get(key)
}

// Set stores v under key for ttl (the store default when ttl <= 0) and
// registers key under each tag for later invalidation.
func (s *Store) Set(key string, v any, ttl time.Duration, tags ...string) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	s.c.Set(key, v, ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		keys, ok := s.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.byTag[tag] = keys
		}
		keys[key] = struct{}{}
		s.keyTags[key] = appendOnce(s.keyTags[key], tag)
	}
}

// appendOnce keeps the reverse indexes duplicate-free: go-cache overwrites
// live keys without firing OnEvicted, so a re-Set must not grow the lists.
func appendOnce(list []string, v string) []string {
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}

// AttachPath records that key was used to build the page at path. A later
// InvalidatePath(path) drops exactly those keys.
func (s *Store) AttachPath(path string, keys ...string) {
	if path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.byPath[path]
	if !ok {
		set = make(map[string]struct{})
		s.byPath[path] = set
	}
	for _, key := range keys {
		set[key] = struct{}{}
		s.keyPath[key] = appendOnce(s.keyPath[key], path)
	}
}

// InvalidateTag removes every key registered under tag.
// Returns the number of keys dropped.
func (s *Store) InvalidateTag(tag string) int {
	s.mu.Lock()
	keys := make([]string, 0, len(s.byTag[tag]))
	for k := range s.byTag[tag] {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	// Delete triggers OnEvicted, which prunes the indexes
	for _, k := range keys {
		s.c.Delete(k)
	}
	return len(keys)
}

// InvalidatePath removes every key attached to path.
// Returns the number of keys dropped.
func (s *Store) InvalidatePath(path string) int {
	s.mu.Lock()
	keys := make([]string, 0, len(s.byPath[path]))
	for k := range s.byPath[path] {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	for _, k := range keys {
		s.c.Delete(k)
	}
	return len(keys)
}

// Flush drops everything, indexes included.
func (s *Store) Flush() {
	s.c.Flush()
	s.mu.Lock()
	s.byTag = make(map[string]map[string]struct{})
	s.byPath = make(map[string]map[string]struct{})
	s.keyTags = make(map[string][]string)
	s.keyPath = make(map[string][]string)
	s.mu.Unlock()
}

// ItemCount reports live entries (including not-yet-swept expired ones).
func (s *Store) ItemCount() int { return s.c.ItemCount() }

func (s *Store) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range s.keyTags[key] {
		if set, ok := s.byTag[tag]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(s.byTag, tag)
			}
		}
	}
	for _, path := range s.keyPath[key] {
		if set, ok := s.byPath[path]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(s.byPath, path)
			}
		}
	}
	delete(s.keyTags, key)
	delete(s.keyPath, key)
}
