package respond

import (
	"strings"
	"sync"
	"unicode"
)

// KeyCache memoizes key rewrites for the life of the process. The transform
// is pure, so the cache never needs invalidation; Clear exists for tests and
// is always safe to call.
type KeyCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewKeyCache() *KeyCache {
	return &KeyCache{m: make(map[string]string)}
}

// Camel returns the camelCase form of key, computing it at most once.
func (c *KeyCache) Camel(key string) string {
	c.mu.RLock()
	v, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		return v
	}

	v = camelCase(key)

	c.mu.Lock()
	c.m[key] = v
	c.mu.Unlock()
	return v
}

func (c *KeyCache) Clear() {
	c.mu.Lock()
	c.m = make(map[string]string)
	c.mu.Unlock()
}

// camelCase rewrites underscore- or hyphen-separated keys to camelCase.
// A key without separators is returned unchanged, which makes the transform
// idempotent for keys that are already camelCase.
func camelCase(key string) string {
	if !strings.ContainsAny(key, "_-") {
		return key
	}

	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return key
	}

	var b strings.Builder
	b.Grow(len(key))
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// lowerFirst downcases the first rune. Used for Go struct field names, which
// arrive exported (UserName) and leave as JSON keys (userName).
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
