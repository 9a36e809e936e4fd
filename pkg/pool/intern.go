// Package pool holds shared allocation helpers. Interner deduplicates
// repeated strings so that a column holding a few distinct labels keeps
// one copy of each.
package pool

import (
	"sync"
	"sync/atomic"
)

// DefaultInternLimit bounds the distinct strings an Interner keeps.
const DefaultInternLimit = 1 << 16

// Interner returns a canonical copy of strings it has seen. Once limit
// distinct strings are held, new strings are returned unchanged.
type Interner struct {
	mu      sync.RWMutex
	strings map[string]string
	limit   int
	hits    int64
	misses  int64
}

// NewInterner creates an Interner holding at most limit strings. A limit of
// zero or less uses DefaultInternLimit.
func NewInterner(limit int) *Interner {
	if limit <= 0 {
		limit = DefaultInternLimit
	}
	return &Interner{strings: make(map[string]string, 256), limit: limit}
}

// Intern returns the canonical copy of s.
func (p *Interner) Intern(s string) string {
	p.mu.RLock()
	if interned, ok := p.strings[s]; ok {
		p.mu.RUnlock()
		atomic.AddInt64(&p.hits, 1)
		return interned
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if interned, ok := p.strings[s]; ok {
		atomic.AddInt64(&p.hits, 1)
		return interned
	}
	atomic.AddInt64(&p.misses, 1)
	if len(p.strings) >= p.limit {
		return s
	}
	p.strings[s] = s
	return s
}

// Len returns the number of interned strings.
func (p *Interner) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.strings)
}

// Stats returns the lookups answered from the pool and those that were not.
func (p *Interner) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&p.hits), atomic.LoadInt64(&p.misses)
}
