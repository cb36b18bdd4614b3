package textgen

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	post Post
	seq  uint64
	at   time.Time
}

// postCache keeps at most high entries; when exceeded it drops all but the
// newest low entries.
type postCache struct {
	mu   sync.Mutex
	m    map[string]cacheEntry
	seq  uint64
	high int
	low  int
	ttl  time.Duration
}

func newPostCache(high, low int, ttl time.Duration) *postCache {
	if high <= 0 {
		high = 100
	}
	if low <= 0 || low > high {
		low = high / 2
	}
	return &postCache{m: map[string]cacheEntry{}, high: high, low: low, ttl: ttl}
}

func cacheKey(kind Kind, p Params) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(kind))
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
	}
	return b.String()
}

func (c *postCache) get(key string, now time.Time) (Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return Post{}, false
	}
	if c.ttl > 0 && now.Sub(e.at) > c.ttl {
		delete(c.m, key)
		return Post{}, false
	}
	return e.post, true
}

func (c *postCache) put(key string, p Post, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.m[key] = cacheEntry{post: p, seq: c.seq, at: now}
	if len(c.m) <= c.high {
		return
	}
	entries := make([]struct {
		key string
		seq uint64
	}, 0, len(c.m))
	for k, e := range c.m {
		entries = append(entries, struct {
			key string
			seq uint64
		}{k, e.seq})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	for _, e := range entries[:len(entries)-c.low] {
		delete(c.m, e.key)
	}
}

func (c *postCache) clear() {
	c.mu.Lock()
	c.m = map[string]cacheEntry{}
	c.mu.Unlock()
}

func (c *postCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
