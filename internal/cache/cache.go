package cache

import (
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// negativeEntry marks a key whose lookup definitively found nothing. It is
// stored in place of a value so that repeat lookups short-circuit without a
// network call, exactly like a positive hit.
type negativeEntry struct{}

// Cache is a keyed response cache with per-entry TTL and explicit negative
// caching. It is safe for concurrent use; writes on the same key are
// last-writer-wins.
type Cache struct {
	store      *gocache.Cache
	defaultTTL time.Duration
}

// SubtitleTTL is used for downloaded subtitle payloads, which are immutable
// once published and therefore worth keeping much longer than metadata.
const SubtitleTTL = 24 * time.Hour

func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Cache{
		store:      gocache.New(defaultTTL, 10*time.Minute),
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached value for key. found=true with value=nil means a
// cached negative result and must be honored by the caller as a definitive
// "nothing there".
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	if _, negative := v.(negativeEntry); negative {
		return nil, true
	}
	return v, true
}

// Set stores value under key. ttl <= 0 uses the cache default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.store.Set(key, value, ttl)
}

// SetNegative records that a lookup found nothing.
func (c *Cache) SetNegative(key string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.store.Set(key, negativeEntry{}, ttl)
}

// DefaultTTL reports the TTL applied when a caller passes none.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// Compact drops roughly a quarter of the entries. A dropped entry only costs
// one fresh upstream call, so there is no correctness concern in the choice
// of victims.
func (c *Cache) Compact() int {
	items := c.store.Items()
	target := len(items) / 4
	dropped := 0
	for k := range items {
		if dropped >= target {
			break
		}
		c.store.Delete(k)
		dropped++
	}
	return dropped
}

// Key builds a namespaced cache key from the prefix and its parts. Parts are
// case-folded so that queries which are case-insensitive upstream share an
// entry.
func Key(prefix string, parts ...string) string {
	b := strings.Builder{}
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte('_')
		b.WriteString(strings.ToLower(strings.TrimSpace(p)))
	}
	return b.String()
}

// KeySorted is Key with the multi-value part sorted first, so that an
// equivalent set of values (e.g. a language list) always maps to one entry.
func KeySorted(prefix string, multi []string, parts ...string) string {
	sorted := make([]string, len(multi))
	copy(sorted, multi)
	sort.Strings(sorted)
	all := append(parts, strings.Join(sorted, ","))
	return Key(prefix, all...)
}
