package generation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/paperworksdev/scholargen/internal/provider"
)

// cacheEntry is a cached generation response with its expiry.
type cacheEntry struct {
	resp      *provider.Response
	expiresAt time.Time
}

func (e *cacheEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// responseCache is an in-memory LRU cache for completed generations.
// Only deterministic requests (temperature 0) are cached.
type responseCache struct {
	memory *lru.Cache[string, *cacheEntry]
	ttl    time.Duration
}

func newResponseCache(maxEntries, ttlSeconds int) (*responseCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	memory, err := lru.New[string, *cacheEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("generation: creating LRU: %w", err)
	}
	return &responseCache{
		memory: memory,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}, nil
}

func (c *responseCache) get(key string) (*provider.Response, bool) {
	entry, ok := c.memory.Get(key)
	if !ok {
		return nil, false
	}
	if entry.expired() {
		c.memory.Remove(key)
		return nil, false
	}
	return entry.resp, true
}

func (c *responseCache) set(key string, resp *provider.Response) {
	c.memory.Add(key, &cacheEntry{
		resp:      resp,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// cacheKey derives a deterministic key from everything that affects the
// generated output.
func cacheKey(prompt, systemPrompt, providerID, model, quality string, temperature, topP float64, maxTokens int) string {
	h := sha256.New()
	for _, part := range []string{
		prompt, systemPrompt, providerID, model, quality,
		strconv.FormatFloat(temperature, 'f', -1, 64),
		strconv.FormatFloat(topP, 'f', -1, 64),
		strconv.Itoa(maxTokens),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0}) // separator
	}
	return hex.EncodeToString(h.Sum(nil))
}
