package cache

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/procurechain/procurechain/internal/monitoring"
)

const sweepInterval = 5 * time.Minute

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// Cache is a TTL response cache for recommendation reads. Entries are
// keyed by request path so each tender caches independently, and the
// write paths (bid submission, award, rating) invalidate by path so a
// cached list never outlives the inputs it was computed from.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*entry
	ttl   time.Duration
}

func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		items: make(map[string]*entry),
		ttl:   ttl,
	}
	go c.sweep()
	return c
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		for key, e := range c.items {
			if e.expired() {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}

func (c *Cache) generateKey(input string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(input)))
}

// Get returns the cached bytes for key, treating expired entries as
// absent. Expired entries are left for the sweeper.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || e.expired() {
		return nil, false
	}
	return e.data, true
}

func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &entry{data: data, expiresAt: time.Now().Add(c.ttl)}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry)
}

func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats reports entry counts for the stats endpoint
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expired := 0
	for _, e := range c.items {
		if e.expired() {
			expired++
		}
	}

	return map[string]interface{}{
		"total_items":   len(c.items),
		"expired_items": expired,
		"active_items":  len(c.items) - expired,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// InvalidatePath drops the cached response for a request path. Bid
// submissions, awards, and ratings call this so stale recommendation
// lists never survive a change to their inputs.
func (c *Cache) InvalidatePath(path string) {
	c.Delete(c.generateKey(path))
}

// Middleware caches GET responses for recommendation lists. Attach it
// per-route after the auth middlewares: a cache hit short-circuits the
// chain, so it must never sit in front of an auth check.
func (c *Cache) Middleware(metrics *monitoring.Metrics) func(*gin.Context) {
	return func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if ctx.Request.Method != http.MethodGet || !strings.HasSuffix(path, "/recommendations") {
			ctx.Next()
			return
		}

		key := c.generateKey(path)
		if data, ok := c.Get(key); ok {
			metrics.IncrementCacheHit()
			ctx.Data(http.StatusOK, "application/json", data)
			ctx.Abort()
			return
		}
		metrics.IncrementCacheMiss()

		rec := &recordingWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = rec
		ctx.Next()

		// only successful evaluations are worth replaying
		if ctx.Writer.Status() == http.StatusOK {
			c.Set(key, rec.body.Bytes())
		}
	}
}

// recordingWriter tees the response body so it can be cached after the
// handler runs
type recordingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *recordingWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
