package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurechain/procurechain/internal/monitoring"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)

	data, found := c.Get("missing")
	assert.False(t, found)
	assert.Nil(t, data)

	c.Set("key1", []byte("value1"))
	data, found = c.Get("key1")
	assert.True(t, found)
	assert.Equal(t, []byte("value1"), data)
	assert.Equal(t, 1, c.Size())
}

func TestCacheExpiration(t *testing.T) {
	c := NewCache(10 * time.Millisecond)

	c.Set("key1", []byte("value1"))
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get("key1")
	assert.False(t, found)
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("key1", []byte("a"))
	c.Set("key2", []byte("b"))

	c.Delete("key1")
	_, found := c.Get("key1")
	assert.False(t, found)
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCacheStats(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("key1", []byte("a"))

	stats := c.Stats()
	assert.Equal(t, 1, stats["total_items"])
	assert.Equal(t, 1, stats["active_items"])
	assert.Equal(t, 60.0, stats["ttl_seconds"])
}

func TestInvalidatePath(t *testing.T) {
	c := NewCache(time.Minute)
	path := "/gov/tenders/t-1/recommendations"

	c.Set(c.generateKey(path), []byte(`{"recommendations":[]}`))
	require.Equal(t, 1, c.Size())

	c.InvalidatePath(path)
	assert.Equal(t, 0, c.Size())
}

func TestMiddlewareCachesRecommendations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCache(time.Minute)
	metrics := monitoring.NewMetrics()

	hits := 0
	r := gin.New()
	r.GET("/gov/tenders/:id/recommendations", c.Middleware(metrics), func(ctx *gin.Context) {
		hits++
		ctx.JSON(http.StatusOK, gin.H{"recommendations": []string{"bid-1"}, "served": hits})
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/gov/tenders/t-1/recommendations", nil))
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, hits)

	// second request is served from cache, handler does not run again
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/gov/tenders/t-1/recommendations", nil))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, hits)
	assert.Equal(t, first.Body.String(), second.Body.String())

	// invalidation forces a recompute
	c.InvalidatePath("/gov/tenders/t-1/recommendations")
	third := httptest.NewRecorder()
	r.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/gov/tenders/t-1/recommendations", nil))
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, 2, hits)
}

func TestMiddlewareCachesPerTender(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCache(time.Minute)
	metrics := monitoring.NewMetrics()

	r := gin.New()
	r.GET("/gov/tenders/:id/recommendations", c.Middleware(metrics), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"tender": ctx.Param("id")})
	})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/gov/tenders/t-1/recommendations", nil))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/gov/tenders/t-2/recommendations", nil))

	assert.Contains(t, w1.Body.String(), "t-1")
	assert.Contains(t, w2.Body.String(), "t-2")
}

func TestMiddlewareSkipsOtherPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCache(time.Minute)
	metrics := monitoring.NewMetrics()

	r := gin.New()
	r.GET("/tenders", c.Middleware(metrics), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"tenders": []string{}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tenders", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, c.Size())
}
