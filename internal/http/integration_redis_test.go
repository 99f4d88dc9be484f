package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/ratelimit"
)

func TestIntegration_RedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := ratelimit.NewFixedWindowLimiter(ratelimit.NewRedisStore(rdb, ""), 3, time.Hour)
	router, up := newIntegrationStack(t, stackOptions{
		cache:   cache.NewRedisCache(rdb, ""),
		limiter: limiter,
	})
	path := "/api/unsplash?query=clouds"

	require.Equal(t, http.StatusOK, serve(router, "GET", path).Code)
	require.Equal(t, http.StatusOK, serve(router, "GET", path).Code)
	assert.Equal(t, 1, up.Imagery.Calls(), "second request served from redis")
	assert.NotEmpty(t, cacheKeys(mr))

	require.Equal(t, http.StatusOK, serve(router, "POST", "/api/cache/clear").Code)
	assert.Empty(t, cacheKeys(mr), "clear removes cached responses")

	w := serve(router, "GET", path)
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "fourth request in the window is denied")
	assert.Equal(t, 1, up.Imagery.Calls())
}

func cacheKeys(mr *miniredis.Miniredis) []string {
	var keys []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, cache.DefaultRedisKeyPrefix) {
			keys = append(keys, k)
		}
	}
	return keys
}
