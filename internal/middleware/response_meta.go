package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	requestStartKey = "request_started_at"
	cacheHitKey     = "cache_hit"
)

// ResponseMeta stamps the request start so handlers can report processing
// time in the envelope meta.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Next()
	}
}

// MarkCacheHit records whether the payload came from the dashboard cache.
func MarkCacheHit(c *gin.Context, hit bool) {
	c.Set(cacheHitKey, hit)
}

// Meta builds the envelope meta for the current request. It is nil when
// neither a start time nor a cache flag was recorded.
func Meta(c *gin.Context) map[string]interface{} {
	meta := make(map[string]interface{}, 2)
	if hit, ok := c.Get(cacheHitKey); ok {
		meta[cacheHitKey] = hit
	}
	if value, ok := c.Get(requestStartKey); ok {
		if start, ok := value.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
