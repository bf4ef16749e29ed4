package middleware

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"carrental/internal/redis"
)

const cacheStatusHeader = "X-Cache"

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache returns middleware that serves GET responses from the car
// listing cache and stores successful ones. A nil store disables caching;
// cache errors fall through to the handler.
func ResponseCache(store redis.CacheStoreInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := requestKey(c.Request)

		cached, err := store.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "car cache lookup failed", "key", key, "error", err)
			c.Next()
			return
		}

		if cached != nil {
			c.Header(cacheStatusHeader, "HIT")
			c.Data(cached.StatusCode, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		// Wrap response writer to capture response.
		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w
		c.Header(cacheStatusHeader, "MISS")

		c.Next()

		if c.Writer.Status() != http.StatusOK {
			return
		}
		resp := &redis.CachedResponse{
			StatusCode:  c.Writer.Status(),
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}
		if err := store.Set(ctx, key, resp); err != nil {
			slog.WarnContext(ctx, "car cache store failed", "key", key, "error", err)
		}
	}
}

// requestKey identifies a request by path and normalized query.
func requestKey(r *http.Request) string {
	q := r.URL.Query().Encode()
	if q == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + q
}
