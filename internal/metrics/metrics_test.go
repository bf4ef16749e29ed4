package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware)
	r.GET("/api/cars/edit-car/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := counterValue(t, RequestTotal.WithLabelValues(http.MethodGet, "/api/cars/edit-car/:id", "204"))

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cars/edit-car/"+id, nil))
	}

	after := counterValue(t, RequestTotal.WithLabelValues(http.MethodGet, "/api/cars/edit-car/:id", "204"))
	if after-before != 2 {
		t.Errorf("expected 2 requests under the route template, got %v", after-before)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware)

	before := counterValue(t, RequestTotal.WithLabelValues(http.MethodGet, "unmatched", "404"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope/123", nil))
	after := counterValue(t, RequestTotal.WithLabelValues(http.MethodGet, "unmatched", "404"))

	if after-before != 1 {
		t.Errorf("expected unmatched counter to increase by 1, got %v", after-before)
	}
}
