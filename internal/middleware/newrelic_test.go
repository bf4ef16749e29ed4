package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

func TestNewRelicErrors_TransactionReachesRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	nrApp, err := newrelic.NewApplication(
		newrelic.ConfigAppName("carrental-test"),
		newrelic.ConfigEnabled(false),
	)
	if err != nil {
		t.Fatalf("new relic app: %v", err)
	}

	var fromGin, fromRequest bool
	r := gin.New()
	r.Use(nrgin.Middleware(nrApp))
	r.Use(NewRelicErrors())
	r.GET("/cars", func(c *gin.Context) {
		fromGin = nrgin.Transaction(c) != nil
		fromRequest = newrelic.FromContext(c.Request.Context()) != nil
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cars", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !fromGin {
		t.Fatal("expected nrgin transaction in gin context")
	}
	if !fromRequest {
		t.Error("expected transaction in request context for datastore segments")
	}
}

func TestNewRelicErrors_NoTransaction(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(NewRelicErrors())
	r.GET("/cars", func(c *gin.Context) {
		if newrelic.FromContext(c.Request.Context()) != nil {
			t.Error("expected no transaction without nrgin")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cars", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
