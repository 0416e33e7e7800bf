package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docvault/docvault/internal/server"
	"github.com/gin-gonic/gin"
)

func TestRateLimiterThrottles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(server.RateLimiter(1, 1))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Errorf("burst-exceeding request should get 429, got %d", code)
	}

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.8:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("separate client should not share the bucket, got %d", w.Code)
	}
}
