package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ── RequestID ──

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) { seen = GetRequestID(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	if seen == "" {
		t.Fatal("expected generated request id")
	}
	if w.Header().Get("X-Request-ID") != seen {
		t.Errorf("header %q != context %q", w.Header().Get("X-Request-ID"), seen)
	}
}

func TestRequestID_KeepsInboundAndRejectsOversized(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("expected inbound id kept, got %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", requestIDMaxLen+1))
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); len(got) > requestIDMaxLen {
		t.Errorf("oversized id should be replaced, got %d chars", len(got))
	}
}

// ── Logger ──

func TestLogger_LevelsAndSkip(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, p := range []string{"/health", "/bad", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", p, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries (health skipped), got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel || entries[1].Level != zap.ErrorLevel {
		t.Errorf("unexpected levels: %v, %v", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["request_id"] == "" {
		t.Error("expected request_id field")
	}
}

// ── CORS ──

func TestCORS_AllowedOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/x", func(c *gin.Context) {})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("unexpected allow origin %q", got)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Error("Content-Disposition should be exposed")
	}
}

func TestCORS_UnknownOriginAndPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/x", func(c *gin.Context) {})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin must not be allowed")
	}
}

// ── BodyLimit ──

func TestBodyLimit_DeclaredLength(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	called := false
	r.POST("/x", func(c *gin.Context) { called = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/x", bytes.NewReader(make([]byte, 64))))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
	if called {
		t.Error("handler should not run")
	}
}

func TestBodyLimit_StreamedBody(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	var readErr error
	r.POST("/x", func(c *gin.Context) {
		_, readErr = io.ReadAll(c.Request.Body)
	})

	req := httptest.NewRequest("POST", "/x", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1
	r.ServeHTTP(httptest.NewRecorder(), req)

	if !IsBodyTooLarge(readErr) {
		t.Errorf("expected MaxBytesError, got %v", readErr)
	}
}

// ── SecurityHeaders ──

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/x", func(c *gin.Context) {})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	for _, h := range []string{"X-Frame-Options", "X-Content-Type-Options", "Content-Security-Policy", "Cache-Control"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

// ── RateLimit ──

type fakeLimiter struct {
	counts map[string]int
	err    error
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	lim := &fakeLimiter{counts: map[string]int{}}
	r := gin.New()
	r.POST("/x", RateLimit(lim, 2, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/x", nil))
		codes = append(codes, w.Code)
		if i == 2 && w.Header().Get("Retry-After") != "60" {
			t.Errorf("expected Retry-After 60, got %q", w.Header().Get("Retry-After"))
		}
	}

	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected codes %v", codes)
	}
}

func TestRateLimit_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		limiter Limiter
		limit   int
	}{
		{"NilLimiter", nil, 1},
		{"Disabled", &fakeLimiter{counts: map[string]int{}}, 0},
		{"LimiterError", &fakeLimiter{err: errors.New("redis down")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/x", RateLimit(tt.limiter, tt.limit, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

			for i := 0; i < 3; i++ {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest("POST", "/x", nil))
				if w.Code != http.StatusOK {
					t.Fatalf("request %d: expected 200, got %d", i, w.Code)
				}
			}
		})
	}
}
