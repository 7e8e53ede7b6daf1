package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/benvon/catalog-proxy/internal/request"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestClientRateLimit(t *testing.T) {
	t.Parallel()

	mw, err := ClientRateLimit("2-M", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("ClientRateLimit() error = %v", err)
	}
	handler := mw(okHandler())

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/search?query=hat", nil)
		req.RemoteAddr = ip + ":40000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := send("192.0.2.1"); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected status 200, got %d", i+1, w.Code)
		}
	}

	w := send("192.0.2.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", w.Code)
	}
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry < 1 {
		t.Errorf("Expected positive Retry-After, got %q", w.Header().Get("Retry-After"))
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Error != "Rate limit exceeded" || body.RetryAfter < 1 {
		t.Errorf("Unexpected body %+v", body)
	}

	if w := send("192.0.2.2"); w.Code != http.StatusOK {
		t.Errorf("Expected a different client to be unaffected, got %d", w.Code)
	}
}

func TestClientRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	mw, err := ClientRateLimit("", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("ClientRateLimit() error = %v", err)
	}
	handler := mw(okHandler())
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
	}
}

func TestClientRateLimit_InvalidRate(t *testing.T) {
	t.Parallel()

	if _, err := ClientRateLimit("lots", nil, zap.NewNop()); err == nil {
		t.Error("Expected an error for a malformed rate")
	}
}

func TestRetryAfterFromReset(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name  string
		reset string
		want  int
	}{
		{"future", strconv.FormatInt(now.Unix()+42, 10), 42},
		{"past", strconv.FormatInt(now.Unix()-5, 10), 1},
		{"garbage", "soon", 1},
	}
	for _, tt := range tests {
		if got := retryAfterFromReset(tt.reset, now); got != tt.want {
			t.Errorf("%s: retryAfterFromReset() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestClientRateLimit_ForwardedHeaderRotation(t *testing.T) {
	t.Parallel()

	proxies, err := request.ParseTrustedProxies("10.0.0.0/8")
	if err != nil {
		t.Fatalf("ParseTrustedProxies() error = %v", err)
	}
	mw, err := ClientRateLimit("1-M", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("ClientRateLimit() error = %v", err)
	}
	handler := ClientIP(proxies)(mw(okHandler()))

	send := func(remote, forwarded string) int {
		req := httptest.NewRequest("GET", "/api/search?query=hat", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("direct client cannot rotate its key", func(t *testing.T) {
		if code := send("198.51.100.9:5000", "1.1.1.1"); code != http.StatusOK {
			t.Fatalf("Expected first request to pass, got %d", code)
		}
		if code := send("198.51.100.9:5001", "2.2.2.2"); code != http.StatusTooManyRequests {
			t.Errorf("Expected rotated X-Forwarded-For to be limited, got %d", code)
		}
	})

	t.Run("clients behind a trusted proxy are keyed separately", func(t *testing.T) {
		if code := send("10.0.0.1:5000", "203.0.113.1"); code != http.StatusOK {
			t.Fatalf("Expected first client to pass, got %d", code)
		}
		if code := send("10.0.0.1:5000", "203.0.113.2"); code != http.StatusOK {
			t.Errorf("Expected second client to pass, got %d", code)
		}
		if code := send("10.0.0.1:5000", "6.6.6.6, 203.0.113.1"); code != http.StatusTooManyRequests {
			t.Errorf("Expected spoofed leftmost entry to be ignored, got %d", code)
		}
	})
}
