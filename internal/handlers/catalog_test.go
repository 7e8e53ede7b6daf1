package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/catalog-proxy/internal/cache"
	"github.com/benvon/catalog-proxy/internal/catalog"
	"github.com/benvon/catalog-proxy/internal/enrich"
	"github.com/benvon/catalog-proxy/internal/governor"
	"github.com/benvon/catalog-proxy/internal/upstream"
	"github.com/gorilla/mux"
)

const searchBody = `{"data":[
	{"id":1,"name":"Cap","assetType":28,"price":10,"creatorName":"A","productId":11},
	{"id":2,"name":"Tee","assetType":2,"price":5,"creatorName":"B","productId":12}
],"nextPageCursor":null}`

type proxyFixture struct {
	router *mux.Router
	calls  *atomic.Int64
}

// newProxy wires the real service and client against a fake upstream.
func newProxy(t *testing.T, upstreamHandler http.HandlerFunc, max int, opts catalog.Options) proxyFixture {
	t.Helper()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		upstreamHandler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := upstream.NewClient(upstream.Config{
		CatalogBaseURL: srv.URL,
		EconomyBaseURL: srv.URL,
		Timeout:        2 * time.Second,
	}, nil, nil)
	svc := catalog.NewService(
		governor.New(max),
		cache.New(time.Minute),
		client,
		enrich.New(client, 4, nil, nil),
		opts,
		nil,
		nil,
	)

	r := mux.NewRouter()
	NewCatalogHandler(svc, nil).RegisterRoutes(r.PathPrefix("/api").Subrouter())
	return proxyFixture{router: r, calls: &calls}
}

func serveJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func doGet(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestCatalogHandler_Search(t *testing.T) {
	t.Parallel()

	p := newProxy(t, serveJSON(searchBody), 10, catalog.Options{RequireQuery: true})

	w, _ := doGet(t, p.router, "/api/search?query=hat&limit=15")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(CacheHeader); got != "MISS" {
		t.Errorf("Expected X-Cache MISS, got %q", got)
	}
	var items []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("Expected an array body: %v", err)
	}
	if len(items) != 2 || items[0]["itemType"] != "Hat" {
		t.Errorf("Unexpected items %v", items)
	}

	first := w.Body.String()
	w, _ = doGet(t, p.router, "/api/search?query=hat&limit=15")
	if w.Header().Get(CacheHeader) != "HIT" {
		t.Error("Expected second request to be served from cache")
	}
	if w.Body.String() != first {
		t.Error("Expected byte-identical cached body")
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}
}

func TestCatalogHandler_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
	}{
		{"non numeric asset id", "/api/item/abc"},
		{"non numeric catalog asset id", "/api/item-catalog/12x"},
		{"blank query", "/api/search?query=%20"},
		{"unknown category", "/api/search?query=hat&category=weapons"},
		{"bad limit", "/api/category/Gear?limit=lots"},
		{"unknown popular category", "/api/popular/weapons"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newProxy(t, serveJSON(searchBody), 10, catalog.Options{RequireQuery: true})

			w, body := doGet(t, p.router, tt.target)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", w.Code)
			}
			if body["error"] == nil {
				t.Error("Expected error field")
			}
			if got := p.calls.Load(); got != 0 {
				t.Errorf("Expected no upstream call, got %d", got)
			}
		})
	}
}

func TestCatalogHandler_ThrottlingIsDistinguishable(t *testing.T) {
	t.Parallel()

	t.Run("upstream 429", func(t *testing.T) {
		t.Parallel()
		p := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"errors":[{"code":0,"message":"Too many requests"}]}`))
		}, 10, catalog.Options{})

		w, body := doGet(t, p.router, "/api/search?query=hat")
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("Expected status 429, got %d", w.Code)
		}
		if body["message"] != "upstream throttled" {
			t.Errorf("Expected upstream throttled message, got %v", body["message"])
		}
		if w.Header().Get("Retry-After") != "7" {
			t.Errorf("Expected Retry-After 7, got %q", w.Header().Get("Retry-After"))
		}
	})

	t.Run("local governor", func(t *testing.T) {
		t.Parallel()
		p := newProxy(t, serveJSON(searchBody), 1, catalog.Options{})

		if w, _ := doGet(t, p.router, "/api/search?query=hat"); w.Code != http.StatusOK {
			t.Fatalf("Expected first request to pass, got %d", w.Code)
		}
		w, body := doGet(t, p.router, "/api/search?query=hat")
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("Expected status 429, got %d", w.Code)
		}
		if body["error"] != "Rate limit exceeded" {
			t.Errorf("Expected local rate limit error, got %v", body["error"])
		}
		if retry, ok := body["retryAfter"].(float64); !ok || retry <= 0 {
			t.Errorf("Expected positive retryAfter, got %v", body["retryAfter"])
		}
		if w.Header().Get("Retry-After") == "" {
			t.Error("Expected Retry-After header")
		}
	})
}

func TestCatalogHandler_UpstreamStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		upstream int
		want     int
	}{
		{"not found", http.StatusNotFound, http.StatusNotFound},
		{"server error", http.StatusBadGateway, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.upstream)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			}, 10, catalog.Options{})

			w, body := doGet(t, p.router, "/api/item/42")
			if w.Code != tt.want {
				t.Fatalf("Expected status %d, got %d", tt.want, w.Code)
			}
			if tt.want == http.StatusInternalServerError && body["details"] == nil {
				t.Error("Expected details for a generic upstream failure")
			}
		})
	}
}

func TestCatalogHandler_ItemAndListings(t *testing.T) {
	t.Parallel()

	p := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v2/assets/42/details":
			_, _ = w.Write([]byte(`{"AssetId":42,"ProductId":7,"Name":"Cap","Description":"d","AssetTypeId":999,"PriceInRobux":25,"IsForSale":true,"Creator":{"Id":1,"Name":"Builder"}}`))
		case "/v1/catalog/items/42/details":
			_, _ = w.Write([]byte(`{"id":42,"itemType":"Asset"}`))
		default:
			_, _ = w.Write([]byte(searchBody))
		}
	}, 10, catalog.Options{})

	w, body := doGet(t, p.router, "/api/item/42")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if body["itemType"] != "Unknown" || body["price"] != float64(25) {
		t.Errorf("Unexpected item %v", body)
	}

	w, body = doGet(t, p.router, "/api/item-catalog/42")
	if w.Code != http.StatusOK || body["itemType"] != "Asset" {
		t.Errorf("Expected raw catalog record, got %d %v", w.Code, body)
	}

	for _, target := range []string{"/api/popular", "/api/popular/Accessories", "/api/category/Gear?limit=10"} {
		w, _ := doGet(t, p.router, target)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", target, w.Code)
		}
	}
}
