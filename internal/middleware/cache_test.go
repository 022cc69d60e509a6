package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/elibrary/internal/config"
)

func cacheCfg(strategy string) config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{"GET": true},
		TTL:         time.Minute,
		KeyStrategy: strategy,
		Prefix:      "cache:books",
	}
}

func keyFor(t *testing.T, cfg config.CacheConfig, method, target string, params ...string) string {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(method, target, nil), httptest.NewRecorder())
	c.SetPath("/api/books/:id")
	if len(params) > 0 {
		c.SetParamNames("id")
		c.SetParamValues(params...)
	}
	return cacheKeyFrom(cfg, c)
}

func TestCacheKeyFrom(t *testing.T) {
	cfg := cacheCfg("route_query")
	a := keyFor(t, cfg, http.MethodGet, "/api/books/1?x=1", "1")
	b := keyFor(t, cfg, http.MethodGet, "/api/books/2?x=1", "2")
	c := keyFor(t, cfg, http.MethodGet, "/api/books/1?x=2", "1")

	if !strings.HasPrefix(a, "cache:books:") {
		t.Errorf("key %q lacks prefix", a)
	}
	if a == b {
		t.Error("different path params must not share a key")
	}
	if a == c {
		t.Error("different queries must not share a key under route_query")
	}
	if a != keyFor(t, cfg, http.MethodGet, "/api/books/1?x=1", "1") {
		t.Error("key is not stable")
	}

	route := cacheCfg("route")
	if keyFor(t, route, http.MethodGet, "/api/books/1?x=1", "1") != keyFor(t, route, http.MethodGet, "/api/books/1?x=2", "1") {
		t.Error("route strategy must ignore the query")
	}
	mr := cacheCfg("method_route")
	if keyFor(t, mr, http.MethodGet, "/api/books/1", "1") == keyFor(t, mr, http.MethodHead, "/api/books/1", "1") {
		t.Error("method_route strategy must separate methods")
	}
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"success":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, gotHdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || gotHdr.Get("Content-Type") != "application/json" || string(body) != `{"success":true}` {
		t.Errorf("decodePayload() = %d, %v, %q, %v", status, gotHdr, body, ok)
	}

	for _, bad := range [][]byte{nil, {0, 0, 0}, {0, 0, 0, 200, 0, 0, 1, 0}} {
		if _, _, _, ok := decodePayload(bad); ok {
			t.Errorf("decodePayload(%v) accepted a corrupt payload", bad)
		}
	}
}

func TestCaptureWriter_Truncation(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("ab"))
	if cw.truncated() {
		t.Fatal("2 bytes under a 4 byte limit is not truncated")
	}
	_, _ = cw.Write([]byte("cde"))
	if !cw.truncated() {
		t.Error("5 bytes over a 4 byte limit should be truncated")
	}
	if rec.Body.String() != "abcde" {
		t.Errorf("client received %q, want the full body", rec.Body.String())
	}
}

func TestResponseCache_WithoutRedis(t *testing.T) {
	rc := NewResponseCache(cacheCfg("route_query"), nil)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/books", nil), rec)

	calls := 0
	h := rc.Middleware()(func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if calls != 1 || rec.Header().Get("X-Cache") != "" {
		t.Errorf("pass-through expected: calls %d, X-Cache %q", calls, rec.Header().Get("X-Cache"))
	}
	if err := rc.Invalidate(context.Background()); err != nil {
		t.Errorf("Invalidate() without Redis = %v, want nil", err)
	}
}
