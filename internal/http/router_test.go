package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	appgames "github.com/preston-bernstein/sports-data-service/internal/app/games"
	"github.com/preston-bernstein/sports-data-service/internal/http/handlers"
	"github.com/preston-bernstein/sports-data-service/internal/metrics"
	"github.com/preston-bernstein/sports-data-service/internal/store"
	"github.com/preston-bernstein/sports-data-service/internal/testutil"
)

func newTestRouter(token string) nethttp.Handler {
	logger, _ := testutil.NewBufferLogger()
	svc := appgames.NewService(store.NewMemoryStore(), time.UTC)
	return NewRouter(RouterConfig{
		Handler:    handlers.NewHandler(svc, nil, nil, nil, logger),
		Admin:      handlers.NewAdminHandler(nil, nil, logger),
		AdminToken: token,
		Logger:     logger,
		Metrics:    metrics.NewRecorder(),
		MetricsHandler: nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	})
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter("secret")

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{nethttp.MethodGet, "/health", nethttp.StatusOK},
		{nethttp.MethodGet, "/ready", nethttp.StatusOK},
		{nethttp.MethodGet, "/status", nethttp.StatusOK},
		{nethttp.MethodGet, "/leagues/nba/games", nethttp.StatusOK},
		{nethttp.MethodGet, "/leagues/nba/games/123", nethttp.StatusNotFound},
		{nethttp.MethodGet, "/metrics", nethttp.StatusOK},
		{nethttp.MethodGet, "/nope", nethttp.StatusNotFound},
		{nethttp.MethodPost, "/health", nethttp.StatusMethodNotAllowed},
		{nethttp.MethodPost, "/admin/poll", nethttp.StatusUnauthorized},
	}
	for _, tc := range cases {
		rr := testutil.Serve(router, tc.method, tc.path, nil)
		if rr.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s %s: expected request id header", tc.method, tc.path)
		}
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter("secret")

	req := httptest.NewRequest(nethttp.MethodPost, "/admin/poll", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr := testutil.ServeRequest(router, req)
	// Authorized, but no poller is configured.
	testutil.AssertStatus(t, rr, nethttp.StatusServiceUnavailable)

	disabled := newTestRouter("")
	req = httptest.NewRequest(nethttp.MethodPost, "/admin/poll", nil)
	req.Header.Set("Authorization", "Bearer ")
	testutil.AssertStatus(t, testutil.ServeRequest(disabled, req), nethttp.StatusUnauthorized)
}

func TestRouterNotFoundIsJSON(t *testing.T) {
	rr := testutil.Serve(newTestRouter(""), nethttp.MethodGet, "/missing", nil)
	var body map[string]string
	testutil.DecodeJSON(t, rr, &body)
	if body["error"] != "not found" || body["requestId"] == "" {
		t.Fatalf("unexpected body %v", body)
	}
}
