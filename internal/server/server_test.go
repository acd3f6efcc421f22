package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoguide/config"
	"cryptoguide/internal/metrics"
	"cryptoguide/internal/session"
	"cryptoguide/logger"
)

type fakeAnswerer struct{}

func (fakeAnswerer) Answer(_ context.Context, q string) string {
	return "answer: " + q
}

func testConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.RateLimit.RequestsPerSecond = 0
	return cfg
}

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *gin.Engine) {
	t.Helper()
	log := logger.Logger()
	log.SetOutput(io.Discard)

	srv, err := NewServer(cfg, fakeAnswerer{}, log)
	require.NoError(t, err)
	t.Cleanup(srv.cleanup)

	router, err := srv.buildRouter("cryptoguide")
	require.NoError(t, err)
	return srv, router
}

func postChat(t *testing.T, router http.Handler, message string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(chatRequest{Message: message})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func sessionCookieFrom(t *testing.T, res *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"":                          "0.0.0.0:8080",
		"  :9090  ":                 "0.0.0.0:9090",
		"localhost":                 "localhost:8080",
		"0.0.0.0:80":                "0.0.0.0:80",
		"[::1]:443":                 "[::1]:443",
		"::1":                       "[::1]:8080",
		"*:8080":                    "0.0.0.0:8080",
		"http://10.0.0.5:8080":      "10.0.0.5:8080",
		"https://10.0.0.5":          "10.0.0.5:8080",
		"http://:7070":              "0.0.0.0:7070",
		"tcp://localhost:5050":      "localhost:5050",
		"https://chat.example.com/": "chat.example.com:8080",
	}

	for input, want := range cases {
		if got := normalizeAddress(input); got != want {
			t.Fatalf("normalizeAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewServerNormalizesConfiguredAddress(t *testing.T) {
	cfg := testConfig()
	cfg.Address = ":9000"
	srv, _ := newTestServer(t, cfg)
	if got := srv.Address(); got != "0.0.0.0:9000" {
		t.Fatalf("server address = %q, want %q", got, "0.0.0.0:9000")
	}
}

func TestNewServerRequiresAnswerer(t *testing.T) {
	_, err := NewServer(testConfig(), nil, logger.Logger())
	if err == nil {
		t.Fatal("expected error without answerer")
	}
}

func TestIndexPage(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Crypto Information Bot by Ngenoh")
	assert.Contains(t, body, "Ask me anything about Bitcoin, Ethereum, or Cardano!")
	assert.Contains(t, body, "Data Sources")
	assert.Contains(t, body, "Real-time market data: CoinGecko API")
}

func TestAssetsServed(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/assets/chat.js", nil))
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestChatCreatesAndReusesSession(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	first := postChat(t, router, "btc price")
	require.Equal(t, http.StatusOK, first.Code)
	cookie := sessionCookieFrom(t, first)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))
	assert.Equal(t, "answer: btc price", resp.Reply)
	assert.Equal(t, 2, resp.Turns)
	assert.Equal(t, cookie.Value, resp.SessionID.String())

	second := postChat(t, router, "eth news", cookie)
	require.Equal(t, http.StatusOK, second.Code)
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Turns)
	assert.Equal(t, cookie.Value, resp.SessionID.String())
}

func TestChatRefreshesSessionCookie(t *testing.T) {
	cfg := testConfig()
	_, router := newTestServer(t, cfg)

	first := sessionCookieFrom(t, postChat(t, router, "hi"))
	wantMaxAge := int(cfg.SessionIdleTimeout / time.Second)
	assert.Equal(t, wantMaxAge, first.MaxAge)

	second := postChat(t, router, "btc price", first)
	require.Equal(t, http.StatusOK, second.Code)
	refreshed := sessionCookieFrom(t, second)
	assert.Equal(t, first.Value, refreshed.Value)
	assert.Equal(t, wantMaxAge, refreshed.MaxAge)
	assert.True(t, refreshed.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.AddCookie(first)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, first.Value, sessionCookieFrom(t, res).Value)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	assert.Equal(t, http.StatusBadRequest, postChat(t, router, "   ").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHistoryAndClear(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	cookie := sessionCookieFrom(t, postChat(t, router, "hello"))

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.AddCookie(cookie)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var history struct {
		SessionID string         `json:"session_id"`
		Turns     []session.Turn `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &history))
	require.Len(t, history.Turns, 2)
	assert.Equal(t, session.RoleUser, history.Turns[0].Role)
	assert.Equal(t, "hello", history.Turns[0].Content)
	assert.Equal(t, session.RoleAssistant, history.Turns[1].Role)
	assert.Equal(t, cookie.Value, history.SessionID)

	del := httptest.NewRequest(http.MethodDelete, "/api/history", nil)
	del.AddCookie(cookie)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, del)
	assert.Equal(t, http.StatusNoContent, res.Code)

	again := postChat(t, router, "hi", cookie)
	require.Equal(t, http.StatusOK, again.Code)
	fresh := sessionCookieFrom(t, again)
	assert.NotEqual(t, cookie.Value, fresh.Value)
}

func TestChatRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2}
	_, router := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, postChat(t, router, "a").Code)
	assert.Equal(t, http.StatusOK, postChat(t, router, "b").Code)

	res := postChat(t, router, "c")
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, "1", res.Header().Get("Retry-After"))

	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestHealthz(t *testing.T) {
	_, router := newTestServer(t, testConfig())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, res.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "sessions")
	assert.Contains(t, body, "goroutines")
}

func TestPrometheusEndpoint(t *testing.T) {
	_, router := newTestServer(t, testConfig())
	metrics.ObserveQuery("help")

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "cryptoguide_queries_total")
}

func TestMetricsEndpointEmitsStoredMetrics(t *testing.T) {
	srv, router := newTestServer(t, testConfig())

	metrics.EmitMetric(srv.log, "assistant", "queries", 1, "counter", logger.Fields{"kind": "market"})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.NotEmpty(t, srv.metricStore.snapshot())
	assert.Contains(t, res.Body.String(), `"name":"queries"`)
}

func TestLogsEndpointCapturesServerLogs(t *testing.T) {
	srv, router := newTestServer(t, testConfig())

	srv.log.WithComponent("server").Warn("something happened")

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "something happened")
}

func TestWebSocketChat(t *testing.T) {
	_, router := newTestServer(t, testConfig())
	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, q := range []string{"hi", "ada price"} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(q)))

		var turn session.Turn
		require.NoError(t, conn.ReadJSON(&turn))
		assert.Equal(t, session.RoleAssistant, turn.Role)
		assert.Equal(t, "answer: "+q, turn.Content)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://allowed.example"}
	srv, _ := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, srv.allowOrigin(req))

	req.Header.Set("Origin", "https://allowed.example")
	assert.True(t, srv.allowOrigin(req))

	req.Header.Set("Origin", "http://"+req.Host)
	assert.True(t, srv.allowOrigin(req))
}
