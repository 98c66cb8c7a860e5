package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/composables"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/configuration"
)

func serve(t *testing.T, mw []mux.MiddlewareFunc, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	r.Use(mw...)
	r.PathPrefix("/").Handler(handler)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWithLogger_PropagatesRequestID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	var seenID string
	var seenLogger *logrus.Entry
	req := httptest.NewRequest(http.MethodGet, "/occupancy/api/positions", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := serve(t, []mux.MiddlewareFunc{WithLogger(logger, DefaultLoggerOptions())}, func(w http.ResponseWriter, r *http.Request) {
		seenID = composables.UseRequestID(r.Context())
		seenLogger = composables.UseLogger(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}, req)

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "abc-123", seenID)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
	require.NotNil(t, seenLogger)
	require.Equal(t, "abc-123", seenLogger.Data["request-id"])

	last := hook.LastEntry()
	require.Equal(t, "request completed", last.Message)
	require.Equal(t, http.StatusTeapot, last.Data["status-code"])
}

func TestWithLogger_GeneratesRequestIDAndKeepsBody(t *testing.T) {
	logger, _ := test.NewNullLogger()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"Chair"}`))
	req.Header.Set("Content-Type", "application/json")

	var body []byte
	rec := serve(t, []mux.MiddlewareFunc{WithLogger(logger, DefaultLoggerOptions())}, func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.JSONEq(t, `{"name":"Chair"}`, string(body))
	require.Len(t, rec.Header().Get("X-Request-Id"), 36)
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	logger, hook := test.NewNullLogger()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "r-9")
	rec := serve(t, []mux.MiddlewareFunc{WithLogger(logger, DefaultLoggerOptions())}, func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var env struct {
		Code string            `json:"code"`
		Meta map[string]string `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "INTERNAL_SERVER_ERROR", env.Code)
	require.Equal(t, "r-9", env.Meta["request_id"])
	require.Equal(t, "panic recovered in request handler", hook.LastEntry().Message)
}

func TestCors_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/occupancy/api/positions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	called := false
	rec := httptest.NewRecorder()
	Cors("http://localhost:3000")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })).ServeHTTP(rec, req)

	require.False(t, called)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/occupancy/api/positions", nil)
	other.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	Cors("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })).ServeHTTP(rec, other)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit_MemoryStore(t *testing.T) {
	mw := []mux.MiddlewareFunc{RateLimit(RateLimitConfig{RequestsPerPeriod: 2, Store: NewMemoryStore()})}
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

	for i := 0; i < 2; i++ {
		rec := serve(t, mw, ok, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(t, mw, ok, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func TestNewRedisStore_RejectsBadURL(t *testing.T) {
	_, err := NewRedisStore("not-a-redis-url")
	require.Error(t, err)
}

func TestOpsGuard(t *testing.T) {
	conf := &configuration.Configuration{
		RealIPHeader: "X-Real-IP",
		OpsGuard: configuration.OpsGuardOptions{
			Enabled: true,
			CIDRs:   "10.0.0.0/8",
			Token:   "s3cret",
		},
	}
	mw := []mux.MiddlewareFunc{OpsGuard(conf, "/debug/prometheus")}
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

	req := httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil)
	require.Equal(t, http.StatusNotFound, serve(t, mw, ok, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, serve(t, mw, ok, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil)
	req.Header.Set("X-Real-IP", "10.1.2.3, 192.168.0.1")
	require.Equal(t, http.StatusOK, serve(t, mw, ok, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/occupancy/api/positions", nil)
	require.Equal(t, http.StatusOK, serve(t, mw, ok, req).Code)

	conf.OpsGuard.Enabled = false
	req = httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil)
	require.Equal(t, http.StatusOK, serve(t, []mux.MiddlewareFunc{OpsGuard(conf, "/debug/prometheus")}, ok, req).Code)
}
