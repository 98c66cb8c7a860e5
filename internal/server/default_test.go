package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/infrastructure/persistence"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/application"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/configuration"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/httpapi"
)

func newDefaultServer(t *testing.T, conf *configuration.Configuration) http.Handler {
	t.Helper()
	logger, _ := test.NewNullLogger()
	app := application.New(&application.ApplicationOptions{Logger: logger})
	require.NoError(t, application.Load(app, occupancy.NewModule(&occupancy.ModuleOptions{
		Repository: persistence.NewMemoryRepository(),
	})))
	srv, err := Default(&DefaultOptions{Logger: logger, Configuration: conf, Application: app})
	require.NoError(t, err)
	return srv.Handler()
}

func baseConfiguration() *configuration.Configuration {
	return &configuration.Configuration{
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
		CorsOrigins:     []string{"http://localhost:3000"},
		Prometheus:      configuration.PrometheusOptions{Enabled: true, Path: "/debug/prometheus"},
		RateLimit:       configuration.RateLimitOptions{Enabled: true, GlobalRPS: 100, Storage: "memory"},
	}
}

func TestDefault_ServesOccupancyAPI(t *testing.T) {
	h := newDefaultServer(t, baseConfiguration())

	req := httptest.NewRequest(http.MethodGet, "/occupancy/api/positions", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `[]`, rec.Body.String())
	require.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	require.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDefault_JSONFallbacks(t *testing.T) {
	h := newDefaultServer(t, baseConfiguration())

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set("X-Request-ID", "req-2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "NOT_FOUND", env.Code)
	require.Equal(t, "req-2", env.Meta["request_id"])
}

func TestDefault_GuardsMetrics(t *testing.T) {
	conf := baseConfiguration()
	conf.OpsGuard = configuration.OpsGuardOptions{Enabled: true, Token: "t0k3n"}
	h := newDefaultServer(t, conf)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil)
	req.Header.Set("X-Ops-Token", "t0k3n")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
