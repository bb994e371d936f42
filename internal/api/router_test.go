package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sprintboard/internal/app"
	iauth "github.com/charlesng35/sprintboard/internal/auth"
	testutil "github.com/charlesng35/sprintboard/internal/database/testutil"
)

func newTestRouter(t *testing.T, cfg *app.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-test-secret", Issuer: "test", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, cfg, nil)
	require.NoError(t, err)
	return router
}

func enabledConfig() *app.Config {
	cfg := &app.Config{}
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"
	return cfg
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	router := newTestRouter(t, enabledConfig())

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)

	for _, path := range []string{"/api/auth/me", "/api/workspace", "/api/teams", "/api/sprints", "/api/board"} {
		w := serve(router, http.MethodGet, path)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := serve(router, http.MethodPost, "/api/auth/login")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, enabledConfig())

	w := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "sprintboard_active_sprints"))
}

func TestRouter_MonitoringDisabled(t *testing.T) {
	router := newTestRouter(t, &app.Config{})

	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/health").Code)
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics").Code)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t, enabledConfig())

	w := serve(router, http.MethodGet, "/api/unknown")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := NewRouter(nil, nil, nil, nil)
	require.Error(t, err)
}
