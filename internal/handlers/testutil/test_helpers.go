package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/api"
	"github.com/charlesng35/sprintboard/internal/app"
	iauth "github.com/charlesng35/sprintboard/internal/auth"
	sharedtestutil "github.com/charlesng35/sprintboard/internal/database/testutil"
	"github.com/charlesng35/sprintboard/internal/notifications"
	"github.com/charlesng35/sprintboard/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService

	mu     sync.Mutex
	events []notifications.Event
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	env := &Env{T: t, DB: db, JWT: jwtSvc}
	dispatcher := notifications.NewDispatcher(notifications.NotifierFunc(env.record))

	router, err := api.NewRouter(db, jwtSvc, cfg, dispatcher)
	require.NoError(t, err)
	env.Router = router

	return env
}

func (e *Env) record(_ context.Context, event notifications.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

// Events returns the types of every notification delivered so far, in order.
func (e *Env) Events() []notifications.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]notifications.EventType, len(e.events))
	for i, event := range e.events {
		out[i] = event.Type
	}
	return out
}

// UserPayload captures the user fields returned from auth endpoints.
type UserPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	Token struct {
		AccessToken string    `json:"access_token"`
		TokenType   string    `json:"token_type"`
		ExpiresAt   time.Time `json:"expires_at"`
	} `json:"token"`
	User UserPayload `json:"user"`
}

// Account is a registered user together with a valid bearer token.
type Account struct {
	User  UserPayload
	Token string
}

// Register creates a local account through the API and logs it in.
func (e *Env) Register(username string) Account {
	e.T.Helper()

	password := "Passw0rd-" + uuid.NewString()[:8]
	body := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	}
	w := e.Request(http.MethodPost, "/api/auth/register", body, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	login := e.Login(username, password)
	return Account{User: login.User, Token: login.Token.AccessToken}
}

// Login authenticates with local credentials and returns the issued token.
func (e *Env) Login(identifier, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token.AccessToken)
	require.Equal(e.T, "Bearer", result.Token.TokenType)

	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Data performs a request, asserts the status code and decodes the data payload into dest.
func Data[T any](e *Env, status int, method, path string, body any, token string, dest *T) {
	e.T.Helper()

	w := e.Request(method, path, body, token)
	require.Equal(e.T, status, w.Code, w.Body.String())
	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())
	if dest != nil {
		DecodeInto(e.T, resp.Data, dest)
	}
}

// ErrorCode performs a request, asserts the status code and returns the error envelope.
func (e *Env) ErrorCode(status int, method, path string, body any, token string) response.ErrorInfo {
	e.T.Helper()

	w := e.Request(method, path, body, token)
	require.Equal(e.T, status, w.Code, w.Body.String())
	resp := DecodeResponse(e.T, w)
	require.False(e.T, resp.Success)
	require.NotNil(e.T, resp.Error)
	return *resp.Error
}
