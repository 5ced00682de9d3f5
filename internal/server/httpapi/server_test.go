package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/tileschb/larang-api/internal/logging"
	"github.com/tileschb/larang-api/internal/respond"
	"github.com/tileschb/larang-api/internal/server/config"
	"github.com/tileschb/larang-api/internal/server/repositories/repomanager"
	"github.com/tileschb/larang-api/internal/server/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestServer wires a router against in-memory repositories. The sqlmock
// handle only carries the transaction protocol; a generous number of
// begin/commit pairs is queued so individual tests don't have to count them.
func newTestServer(t *testing.T) (*gin.Engine, *sql.DB, *repomanager.MemoryRepositoryManager) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	for i := 0; i < 32; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	cfg := &config.Config{
		Environment:                  config.EnvDevelopment,
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 30 * 24 * time.Hour,
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m := repomanager.NewMemoryRepositoryManager()

	srv := NewServer(cfg, logger, respond.NewFormatter(respond.NewKeyCache()),
		services.NewUserService(db, m), services.NewTokenService(db, m, cfg))
	return srv.Router(), db, m
}

func doJSON(t *testing.T, router *gin.Engine, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, w.Body.String())
	}
	return w, envelope
}

func registerAndLogin(t *testing.T, router *gin.Engine) (access, refresh string) {
	t.Helper()

	w, _ := doJSON(t, router, http.MethodPost, "/v1/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "s3cret-pass",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", w.Code, w.Body.String())
	}

	w, env := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "s3cret-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}

	data := env["data"].(map[string]any)
	return data["accessToken"].(string), data["refreshToken"].(string)
}

func TestRegister_Envelope(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	w, env := doJSON(t, router, http.MethodPost, "/v1/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "s3cret-pass",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if env["success"] != true || env["error"] != nil {
		t.Fatalf("unexpected envelope: %v", env)
	}

	data := env["data"].(map[string]any)
	if data["email"] != "alice@example.com" || data["name"] != "Alice" {
		t.Fatalf("unexpected data: %v", data)
	}
	// Key camelized, time serialized as unix microseconds.
	if _, ok := data["createdAt"].(float64); !ok {
		t.Fatalf("createdAt must be a camelized numeric field: %v", data)
	}
	if _, leaked := data["created_at"]; leaked {
		t.Fatalf("snake_case key leaked: %v", data)
	}
}

func TestRegister_ValidationError(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	w, env := doJSON(t, router, http.MethodPost, "/v1/register", "", map[string]string{
		"name": "A", "email": "not-an-email", "password": "short",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	errBody := env["error"].(map[string]any)
	if errBody["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error: %v", errBody)
	}
	details := errBody["details"].(map[string]any)
	for _, field := range []string{"name", "email", "password"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("missing %s in details: %v", field, details)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	body := map[string]string{"name": "Alice", "email": "alice@example.com", "password": "s3cret-pass"}
	doJSON(t, router, http.MethodPost, "/v1/register", "", body)
	w, env := doJSON(t, router, http.MethodPost, "/v1/register", "", body)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	errBody := env["error"].(map[string]any)
	if errBody["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error: %v", errBody)
	}
}

func TestLogin_TokenResponseShape(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	doJSON(t, router, http.MethodPost, "/v1/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "s3cret-pass",
	})
	w, env := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "s3cret-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	data := env["data"].(map[string]any)
	if data["tokenType"] != "Bearer" {
		t.Fatalf("tokenType: %v", data)
	}
	if data["accessToken"] == "" || data["refreshToken"] == "" {
		t.Fatalf("missing tokens: %v", data)
	}
	expiresIn, ok := data["expiresIn"].(float64)
	if !ok || expiresIn <= 0 || expiresIn > float64(15*time.Minute/time.Millisecond) {
		t.Fatalf("expiresIn out of range: %v", data["expiresIn"])
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	doJSON(t, router, http.MethodPost, "/v1/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "s3cret-pass",
	})
	w, env := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-pass",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if env["success"] != false || env["data"] != nil {
		t.Fatalf("unexpected envelope: %v", env)
	}
	errBody := env["error"].(map[string]any)
	if errBody["code"] != "INVALID_CREDENTIALS" || errBody["message"] != "Invalid credentials provided." {
		t.Fatalf("unexpected error: %v", errBody)
	}
	if errBody["details"] != nil {
		t.Fatalf("details must be null: %v", errBody)
	}
}

func TestMe_RequiresAuthToken(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	access, refresh := registerAndLogin(t, router)

	w, env := doJSON(t, router, http.MethodGet, "/v1/auth/me", access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	data := env["data"].(map[string]any)
	if data["email"] != "alice@example.com" {
		t.Fatalf("unexpected data: %v", data)
	}

	// A refresh token is valid only on the rotation endpoint.
	w, env = doJSON(t, router, http.MethodGet, "/v1/auth/me", refresh, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if env["error"].(map[string]any)["code"] != "UNAUTHENTICATED" {
		t.Fatalf("unexpected error: %v", env)
	}
}

func TestMe_DeletedUserIsUnauthenticated(t *testing.T) {
	router, db, m := newTestServer(t)
	defer db.Close()

	access, _ := registerAndLogin(t, router)

	// The token still resolves, but the user behind it is gone.
	user, err := m.UserStore().GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	m.UserStore().Delete(user.ID)

	w, env := doJSON(t, router, http.MethodGet, "/v1/auth/me", access, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	errBody := env["error"].(map[string]any)
	if errBody["code"] != "UNAUTHENTICATED" || errBody["message"] != "Unauthenticated." {
		t.Fatalf("unexpected error: %v", errBody)
	}
}

func TestMe_NoToken(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	w, env := doJSON(t, router, http.MethodGet, "/v1/auth/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if env["error"].(map[string]any)["code"] != "UNAUTHENTICATED" {
		t.Fatalf("unexpected error: %v", env)
	}
}

func TestRefresh_RotatesPair(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	access, refresh := registerAndLogin(t, router)

	w, env := doJSON(t, router, http.MethodPost, "/v1/auth/refresh", refresh, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	data := env["data"].(map[string]any)
	newAccess := data["accessToken"].(string)
	if newAccess == access {
		t.Fatalf("rotation must mint a new access token")
	}

	// Old pair no longer authenticates.
	w, _ = doJSON(t, router, http.MethodGet, "/v1/auth/me", access, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old access token still valid: %d", w.Code)
	}
	w, _ = doJSON(t, router, http.MethodPost, "/v1/auth/refresh", refresh, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old refresh token still valid: %d", w.Code)
	}

	// New one does.
	w, _ = doJSON(t, router, http.MethodGet, "/v1/auth/me", newAccess, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("new access token rejected: %d", w.Code)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	access, _ := registerAndLogin(t, router)

	w, env := doJSON(t, router, http.MethodPost, "/v1/auth/refresh", access, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if env["error"].(map[string]any)["code"] != "UNAUTHENTICATED" {
		t.Fatalf("unexpected error: %v", env)
	}
}

func TestLogout_RevokesPair(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	access, refresh := registerAndLogin(t, router)

	w, env := doJSON(t, router, http.MethodPost, "/v1/auth/logout", access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if env["success"] != true {
		t.Fatalf("unexpected envelope: %v", env)
	}

	w, _ = doJSON(t, router, http.MethodGet, "/v1/auth/me", access, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("access token survives logout: %d", w.Code)
	}
	w, _ = doJSON(t, router, http.MethodPost, "/v1/auth/refresh", refresh, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token survives logout: %d", w.Code)
	}
}

func TestLogoutOthers_KeepsCurrentSession(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	access1, _ := registerAndLogin(t, router)

	// Second session for the same user.
	w, env := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "s3cret-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("second login status %d", w.Code)
	}
	access2 := env["data"].(map[string]any)["accessToken"].(string)

	w, _ = doJSON(t, router, http.MethodPost, "/v1/auth/logout-others", access1, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout-others status %d: %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, router, http.MethodGet, "/v1/auth/me", access1, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("current session must survive: %d", w.Code)
	}
	w, _ = doJSON(t, router, http.MethodGet, "/v1/auth/me", access2, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("other session must be revoked: %d", w.Code)
	}
}

func TestLogoutAll_RevokesEverySession(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	access1, _ := registerAndLogin(t, router)

	w, env := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "s3cret-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("second login status %d", w.Code)
	}
	access2 := env["data"].(map[string]any)["accessToken"].(string)

	w, _ = doJSON(t, router, http.MethodPost, "/v1/auth/logout-all", access1, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout-all status %d: %s", w.Code, w.Body.String())
	}

	for _, tok := range []string{access1, access2} {
		w, _ = doJSON(t, router, http.MethodGet, "/v1/auth/me", tok, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("session must be revoked: %d", w.Code)
		}
	}
}

func TestRequestLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	cfg := &config.Config{Environment: config.EnvDevelopment}
	srv := NewServer(cfg, logger, respond.NewFormatter(respond.NewKeyCache()), nil, nil)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	out := buf.String()
	for _, s := range []string{"request started", "request completed", "method=GET", "status=404"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in log output, got:\n%s", s, out)
		}
	}
}

func TestNoRoute(t *testing.T) {
	router, db, _ := newTestServer(t)
	defer db.Close()

	w, env := doJSON(t, router, http.MethodGet, "/v1/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	errBody := env["error"].(map[string]any)
	if errBody["code"] != "ROUTE_NOT_FOUND" || errBody["message"] != "Resource route not found" {
		t.Fatalf("unexpected error: %v", errBody)
	}
}
