package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/authgate/internal/app"
	"github.com/templui/authgate/internal/config"
	"github.com/templui/authgate/internal/db/dbtest"
	"github.com/templui/authgate/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	app     *app.App
	handler http.Handler
	clock   *mutableClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppName:                  "authgate",
		AppEnv:                   "development",
		AppURL:                   "http://localhost:3000",
		JWTSecret:                "test-secret",
		JWTAlgorithm:             "HS256",
		AccessTokenExpiry:        30 * time.Minute,
		TokenPasswordResetExpiry: 10 * time.Minute,
		AccessTokenStoreCheck:    true,
		NotifyTimeout:            time.Second,
	}
	clock := &mutableClock{now: time.Now().UTC().Truncate(time.Second)}

	a, err := app.Wire(cfg, dbtest.New(t), clock, bcrypt.MinCost)
	require.NoError(t, err)
	t.Cleanup(a.ResetService.Wait)

	return &testServer{app: a, handler: SetupRoutes(a), clock: clock}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header ...string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (s *testServer) register(t *testing.T, username, email, password string) {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/register/", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "User registered successfully.", body["message"])
}

func (s *testServer) setStatus(t *testing.T, username string, status model.UserStatus) {
	t.Helper()
	require.NoError(t, s.app.UserService.SetStatus(context.Background(), username, status))
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/login/", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, code, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "test_user", "test@test.com", "pw_test_123")

	s.login(t, "test_user", "pw_test_123")
	s.login(t, "test@test.com", "pw_test_123")

	code, unknown := s.do(t, http.MethodPost, "/login/", map[string]string{"username": "ghost", "password": "pw_test_123"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, wrong := s.do(t, http.MethodPost, "/login/", map[string]string{"username": "test_user", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Equal(t, "Incorrect username and password combination", unknown["detail"])
	assert.Equal(t, unknown, wrong)
}

func TestLogin_StatusReasons(t *testing.T) {
	s := newTestServer(t)

	reasons := map[model.UserStatus]string{
		model.UserStatusPending:  "Pending user.",
		model.UserStatusBanned:   "Banned user.",
		model.UserStatusDeleted:  "Deleted user.",
		model.UserStatusInactive: "Inactive user.",
	}
	for status, reason := range reasons {
		t.Run(status.String(), func(t *testing.T) {
			username := "user_" + status.String()
			s.register(t, username, username+"@test.com", "pw_test_123")
			s.setStatus(t, username, status)

			code, body := s.do(t, http.MethodPost, "/login/", map[string]string{"username": username, "password": "pw_test_123"})
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, reason, body["detail"])
		})
	}
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "new_user", "newuser@test.com", "new_password")

	code, body := s.do(t, http.MethodPost, "/register/", map[string]string{
		"username": "new_user", "email": "other@test.com", "password": "new_password",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["detail"], "already exists")

	code, body = s.do(t, http.MethodPost, "/register/", map[string]string{
		"username": "another_user", "email": "newuser@test.com", "password": "new_password",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["detail"], "already exists")

	code, body = s.do(t, http.MethodPost, "/register/", map[string]string{
		"username": "new_user", "email": "invalid_email", "password": "new_password",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, body["fields"])
}

func TestRegister_StoreFault(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.app.DB.Close())

	code, body := s.do(t, http.MethodPost, "/register/", map[string]string{
		"username": "new_user", "email": "newuser@test.com", "password": "new_password",
	})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal Server Error", body["detail"])
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/login/", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestValidateTokenAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "test_user", "test@test.com", "pw_test_123")
	token := s.login(t, "test_user", "pw_test_123")

	code, body := s.do(t, http.MethodPost, "/validate-token/", map[string]string{"token": token})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Token is valid.", body["message"])

	code, body = s.do(t, http.MethodPost, "/logout/", map[string]string{"token": token})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Logged out successfully.", body["message"])

	code, body = s.do(t, http.MethodPost, "/validate-token/", map[string]string{"token": token})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired token", body["detail"])

	code, body = s.do(t, http.MethodPost, "/logout/", map[string]string{"token": token})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid token.", body["detail"])

	code, body = s.do(t, http.MethodPost, "/logout/", map[string]string{"token": "unknown-token"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid token.", body["detail"])
}

func TestValidateToken_Expired(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "test_user", "test@test.com", "pw_test_123")
	token := s.login(t, "test_user", "pw_test_123")

	s.clock.Advance(31 * time.Minute)

	code, body := s.do(t, http.MethodPost, "/validate-token/", map[string]string{"token": token})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired token", body["detail"])
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "test_user", "test@test.com", "pw_test_123")
	token := s.login(t, "test_user", "pw_test_123")

	code, body := s.do(t, http.MethodGet, "/me/", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "test_user", body["username"])
	assert.Equal(t, "test@test.com", body["email"])
	assert.Equal(t, "active", body["status"])

	code, body = s.do(t, http.MethodGet, "/me/", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Could not validate credentials.", body["detail"])

	s.do(t, http.MethodPost, "/logout/", map[string]string{"token": token})
	code, _ = s.do(t, http.MethodGet, "/me/", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "test_user", "test@test.com", "pw_test_123")

	code, known := s.do(t, http.MethodPost, "/forgotten-password/", map[string]string{"email": "test@test.com"})
	assert.Equal(t, http.StatusOK, code)
	code, unknown := s.do(t, http.MethodPost, "/forgotten-password/", map[string]string{"email": "nonexistent@test.com"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "If your email is registered, you will receive a password reset link.", known["message"])
	assert.Equal(t, known, unknown)

	// Development mode only logs the link, so issue a token directly
	user, err := s.app.UserService.ByID(context.Background(), userID(t, s, "test_user", "pw_test_123"))
	require.NoError(t, err)
	token, err := s.app.TokenManager.IssueResetToken(context.Background(), user.ID, 10*time.Minute)
	require.NoError(t, err)

	code, body := s.do(t, http.MethodPost, "/reset-password/", map[string]string{"token": token, "password": "brand_new_pw"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Password reset successfully.", body["message"])

	s.login(t, "test_user", "brand_new_pw")

	code, body = s.do(t, http.MethodPost, "/reset-password/", map[string]string{"token": token, "password": "another_pw_1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired token", body["detail"])

	code, body = s.do(t, http.MethodPost, "/reset-password/", map[string]string{"token": "made-up", "password": "another_pw_1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired token", body["detail"])
}

func TestForgottenPassword_StoreFault(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.app.DB.Close())

	code, body := s.do(t, http.MethodPost, "/forgotten-password/", map[string]string{"email": "test@test.com"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal Server Error", body["detail"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	require.NoError(t, s.app.DB.Close())
	code, _ = s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func userID(t *testing.T, s *testServer, username, password string) string {
	t.Helper()
	token := s.login(t, username, password)
	code, body := s.do(t, http.MethodGet, "/me/", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, code)
	id, _ := body["id"].(string)
	return id
}
