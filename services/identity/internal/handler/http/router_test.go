package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/pkg/health"
	"github.com/siapee/siapee/pkg/httputil"
	"github.com/siapee/siapee/pkg/middleware"
	"github.com/siapee/siapee/pkg/pagination"
	"github.com/siapee/siapee/services/identity/internal/auth"
	"github.com/siapee/siapee/services/identity/internal/domain"
	"github.com/siapee/siapee/services/identity/internal/service"
)

// ============================================================================
// Mock Services
// ============================================================================

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Login(ctx context.Context, identifier, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, email string) string {
	args := m.Called(ctx, email)
	return args.String(0)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	args := m.Called(ctx, userID, currentPassword, newPassword)
	return args.Error(0)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) RoleOf(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, input service.UpdateProfileInput) (*domain.User, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockSignupService struct {
	mock.Mock
}

func (m *mockSignupService) Submit(ctx context.Context, input service.SubmitInput) (*domain.SignupRequest, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignupRequest), args.Error(1)
}

func (m *mockSignupService) List(ctx context.Context, status string, limit, offset int) ([]domain.SignupRequest, int, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.SignupRequest), args.Int(1), args.Error(2)
}

func (m *mockSignupService) Decide(ctx context.Context, input service.DecideInput) (*domain.SignupRequest, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SignupRequest), args.Error(1)
}

// ============================================================================
// Test Helpers
// ============================================================================

type testServer struct {
	handler http.Handler
	auth    *mockAuthService
	users   *mockUserService
	signups *mockSignupService
	jwt     *auth.JWTManager
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	ts := &testServer{
		auth:    new(mockAuthService),
		users:   new(mockUserService),
		signups: new(mockSignupService),
		jwt:     auth.NewJWTManager("router-test-secret-at-least-32-bytes", "siapee-identity", 15*time.Minute, time.Hour),
	}
	ts.handler = NewRouter(ts.auth, ts.users, ts.signups, ts.jwt.VerifyAccessToken, health.NewHandler(), RouterConfig{
		ServiceName: "identity-test",
		CORS:        middleware.DefaultCORSConfig(),
		AuthLimiter: limiter,
	}, testLogger())
	t.Cleanup(func() {
		ts.auth.AssertExpectations(t)
		ts.users.AssertExpectations(t)
		ts.signups.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := ts.jwt.GenerateAccessToken(userID)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env httputil.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NotNil(t, env.Error)
	return env.Error.Code
}

// ============================================================================
// Infrastructure Routes
// ============================================================================

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health/live", nil, "").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health/ready", nil, "").Code)

	rec := ts.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCorrelationIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set(middleware.CorrelationHeader, "corr-7")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "corr-7", rec.Header().Get(middleware.CorrelationHeader))
	var env httputil.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "corr-7", env.Error.RequestID)
}

func TestUnsupportedMediaType(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("login=a&password=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, codeUnsupportedMediaType, errorCode(t, rec))
}

func TestLogoutIgnoresContentType(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.auth.On("Logout", mock.Anything, "").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader("refreshToken=rt-1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	ts.auth.AssertExpectations(t)
}

func TestAuthRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 2, nil, testLogger())
	t.Cleanup(limiter.Close)
	ts := newTestServer(t, limiter)

	ts.auth.On("Refresh", mock.Anything, "rt").Return("", apperrors.InvalidToken("invalid refresh token"))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": "rt"}, "").Code)
	}
	rec := ts.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": "rt"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, apperrors.CodeRateLimited, errorCode(t, rec))
}

func TestPaginationHeadersOnList(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.users.On("RoleOf", mock.Anything, "admin-1").Return(domain.RoleAdmin, nil)
	ts.signups.On("List", mock.Anything, "", 2, 2).Return([]domain.SignupRequest{{ID: "a"}, {ID: "b"}}, 5, nil)

	rec := ts.do(t, http.MethodGet, "/signup/requests?page=2&perPage=2", nil, ts.token(t, "admin-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get(pagination.TotalCountHeader))
	assert.Len(t, rec.Header().Values("Link"), 2)
}
