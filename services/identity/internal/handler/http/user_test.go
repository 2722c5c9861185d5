package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/services/identity/internal/domain"
	"github.com/siapee/siapee/services/identity/internal/service"
)

func TestGetProfile(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.users.On("GetProfile", mock.Anything, "user-1").Return(&domain.User{
		ID: "user-1", Name: "Alice", Email: "a@a.com", Role: domain.RoleTeacher, PasswordHash: "secret-hash",
	}, nil)

	rec := ts.do(t, http.MethodGet, "/users/me", nil, ts.token(t, "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"user-1","name":"Alice","email":"a@a.com","role":"TEACHER"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret-hash")
}

func TestGetProfile_Unauthenticated(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", apperrors.CodeMissingAuthorization},
		{"wrong scheme", "Basic abc", apperrors.CodeMalformedAuthorization},
		{"empty bearer", "Bearer ", apperrors.CodeMalformedAuthorization},
		{"garbage token", "Bearer not-a-jwt", apperrors.CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestGetProfile_UserGone(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.users.On("GetProfile", mock.Anything, "user-1").Return(nil, apperrors.NotFound("user", "user-1"))

	rec := ts.do(t, http.MethodGet, "/users/me", nil, ts.token(t, "user-1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.users.On("UpdateProfile", mock.Anything, "user-1", mock.MatchedBy(func(in service.UpdateProfileInput) bool {
		return in.Name == nil && in.Phone != nil && *in.Phone == "555-0100" && in.AvatarURL == nil
	})).Return(&domain.User{ID: "user-1", Name: "Alice", Email: "a@a.com", Role: domain.RoleTeacher, Phone: "555-0100"}, nil)

	rec := ts.do(t, http.MethodPut, "/users/me", map[string]string{"phone": "555-0100"}, ts.token(t, "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"user-1","name":"Alice","email":"a@a.com","role":"TEACHER","phone":"555-0100"}`, rec.Body.String())
}

func TestUpdateProfile_RoleIsIgnored(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.users.On("UpdateProfile", mock.Anything, "user-1", service.UpdateProfileInput{}).
		Return(&domain.User{ID: "user-1", Role: domain.RoleTeacher}, nil)

	rec := ts.do(t, http.MethodPut, "/users/me", map[string]string{"role": "ADMIN"}, ts.token(t, "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"TEACHER"`)
}
