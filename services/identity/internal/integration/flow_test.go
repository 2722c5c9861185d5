//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siapee/siapee/pkg/authclient"
)

type signupRequest struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// TestSignupApprovalFlow submits a signup, approves it as the seeded admin
// and logs in with the new account.
func TestSignupApprovalFlow(t *testing.T) {
	skipIfNotRunning(t)
	adminEmail, adminPassword := adminCredentials(t)
	ctx := context.Background()

	email := uniqueEmail("teacher")
	var submitted signupRequest
	status := postPublic(t, "/signup/request", map[string]string{
		"name":          "Integration Teacher",
		"email":         email,
		"password":      "teacher-pass-1",
		"roleRequested": "TEACHER",
	}, &submitted)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "PENDING", submitted.Status)

	// A second submission for the same email conflicts.
	status = postPublic(t, "/signup/request", map[string]string{
		"name": "Again", "email": email, "password": "teacher-pass-1", "roleRequested": "TEACHER",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	admin := newClient()
	_, err := admin.Login(ctx, adminEmail, adminPassword)
	require.NoError(t, err)

	var pending []signupRequest
	require.Equal(t, http.StatusOK, doJSON(t, admin, http.MethodGet, "/signup/requests?status=PENDING&perPage=200", nil, &pending))

	var decided signupRequest
	status = doJSON(t, admin, http.MethodPost, "/signup/requests/"+submitted.ID+"/decide",
		map[string]any{"approved": true}, &decided)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "APPROVED", decided.Status)

	status = doJSON(t, admin, http.MethodPost, "/signup/requests/"+submitted.ID+"/decide",
		map[string]any{"approved": false}, nil)
	assert.Equal(t, http.StatusConflict, status)

	teacher := newClient()
	sess, err := teacher.Login(ctx, email, "teacher-pass-1")
	require.NoError(t, err)
	assert.Equal(t, "TEACHER", sess.User.Role)

	// Teachers cannot list signup requests.
	assert.Equal(t, http.StatusForbidden, doJSON(t, teacher, http.MethodGet, "/signup/requests", nil, nil))

	user, err := teacher.LoadUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, email, user.Email)

	require.NoError(t, teacher.Logout(ctx))
	assert.Equal(t, authclient.NoSession, teacher.State(ctx))
}

// TestUnknownSignupRequest checks that deciding a missing request is a 404.
func TestUnknownSignupRequest(t *testing.T) {
	skipIfNotRunning(t)
	adminEmail, adminPassword := adminCredentials(t)

	admin := newClient()
	_, err := admin.Login(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	status := doJSON(t, admin, http.MethodPost, "/signup/requests/sr1/decide", map[string]any{"approved": false}, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

// TestInvalidLogin verifies that a wrong password returns 401.
func TestInvalidLogin(t *testing.T) {
	skipIfNotRunning(t)

	status := postPublic(t, "/auth/login", map[string]string{"email": uniqueEmail("nobody"), "password": "whatever-123"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

// TestForgotPasswordIsUniform verifies the response does not reveal whether
// the email exists.
func TestForgotPasswordIsUniform(t *testing.T) {
	skipIfNotRunning(t)

	var out struct {
		OK bool `json:"ok"`
	}
	status := postPublic(t, "/auth/forgot-password", map[string]string{"email": uniqueEmail("ghost")}, &out)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.OK)
}
