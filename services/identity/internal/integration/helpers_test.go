//go:build integration

// Package integration drives a running identity service over HTTP. Run with
// `go test -tags integration ./services/identity/internal/integration/...`
// after starting the service and seeding the admin account.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/siapee/siapee/pkg/authclient"
	"github.com/siapee/siapee/pkg/httpclient"
)

// baseURL returns the address of the service under test.
func baseURL() string {
	if v := os.Getenv("IDENTITY_URL"); v != "" {
		return v
	}
	return "http://localhost:8010"
}

// uniqueEmail generates a unique email address to avoid test collisions.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@test.siapee.example", prefix, time.Now().UnixNano(), rand.Intn(100000))
}

// skipIfNotRunning performs a quick health check against the service.
// If the service is unreachable, the test is skipped (not failed).
func skipIfNotRunning(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("identity service not reachable at %s: %v", baseURL(), err)
	}
	resp.Body.Close()
}

// adminCredentials returns the seeded admin login, skipping when unset.
func adminCredentials(t *testing.T) (string, string) {
	t.Helper()
	email, password := os.Getenv("SEED_ADMIN_EMAIL"), os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		t.Skip("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}
	return email, password
}

func newClient() *authclient.Client {
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return authclient.New(baseURL(), httpclient.New(cfg), authclient.NewMemoryStore(), logger)
}

// doJSON sends an authenticated request through the client and decodes the
// JSON response into out when it is non-nil.
func doJSON(t *testing.T, c *authclient.Client, method, path string, body, out any) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL()+path, bytes.NewReader(payload))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// postPublic sends an unauthenticated JSON request.
func postPublic(t *testing.T, path string, body, out any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(baseURL()+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
