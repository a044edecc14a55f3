//go:build integration

package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/backoffice/internal/admin/app"
)

/*
 * Common constants and helpers for the admin service end-to-end tests. Each
 * test gets its own database and Redis container, with the service served
 * over a real listener.
 */

const (
	redisImage = "redis:7-alpine"

	adminMobile   = "+61400000000"
	adminPassword = "Admin123!"
)

type envelope struct {
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Success bool            `json:"success"`
	Total   int64           `json:"total"`
	Data    json.RawMessage `json:"data"`
}

type options struct {
	failRetry      int
	failRetryWait  time.Duration
	loginPerMinute int
}

func defaultOptions() options {
	return options{failRetry: 3, failRetryWait: time.Minute, loginPerMinute: 1000}
}

// setupRedis starts a Redis container and returns its URL.
func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)
	return endpoint
}

// setupAdmin boots the admin service against a fresh database and the given
// Redis, and returns the base URL.
func setupAdmin(t *testing.T, redisURL string, opts options) string {
	t.Helper()
	dir := t.TempDir()

	writeConfig(t, dir, fmt.Sprintf(`
env: test
log:
  level: error
database:
  file: %s
pepper_file: %s
cache:
  type: redis
  redis_url: %s
jwt:
  secret: e2e-secret
  ttl: 1h
login:
  fail_retry: %d
  fail_retry_wait: %s
ratelimit:
  login_per_minute: %d
bootstrap:
  admin_mobile: "%s"
  admin_password: "%s"
`, filepath.Join(dir, "admin.db"), filepath.Join(dir, "pepper"), redisURL,
		opts.failRetry, opts.failRetryWait, opts.loginPerMinute, adminMobile, adminPassword))

	cfg, err := app.LoadConfig()
	require.NoError(t, err)

	application, err := app.New(context.Background(), cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, application.Shutdown())
	})
	return srv.URL
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	path := filepath.Join(dir, "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv(app.ConfigFileEnv, path)
}

// call sends a JSON request and decodes the envelope.
func call(t *testing.T, method, url, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

// login returns a token for the account, failing the test otherwise.
func login(t *testing.T, baseURL, mobile, password string) string {
	t.Helper()

	resp, env := call(t, http.MethodPost, baseURL+"/api/login", "", map[string]string{
		"mobile":   mobile,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Msg)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}
