// Package common provides shared test infrastructure for the integration
// suites: an in-process server environment wired to the SurrealDB
// testcontainer.
package common

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rtirumala2025/investx/internal/app"
	"github.com/rtirumala2025/investx/internal/server"
	"github.com/rtirumala2025/investx/tests/containers"
)

// Env is an in-process test environment: the full application wired to the
// containerized SurrealDB and served through httptest. Each Env gets its own
// database, so parallel suites never collide.
type Env struct {
	t      *testing.T
	App    *app.App
	Server *httptest.Server
	closed bool
}

// NewEnv boots the application against the shared SurrealDB container. The
// market data and gamification clients run in their development fake modes,
// so no outbound network access is needed. Skips the calling test unless
// INVESTX_TEST_DOCKER=true.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	sc := containers.StartSurrealDB(t)

	config := fmt.Sprintf(`
environment = "test"

[server]
host = "127.0.0.1"
port = 0

[storage]
backend = "surrealdb"
address = %q
namespace = "investx_test"
database = %q
username = %q
password = %q

[logging]
level = "error"
`, sc.Address(), containers.DatabaseName(t), containers.SurrealUser, containers.SurrealPass)

	configPath := filepath.Join(t.TempDir(), "investx.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("write test config: %v", err)
	}

	a, err := app.NewApp(configPath)
	if err != nil {
		t.Fatalf("boot application: %v", err)
	}

	ts := httptest.NewServer(server.NewServer(a).Handler())

	return &Env{t: t, App: a, Server: ts}
}

// Cleanup shuts down the HTTP server and the application. Safe to call more
// than once.
func (e *Env) Cleanup() {
	if e == nil || e.closed {
		return
	}
	e.closed = true
	e.Server.Close()
	e.App.Close()
}

// Get issues a GET request as the given user. An empty user sends no
// identity header.
func (e *Env) Get(path, user string) (*http.Response, error) {
	return e.request(http.MethodGet, path, user, "")
}

// Post issues a POST request as the given user with a JSON body.
func (e *Env) Post(path, user, body string) (*http.Response, error) {
	return e.request(http.MethodPost, path, user, body)
}

func (e *Env) request(method, path, user, body string) (*http.Response, error) {
	req, err := http.NewRequest(method, e.Server.URL+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-InvestX-User-ID", user)
	}
	return http.DefaultClient.Do(req)
}

// DecodeJSON decodes the response body into out and closes it.
func (e *Env) DecodeJSON(resp *http.Response, out interface{}) {
	e.t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		e.t.Fatalf("decode response body: %v", err)
	}
}
