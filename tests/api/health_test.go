package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtirumala2025/investx/tests/common"
)

func TestHealthEndpoint(t *testing.T) {
	env := common.NewEnv(t)
	defer env.Cleanup()

	resp, err := env.Get("/api/health", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	env.DecodeJSON(resp, &result)
	assert.Equal(t, "ok", result["status"])
	// The store check pings the real database, not a stub.
	assert.Equal(t, "ok", result["store"])
}

func TestVersionEndpoint(t *testing.T) {
	env := common.NewEnv(t)
	defer env.Cleanup()

	resp, err := env.Get("/api/version", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	env.DecodeJSON(resp, &result)
	assert.NotEmpty(t, result["version"])
}

func TestConfigEndpoint(t *testing.T) {
	env := common.NewEnv(t)
	defer env.Cleanup()

	resp, err := env.Get("/api/config", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	env.DecodeJSON(resp, &result)
	assert.Equal(t, "surrealdb", result["storage_backend"])
	assert.Equal(t, "test", result["environment"])
	// No API keys in the test environment, so both clients run as fakes.
	assert.Equal(t, false, result["marketdata_configured"])
	assert.Equal(t, false, result["gamify_configured"])
}
