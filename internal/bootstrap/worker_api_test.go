package bootstrap

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake_server/config"
)

// Without DATABASE_URL, REDIS_URL and OPENAI_API_KEY the API runs pattern-only and stateless.
func TestNewApp_PatternOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	deps, cleanup, err := NewDependencies(cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, deps.CustomerRepo)
	assert.Nil(t, deps.LLMClient)
	assert.Nil(t, deps.Producer)

	app := NewAPI(cfg, deps)

	t.Run("sync intake", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inbound/email",
			strings.NewReader(`{"from": "buyer@nordicfish.no", "subject": "Purchase order", "body": "- 200kg cod loins"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Contains(t, string(body), `"intent":"ORDER"`)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("async intake without redis", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inbound/email/async",
			strings.NewReader(`{"from": "buyer@nordicfish.no"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("health", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
