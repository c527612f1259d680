package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"intake_server/pkg/apperr"
	"intake_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(Recover())
	app.Use(RequestID())
	return app
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestErrorHandler(t *testing.T) {
	app := newTestApp()
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperr.MissingField("from_address")
	})
	app.Get("/wrapped", func(c *fiber.Ctx) error {
		return apperr.DatabaseError("save customer", io.ErrUnexpectedEOF)
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.ErrMethodNotAllowed
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return io.EOF
	})

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/missing", http.StatusBadRequest, apperr.CodeMissingField},
		{"/wrapped", http.StatusInternalServerError, apperr.CodeDatabaseError},
		{"/fiber", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"/plain", http.StatusInternalServerError, apperr.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeError(t, resp)
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestRequestID(t *testing.T) {
	app := newTestApp()
	var fromContext string
	app.Get("/", func(c *fiber.Ctx) error {
		fromContext = logger.RequestIDFromContext(c.UserContext())
		return c.SendStatus(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "req-42", fromContext)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRecover(t *testing.T) {
	app := newTestApp()
	app.Get("/", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, apperr.CodeInternalError, decodeError(t, resp).Error.Code)
}

func TestRateLimiter(t *testing.T) {
	app := newTestApp()
	app.Use(NewRateLimiter(60, 2).Handler())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	var statuses []int
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestRequireJSON(t *testing.T) {
	app := newTestApp()
	app.Use(RequireJSON(), MaxBodySize(64))
	app.Post("/", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{"json", "application/json; charset=utf-8", `{"a":1}`, http.StatusOK},
		{"no body", "", "", http.StatusOK},
		{"missing content type", "", `{"a":1}`, http.StatusBadRequest},
		{"form", "text/plain", "a=1", http.StatusUnsupportedMediaType},
		{"too large", "application/json", `{"a":"` + strings.Repeat("x", 100) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
