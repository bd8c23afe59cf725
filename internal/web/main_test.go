package web

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
	"github.com/inkpress/inkpress/internal/web/handler/handlertest"
)

func newService(t *testing.T) (*Service, *handler.Deps) {
	t.Helper()

	deps, _ := handlertest.New(t)
	deps.Config.Metrics.Enabled = true

	s, err := New(deps)
	require.NoError(t, err)

	return s, deps
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, handler.ErrNilDeps)

	_, err = New(&handler.Deps{})
	require.ErrorIs(t, err, handler.ErrNilDeps)
}

func TestHealth(t *testing.T) {
	s, _ := newService(t)

	status, raw := handlertest.Send(t, s.App, httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))

	s.alive.Store(false)

	status, _ = handlertest.Send(t, s.App, httptest.NewRequest(fiber.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newService(t)

	status, raw := handlertest.Send(t, s.App, httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestUnknownRouteIsJSON(t *testing.T) {
	s, _ := newService(t)

	status, raw := handlertest.Send(t, s.App, httptest.NewRequest(fiber.MethodGet, "/nope", nil))
	require.Equal(t, fiber.StatusNotFound, status)

	var body ErrorResponse
	handlertest.Decode(t, raw, &body)
	assert.NotEmpty(t, body.Error)
}

func TestRoutesAreWired(t *testing.T) {
	s, deps := newService(t)
	token := handlertest.Token(t, deps, models.RoleAdmin)

	tests := []struct {
		name   string
		method string
		target string
		token  string
		want   int
	}{
		{name: "public posts", method: fiber.MethodGet, target: "/api/posts", want: fiber.StatusOK},
		{name: "public tags", method: fiber.MethodGet, target: "/api/tags", want: fiber.StatusOK},
		{name: "dashboard needs token", method: fiber.MethodGet, target: "/api/admin/dashboard", want: fiber.StatusUnauthorized},
		{name: "dashboard", method: fiber.MethodGet, target: "/api/admin/dashboard", token: token, want: fiber.StatusOK},
		{name: "config", method: fiber.MethodGet, target: "/api/admin/config", token: token, want: fiber.StatusOK},
		{name: "me", method: fiber.MethodGet, target: "/api/auth/me", token: token, want: fiber.StatusOK},
		{name: "users", method: fiber.MethodGet, target: "/api/admin/users", token: token, want: fiber.StatusOK},
		{
			name: "sweep without publisher", method: fiber.MethodPost, target: "/api/admin/publisher/sweep",
			token: token, want: fiber.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := handlertest.Do(t, s.App, tt.method, tt.target, tt.token, nil)
			assert.Equal(t, tt.want, status, string(raw))
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s, _ := newService(t)
	s.cfg.Webserver.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.Serve(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestLocalPrefix(t *testing.T) {
	tests := []struct {
		name      string
		publicURL string
		baseURL   string
		want      string
		wantOK    bool
	}{
		{name: "default", want: "/uploads", wantOK: true},
		{name: "path", publicURL: "/media/", want: "/media", wantOK: true},
		{name: "same host", publicURL: "http://localhost:8080/uploads", baseURL: "http://localhost:8080", want: "/uploads", wantOK: true},
		{name: "other host", publicURL: "https://cdn.example.com/uploads", baseURL: "http://localhost:8080"},
		{name: "host root", publicURL: "http://localhost:8080/", baseURL: "http://localhost:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := localPrefix(tt.publicURL, tt.baseURL)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
