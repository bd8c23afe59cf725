// Package handlertest wires handler dependencies against an in-memory database for handler tests.
package handlertest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/db/testdb"
	"github.com/inkpress/inkpress/internal/web/handler"
)

// Secret signs the tokens of the test JWT manager.
const Secret = "handler-test-secret-handler-test-secret"

// Revalidation is one recorded notifier call.
type Revalidation struct {
	Slug     string
	Language string
}

// Notifier records revalidation requests.
type Notifier struct {
	mu    sync.Mutex
	calls []Revalidation
}

// Revalidate implements handler.Revalidator.
func (n *Notifier) Revalidate(slug, language string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, Revalidation{Slug: slug, Language: language})
}

// Calls returns a copy of the recorded requests.
func (n *Notifier) Calls() []Revalidation {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]Revalidation(nil), n.calls...)
}

// New returns handler dependencies backed by a fresh database and the recording notifier.
func New(t *testing.T) (*handler.Deps, *Notifier) {
	t.Helper()

	cfg := &config.Config{
		DevMode: true,
		Auth: config.Auth{
			JWTSecret:  Secret,
			TOTPIssuer: "inkpress-test",
		},
	}

	jwtManager, err := auth.NewJWTManager(cfg.Auth)
	require.NoError(t, err)

	db := testdb.New(t)
	notifier := &Notifier{}

	return &handler.Deps{
		Config:    cfg,
		DB:        db,
		JWT:       jwtManager,
		Users:     auth.NewLocalProvider(db),
		Notifier:  notifier,
		Validator: handler.NewValidator(),
	}, notifier
}

// App creates a fiber app and initialises the given handler services on it.
func App(t *testing.T, deps *handler.Deps, services ...handler.Service) *fiber.App {
	t.Helper()

	app := fiber.New()
	for _, s := range services {
		require.NoError(t, s.Init(app, deps))
	}

	return app
}

// Token creates a user with role and returns a bearer token for it.
func Token(t *testing.T, deps *handler.Deps, role models.Role) string {
	t.Helper()

	user, err := deps.Users.CreateUser(string(role)+"@example.com", "password-"+string(role), "Test "+string(role), role)
	require.NoError(t, err)

	token, _, err := deps.JWT.GenerateToken(user)
	require.NoError(t, err)

	return token
}

// Do sends a request with an optional JSON body and bearer token and returns status and body.
func Do(t *testing.T, app *fiber.App, method, target, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)

			reader = strings.NewReader(string(raw))
		}
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	return Send(t, app, req)
}

// Send runs req against app and returns status and body.
func Send(t *testing.T, app *fiber.App, req *http.Request) (int, []byte) {
	t.Helper()

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, raw
}

// Decode unmarshals a response body into dst.
func Decode(t *testing.T, raw []byte, dst any) {
	t.Helper()

	require.NoError(t, json.Unmarshal(raw, dst), string(raw))
}
