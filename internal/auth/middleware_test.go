package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

func newTestApp(a *RequestAuthenticator) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
		},
	})
	echo := func(c *fiber.Ctx) error {
		identity, ok := CallerFromContext(c.UserContext())
		if !ok {
			return c.SendString("anonymous")
		}
		local, _ := CallerFromFiber(c)
		if local != identity {
			return fiber.ErrInternalServerError
		}
		return c.SendString(identity.Subject + "/" + string(identity.Role))
	}
	app.Get("/admin", a.Require(RoleAdmin), echo)
	app.Get("/user", a.Require(RoleUser), echo)
	app.Get("/open", a.Optional(), echo)
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRequestAuthenticatorLocal(t *testing.T) {
	v := newTestValidator()
	a := NewRequestAuthenticator(v, NewLocalResolver(v, nil), nil)
	app := newTestApp(a)

	admin := "Bearer " + adminToken(t, time.Now().Add(time.Hour))
	user := "Bearer " + userToken(t, time.Now().Add(time.Hour))
	expired := "Bearer " + adminToken(t, time.Now().Add(-time.Hour))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"admin on admin route", "/admin", admin, http.StatusOK, "alice@example.com/ADMIN"},
		{"user on user route", "/user", user, http.StatusOK, "bob@example.com/USER"},
		{"user on admin route", "/admin", user, http.StatusForbidden, ""},
		{"missing token on protected route", "/admin", "", http.StatusForbidden, ""},
		{"expired token", "/admin", expired, http.StatusForbidden, ""},
		{"garbage token", "/user", "Bearer abc.def.ghi", http.StatusForbidden, ""},
		{"blank bearer", "/user", "Bearer ", http.StatusForbidden, ""},
		{"malformed header", "/user", "Basic dXNlcjpwYXNz", http.StatusBadRequest, ""},
		{"open route without token", "/open", "", http.StatusOK, "anonymous"},
		{"open route with token", "/open", admin, http.StatusOK, "alice@example.com/ADMIN"},
		{"open route with malformed header", "/open", "Token xyz", http.StatusOK, "anonymous"},
		{"open route with expired token", "/open", expired, http.StatusOK, "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, tt.path, tt.header)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, body)
			}
		})
	}
}

func TestForbiddenBodyIsUniform(t *testing.T) {
	v := newTestValidator()
	app := newTestApp(NewRequestAuthenticator(v, NewLocalResolver(v, nil), nil))

	_, noToken := doRequest(t, app, "/admin", "")
	_, badToken := doRequest(t, app, "/admin", "Bearer nope")
	_, wrongRole := doRequest(t, app, "/admin", "Bearer "+userToken(t, time.Now().Add(time.Hour)))

	assert.Equal(t, noToken, badToken)
	assert.Equal(t, noToken, wrongRole)
	assert.Contains(t, noToken, `"FORBIDDEN"`)
}

func TestRemoteAuthorityErrorIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := newTestValidator()
	remote := NewRemoteResolver(srv.URL, time.Second, srv.Client(), nil, nil)
	a := NewRequestAuthenticator(v, remote, nil)
	token := adminToken(t, time.Now().Add(time.Hour))

	_, err := remote.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrIdentityAuthorityRejected)

	result, err := a.Authenticate(context.Background(), "Bearer "+token, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, result.State)
	assert.Nil(t, result.Identity)
	assert.ErrorIs(t, result.Reason, ErrIdentityAuthorityRejected)

	status, _ := doRequest(t, newTestApp(a), "/admin", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAuthenticateStates(t *testing.T) {
	v := newTestValidator()
	a := NewRequestAuthenticator(v, NewLocalResolver(v, nil), nil)
	token := userToken(t, time.Now().Add(time.Hour))

	result, err := a.Authenticate(context.Background(), "", RoleNone)
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, result.State)

	result, err = a.Authenticate(context.Background(), "Bearer "+token, RoleUser)
	require.NoError(t, err)
	assert.Equal(t, StateAllowed, result.State)
	assert.Equal(t, "bob@example.com", result.Identity.Subject)

	result, err = a.Authenticate(context.Background(), "Bearer "+token, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, result.State)
	assert.ErrorIs(t, result.Reason, ErrRoleMismatch)

	_, err = a.Authenticate(context.Background(), "Digest abc", RoleUser)
	assert.ErrorIs(t, err, ErrMalformedAuthorization)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header         string
		wantToken      string
		wantPresent    bool
		wantWellFormed bool
	}{
		{"", "", false, true},
		{"Bearer", "", false, true},
		{"Bearer    ", "", false, true},
		{"Bearer abc", "abc", true, true},
		{"bearer abc ", "abc", true, true},
		{"Basic abc", "", false, false},
		{"abc", "", false, false},
	}
	for _, tt := range tests {
		token, present, wellFormed := bearerToken(tt.header)
		assert.Equal(t, tt.wantToken, token, tt.header)
		assert.Equal(t, tt.wantPresent, present, tt.header)
		assert.Equal(t, tt.wantWellFormed, wellFormed, tt.header)
	}
}
