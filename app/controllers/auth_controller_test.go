package controllers

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/internal/pkg/session"
)

func newAuthApp(t *testing.T, users *fakeUsers, userID uint) *fiber.App {
	t.Helper()
	session.SetSessionStore(fibersession.New())
	ac := NewAuthController(users, 30)
	ac.now = func() time.Time { return testNow }
	return newTestApp(userID, models.ROLE_USER, func(app *fiber.App) {
		app.Post("/auth/register", ac.HandleRegister)
		app.Post("/auth/login", ac.HandleLogin)
		app.Post("/auth/logout", ac.HandleLogout)
		app.Get("/auth/me", ac.HandleMe)
	})
}

func existingUser(t *testing.T) *models.User {
	t.Helper()
	u, err := models.CreateUser("ana", "ana@uzeed.cl", "secret-password", models.ProfileTypeViewer)
	require.NoError(t, err)
	u.ID = 1
	return u
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name        string
		profileType string
		wantPrice   interface{}
		wantTrial   bool
	}{
		{"viewer", "", nil, false},
		{"creator gets default price", models.ProfileTypeCreator, float64(2500), false},
		{"professional gets default price", models.ProfileTypeProfessional, float64(2500), false},
		{"shop gets a trial", models.ProfileTypeShop, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newFakeUsers()
			app := newAuthApp(t, users, 0)

			resp, body := doJSON(t, app, "POST", "/auth/register", map[string]string{
				"email":       "New@Uzeed.cl",
				"password":    "long-enough",
				"username":    "nueva",
				"profileType": tt.profileType,
			})
			require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
			assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))

			user := body["user"].(map[string]interface{})
			assert.Equal(t, "new@uzeed.cl", user["email"])
			assert.Equal(t, tt.wantPrice, user["subscriptionPrice"])
			_, hasHash := user["passwordHash"]
			assert.False(t, hasHash)

			stored, err := users.GetByUsername("nueva")
			require.NoError(t, err)
			if tt.wantTrial {
				require.NotNil(t, stored.ShopTrialEndsAt)
				assert.Equal(t, testNow.AddDate(0, 0, 30), *stored.ShopTrialEndsAt)
			} else {
				assert.Nil(t, stored.ShopTrialEndsAt)
			}
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	users := newFakeUsers(existingUser(t))
	app := newAuthApp(t, users, 0)

	resp, body := doJSON(t, app, "POST", "/auth/register", map[string]string{
		"email": "ana@uzeed.cl", "password": "long-enough", "username": "otra",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "EMAIL_IN_USE", body["error"])

	resp, body = doJSON(t, app, "POST", "/auth/register", map[string]string{
		"email": "otra@uzeed.cl", "password": "long-enough", "username": "ana",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "USERNAME_IN_USE", body["error"])
}

func TestRegisterValidation(t *testing.T) {
	app := newAuthApp(t, newFakeUsers(), 0)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "nope", "password": "long-enough", "username": "abc"}},
		{"short password", map[string]string{"email": "a@b.cl", "password": "short", "username": "abc"}},
		{"unknown profile type", map[string]string{"email": "a@b.cl", "password": "long-enough", "username": "abc", "profileType": "ADMIN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, "POST", "/auth/register", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION", body["error"])
		})
	}
}

func TestLogin(t *testing.T) {
	users := newFakeUsers(existingUser(t))
	app := newAuthApp(t, users, 0)

	resp, body := doJSON(t, app, "POST", "/auth/login", map[string]string{"email": "ana@uzeed.cl", "password": "wrong-password"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", body["error"])

	resp, body = doJSON(t, app, "POST", "/auth/login", map[string]string{"email": "nadie@uzeed.cl", "password": "secret-password"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", body["error"])

	resp, body = doJSON(t, app, "POST", "/auth/login", map[string]string{"email": "ANA@uzeed.cl", "password": "secret-password"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana", body["user"].(map[string]interface{})["username"])
	assert.Equal(t, tptr(testNow), users.byID[1].LastLoginAt)
}

func TestMe(t *testing.T) {
	users := newFakeUsers(existingUser(t))

	_, body := doJSON(t, newAuthApp(t, users, 0), "GET", "/auth/me", nil)
	assert.Nil(t, body["user"])

	resp, body := doJSON(t, newAuthApp(t, users, 1), "GET", "/auth/me", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana", body["user"].(map[string]interface{})["username"])
}

func TestLogout(t *testing.T) {
	resp, body := doJSON(t, newAuthApp(t, newFakeUsers(), 1), "POST", "/auth/logout", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
}
