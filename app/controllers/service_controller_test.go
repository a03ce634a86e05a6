package controllers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/feed"
)

func newServiceApp(feedSvc *fakeFeed, services *fakeServices, invalidated *[]uint, userID uint) *fiber.App {
	repos := &repository.Repositories{
		User:    newFakeUsers(&models.User{ID: 4, Username: "spa", ProfileType: models.ProfileTypeShop}),
		Service: services,
	}
	sc := NewServiceController(feedSvc, repos)
	sc.invalidate = func(profileID uint) { *invalidated = append(*invalidated, profileID) }
	return newTestApp(userID, models.ROLE_USER, func(app *fiber.App) {
		app.Get("/services", sc.HandleServices)
		app.Post("/services/:userId/rating", sc.HandleRate)
	})
}

func TestServicesDirectory(t *testing.T) {
	card := feed.ProfileCard{}
	card.Username = "spa"
	svc := &fakeFeed{cards: []feed.ProfileCard{card}}
	var invalidated []uint

	resp, body := doJSON(t, newServiceApp(svc, &fakeServices{}, &invalidated, 0), "GET", "/services?q=masaje&lat=-33.45&lng=-70.66", nil)

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["profiles"], 1)
	assert.Equal(t, "masaje", svc.lastDirectory.Search)
	require.NotNil(t, svc.lastDirectory.Lat)
	assert.InDelta(t, -33.45, *svc.lastDirectory.Lat, 1e-9)
}

func TestRateProfile(t *testing.T) {
	services := &fakeServices{}
	var invalidated []uint
	app := newServiceApp(&fakeFeed{}, services, &invalidated, 9)

	resp, body := doJSON(t, app, "POST", "/services/4/rating", map[string]interface{}{"rating": 4})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4), body["rating"].(map[string]interface{})["rating"])

	resp, _ = doJSON(t, app, "POST", "/services/4/rating", map[string]interface{}{"rating": 2})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, map[[2]uint]int{{4, 9}: 2}, services.ratings)
	assert.Equal(t, []uint{4, 4}, invalidated)
}

func TestRateProfileRejections(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"zero", "/services/4/rating", map[string]interface{}{"rating": 0}, fiber.StatusBadRequest, "INVALID_RATING"},
		{"six", "/services/4/rating", map[string]interface{}{"rating": 6}, fiber.StatusBadRequest, "INVALID_RATING"},
		{"fraction", "/services/4/rating", map[string]interface{}{"rating": 3.5}, fiber.StatusBadRequest, "INVALID_RATING"},
		{"missing", "/services/4/rating", map[string]interface{}{}, fiber.StatusBadRequest, "INVALID_RATING"},
		{"unknown profile", "/services/40/rating", map[string]interface{}{"rating": 3}, fiber.StatusNotFound, "USER_NOT_FOUND"},
		{"bad id", "/services/x/rating", map[string]interface{}{"rating": 3}, fiber.StatusNotFound, "USER_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			services := &fakeServices{}
			var invalidated []uint
			app := newServiceApp(&fakeFeed{}, services, &invalidated, 9)

			resp, body := doJSON(t, app, "POST", tt.path, tt.body)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body["error"])
			assert.Empty(t, services.ratings)
			assert.Empty(t, invalidated)
		})
	}
}
