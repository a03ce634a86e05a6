package controllers

import (
	"errors"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/feed"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

// ServiceController serves the services directory and profile ratings
type ServiceController struct {
	feed       FeedService
	users      repository.UserRepository
	services   repository.ServiceRepository
	invalidate func(profileID uint)
}

func NewServiceController(svc FeedService, repos *repository.Repositories) *ServiceController {
	return &ServiceController{
		feed:       svc,
		users:      repos.User,
		services:   repos.Service,
		invalidate: feed.InvalidateRating,
	}
}

// HandleServices lists professionals and shops, nearest first when lat/lng are given.
func (sc *ServiceController) HandleServices(c *fiber.Ctx) error {
	profiles, err := sc.feed.Services(c.UserContext(), feed.DirectoryQuery{
		Search: strings.TrimSpace(c.Query("q")),
		Types:  feed.SplitList(c.Query("types")),
		Lat:    queryFloat(c, "lat"),
		Lng:    queryFloat(c, "lng"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"profiles": profiles})
}

type ratingRequest struct {
	Rating float64 `json:"rating"`
}

// HandleRate stores the caller's 1..5 rating of a profile, replacing any earlier one.
func (sc *ServiceController) HandleRate(c *fiber.Ctx) error {
	profileID, ok := paramID(c, "userId")
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "USER_NOT_FOUND")
	}
	var req ratingRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_RATING")
	}
	if req.Rating < 1 || req.Rating > 5 || req.Rating != math.Trunc(req.Rating) {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_RATING")
	}
	if _, err := sc.users.GetByID(profileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "USER_NOT_FOUND")
		}
		return err
	}

	rating := &models.ServiceRating{
		ProfileID: profileID,
		RaterID:   usercontext.GetUserID(c),
		Rating:    int(req.Rating),
	}
	if err := sc.services.UpsertRating(rating); err != nil {
		return err
	}
	sc.invalidate(profileID)
	return c.JSON(fiber.Map{"rating": rating})
}
