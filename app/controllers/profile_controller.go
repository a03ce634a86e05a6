package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/uzeed/uzeed/internal/pkg/feed"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

// ProfileController serves the public profile directory and profile pages
type ProfileController struct {
	feed      FeedService
	countView func(profileID uint) error
}

func NewProfileController(svc FeedService) *ProfileController {
	return &ProfileController{feed: svc}
}

// WithViewCounter records a view for every profile page served to someone
// other than its owner.
func (pc *ProfileController) WithViewCounter(fn func(profileID uint) error) *ProfileController {
	pc.countView = fn
	return pc
}

func (pc *ProfileController) HandleProfiles(c *fiber.Ctx) error {
	profiles, err := pc.feed.Profiles(c.UserContext(), feed.DirectoryQuery{
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

// HandleProfile shows one profile. SHOP profiles without a plan or trial are
// hidden from everyone but their owner.
func (pc *ProfileController) HandleProfile(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND")
	}
	view, err := pc.feed.Profile(c.UserContext(), username, usercontext.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrProfileNotFound):
			return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND")
		case errors.Is(err, feed.ErrPlanExpired):
			return errorJSON(c, fiber.StatusForbidden, "PLAN_EXPIRED")
		}
		return err
	}
	if pc.countView != nil && !view.IsOwner {
		if err := pc.countView(view.Profile.ID); err != nil {
			log.Warnf("[Profiles] count view of %d failed: %v", view.Profile.ID, err)
		}
	}
	return c.JSON(view)
}
