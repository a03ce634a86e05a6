package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/internal/pkg/feed"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

// FeedService is the read side of the content service.
type FeedService interface {
	List(ctx context.Context, q feed.Query) (*feed.Page, error)
	Profile(ctx context.Context, username string, viewerID uint) (*feed.ProfileView, error)
	Profiles(ctx context.Context, q feed.DirectoryQuery) ([]feed.ProfileCard, error)
	Services(ctx context.Context, q feed.DirectoryQuery) ([]feed.ProfileCard, error)
	Dashboard(ctx context.Context, userID uint) (*feed.Dashboard, error)
}

// FeedController serves the post feeds and the signed in dashboard
type FeedController struct {
	feed FeedService
}

func NewFeedController(svc FeedService) *FeedController {
	return &FeedController{feed: svc}
}

// HandleExplore lists posts of every media type.
func (fc *FeedController) HandleExplore(c *fiber.Ctx) error {
	return fc.list(c, "")
}

// HandlePosts is the canonical feed; ?type=IMAGE|VIDEO narrows it.
func (fc *FeedController) HandlePosts(c *fiber.Ctx) error {
	return fc.list(c, c.Query("type"))
}

func (fc *FeedController) HandleImages(c *fiber.Ctx) error {
	return fc.list(c, models.MediaTypeImage)
}

func (fc *FeedController) HandleVideos(c *fiber.Ctx) error {
	return fc.list(c, models.MediaTypeVideo)
}

func (fc *FeedController) list(c *fiber.Ctx, mediaType string) error {
	q := feed.Query{
		ViewerID:   usercontext.GetUserID(c),
		Page:       c.QueryInt("page", 1),
		Limit:      c.QueryInt("limit", feed.DefaultLimit),
		Tab:        c.Query("tab"),
		Search:     c.Query("q"),
		Types:      feed.SplitList(c.Query("types")),
		Categories: feed.SplitList(c.Query("categories")),
		Sort:       c.Query("sort"),
		Lat:        queryFloat(c, "lat"),
		Lng:        queryFloat(c, "lng"),
		MediaType:  mediaType,
	}
	page, err := fc.feed.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (fc *FeedController) HandleDashboard(c *fiber.Ctx) error {
	d, err := fc.feed.Dashboard(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(d)
}
