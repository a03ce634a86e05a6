package controllers

import (
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/jobqueue"
	"github.com/uzeed/uzeed/internal/pkg/storage"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

// MaxPostFiles is how many media files one post may carry.
const MaxPostFiles = 10

// CreatorController manages the signed in creator's own posts
type CreatorController struct {
	users         repository.UserRepository
	posts         repository.PostRepository
	subscriptions repository.SubscriptionRepository
	notifications repository.NotificationRepository
	storage       storage.Provider
	queue         jobqueue.Enqueuer
	now           func() time.Time
}

// NewCreatorController wires the post handlers. queue may be nil, in which
// case media of deleted posts stays in storage.
func NewCreatorController(repos *repository.Repositories, provider storage.Provider, queue jobqueue.Enqueuer) *CreatorController {
	return &CreatorController{
		users:         repos.User,
		posts:         repos.Post,
		subscriptions: repos.Subscription,
		notifications: repos.Notification,
		storage:       provider,
		queue:         queue,
		now:           time.Now,
	}
}

type createPostRequest struct {
	Title    string `json:"title" form:"title" validate:"required,min=1,max=120"`
	Body     string `json:"body" form:"body" validate:"required,min=1,max=20000"`
	IsPublic bool   `json:"isPublic" form:"isPublic"`
	Price    int    `json:"price" form:"price" validate:"min=0,max=5000"`
}

type updatePostRequest struct {
	Title    *string `json:"title" validate:"omitempty,min=1,max=120"`
	Body     *string `json:"body" validate:"omitempty,min=1,max=20000"`
	IsPublic *bool   `json:"isPublic"`
	Price    *int    `json:"price" validate:"omitempty,min=0,max=5000"`
}

// creator returns the caller when they may publish, or writes 403.
func (cc *CreatorController) creator(c *fiber.Ctx) (*models.User, bool, error) {
	user, err := cc.users.GetByID(usercontext.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, errorJSON(c, fiber.StatusForbidden, "FORBIDDEN")
		}
		return nil, false, err
	}
	if user.ProfileType != models.ProfileTypeCreator && user.ProfileType != models.ProfileTypeProfessional {
		return nil, false, errorJSON(c, fiber.StatusForbidden, "FORBIDDEN")
	}
	return user, true, nil
}

// HandleMyPosts lists the caller's posts with full bodies and media.
func (cc *CreatorController) HandleMyPosts(c *fiber.Ctx) error {
	user, ok, err := cc.creator(c)
	if !ok {
		return err
	}
	posts, err := cc.posts.ListByAuthor(user.ID, 0, 0)
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// HandleCreatePost publishes a post with up to MaxPostFiles media files sent
// as multipart field "files". Active subscribers get a POST_PUBLISHED notification.
func (cc *CreatorController) HandleCreatePost(c *fiber.Ctx) error {
	user, ok, err := cc.creator(c)
	if !ok {
		return err
	}

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "VALIDATION")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "VALIDATION", "details": validationDetails(err)})
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["files"]
	}
	if len(files) > MaxPostFiles {
		return errorJSON(c, fiber.StatusBadRequest, "TOO_MANY_FILES")
	}

	now := cc.now()
	post := &models.Post{
		AuthorID: user.ID,
		Title:    req.Title,
		Body:     req.Body,
		IsPublic: req.IsPublic,
		Price:    req.Price,
		Type:     models.MediaTypeImage,
	}
	for _, fh := range files {
		stored, err := storage.SaveUpload(c.UserContext(), cc.storage, fh, now)
		if err != nil {
			cc.discardMedia(0, post.Media)
			switch {
			case errors.Is(err, storage.ErrUnsupportedType):
				return errorJSON(c, fiber.StatusBadRequest, "INVALID_FILE_TYPE")
			case errors.Is(err, storage.ErrFileTooLarge):
				return errorJSON(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE")
			}
			return err
		}
		post.Media = append(post.Media, models.Media{Type: stored.MediaType, URL: stored.URL, StorageKey: stored.Key})
		if stored.MediaType == models.MediaTypeVideo {
			post.Type = models.MediaTypeVideo
		}
	}
	if post.Media == nil {
		post.Media = []models.Media{}
	}

	if err := cc.posts.Create(post); err != nil {
		cc.discardMedia(0, post.Media)
		return err
	}
	log.Infof("[Creator] user=%d published post=%d media=%d", user.ID, post.ID, len(post.Media))

	cc.notifySubscribers(user.ID, post.ID, now)
	return c.JSON(fiber.Map{"post": post})
}

func (cc *CreatorController) notifySubscribers(creatorID, postID uint, now time.Time) {
	ids, err := cc.subscriptions.ActiveSubscriberIDs(creatorID, now)
	if err != nil {
		log.Errorf("[Creator] load subscribers of %d failed: %v", creatorID, err)
		return
	}
	data := map[string]interface{}{"postId": postID, "creatorId": creatorID}
	for _, id := range ids {
		n, err := models.NewNotification(id, models.NotificationPostPublished, data)
		if err == nil {
			err = cc.notifications.Create(n)
		}
		if err != nil {
			log.Warnf("[Creator] notify subscriber %d of post %d failed: %v", id, postID, err)
		}
	}
}

// HandleUpdatePost edits title, body, visibility or price of an own post.
func (cc *CreatorController) HandleUpdatePost(c *fiber.Ctx) error {
	user, ok, err := cc.creator(c)
	if !ok {
		return err
	}
	id, valid := paramID(c, "id")
	if !valid {
		return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND")
	}

	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "VALIDATION")
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "VALIDATION", "details": validationDetails(err)})
	}

	post, err := cc.posts.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND")
		}
		return err
	}
	if post.AuthorID != user.ID {
		return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND")
	}

	if req.Title != nil {
		post.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		post.Body = *req.Body
	}
	if req.IsPublic != nil {
		post.IsPublic = *req.IsPublic
	}
	if req.Price != nil {
		post.Price = *req.Price
	}
	if err := cc.posts.Update(post); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"post": post})
}

// HandleDeletePost removes an own post; its stored files are deleted by a background job.
func (cc *CreatorController) HandleDeletePost(c *fiber.Ctx) error {
	user, ok, err := cc.creator(c)
	if !ok {
		return err
	}
	id, valid := paramID(c, "id")
	if !valid {
		return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND")
	}

	var media []models.Media
	if post, err := cc.posts.GetByID(id); err == nil && post.AuthorID == user.ID {
		media = post.Media
	}
	deleted, err := cc.posts.Delete(id, user.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND")
	}
	cc.discardMedia(id, media)
	return c.JSON(fiber.Map{"ok": true})
}

func (cc *CreatorController) discardMedia(postID uint, media []models.Media) {
	if cc.queue == nil || len(media) == 0 {
		return
	}
	keys := make([]string, 0, len(media))
	for _, m := range media {
		keys = append(keys, m.StorageKey)
	}
	if err := jobqueue.EnqueueMediaDeletion(cc.queue, postID, keys); err != nil {
		log.Warnf("[Creator] enqueue media deletion for post %d failed: %v", postID, err)
	}
}
