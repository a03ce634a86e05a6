package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/access"
	"github.com/uzeed/uzeed/internal/pkg/storage"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
	"github.com/uzeed/uzeed/internal/pkg/utils"
)

const (
	conversationLimit = 200
	maxMessageRunes   = 4000
)

// MessageController handles direct messages between users
type MessageController struct {
	users         repository.UserRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	lookup        access.Lookup
	storage       storage.Provider
	now           func() time.Time
}

func NewMessageController(repos *repository.Repositories, provider storage.Provider) *MessageController {
	return &MessageController{
		users:         repos.User,
		messages:      repos.Message,
		notifications: repos.Notification,
		lookup:        NewAccessLookup(repos),
		storage:       provider,
		now:           time.Now,
	}
}

// ChatUser is the public part of a conversation partner.
type ChatUser struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	ProfileType string `json:"profileType"`
	City        string `json:"city"`
}

func newChatUser(u *models.User) *ChatUser {
	return &ChatUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   utils.AvatarURL(u.AvatarURL, u.Email),
		ProfileType: u.ProfileType,
		City:        u.City,
	}
}

type conversation struct {
	Other       *ChatUser      `json:"other"`
	LastMessage models.Message `json:"lastMessage"`
	UnreadCount int64          `json:"unreadCount"`
}

// HandleInbox lists one entry per conversation partner, newest first.
func (mc *MessageController) HandleInbox(c *fiber.Ctx) error {
	me := usercontext.GetUserID(c)
	entries, err := mc.messages.Inbox(me)
	if err != nil {
		return err
	}
	out := make([]conversation, 0, len(entries))
	for _, e := range entries {
		other, err := mc.users.GetByID(e.OtherUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		out = append(out, conversation{Other: newChatUser(other), LastMessage: e.LastMessage, UnreadCount: e.Unread})
	}
	return c.JSON(fiber.Map{"conversations": out})
}

// target resolves :userId and checks the messaging policy. It writes the
// error response itself and reports ok=false when the request must stop.
func (mc *MessageController) target(c *fiber.Ctx) (*models.User, bool, error) {
	me := usercontext.GetUserID(c)
	otherID, valid := paramID(c, "userId")
	if !valid {
		return nil, false, errorJSON(c, fiber.StatusBadRequest, "INVALID_TARGET_ID")
	}
	allowed, err := access.CanMessage(c.UserContext(), mc.lookup, me, otherID, mc.now())
	if err != nil {
		return nil, false, err
	}
	if !allowed {
		return nil, false, errorJSON(c, fiber.StatusForbidden, "CHAT_NOT_ALLOWED")
	}
	other, err := mc.users.GetByID(otherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, errorJSON(c, fiber.StatusNotFound, "USER_NOT_FOUND")
		}
		return nil, false, err
	}
	return other, true, nil
}

// HandleConversation returns the thread with :userId and marks their messages read.
func (mc *MessageController) HandleConversation(c *fiber.Ctx) error {
	other, ok, err := mc.target(c)
	if !ok {
		return err
	}
	me := usercontext.GetUserID(c)
	messages, err := mc.messages.Conversation(me, other.ID, conversationLimit)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	if err := mc.messages.MarkRead(other.ID, me, mc.now()); err != nil {
		log.Warnf("[Messages] mark read %d->%d failed: %v", other.ID, me, err)
	}
	return c.JSON(fiber.Map{"messages": messages, "other": newChatUser(other)})
}

type sendMessageRequest struct {
	Body string `json:"body" form:"body"`
}

func (mc *MessageController) HandleSend(c *fiber.Ctx) error {
	other, ok, err := mc.target(c)
	if !ok {
		return err
	}
	var req sendMessageRequest
	_ = c.BodyParser(&req)
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return errorJSON(c, fiber.StatusBadRequest, "EMPTY_MESSAGE")
	}
	if len([]rune(body)) > maxMessageRunes {
		return errorJSON(c, fiber.StatusBadRequest, "MESSAGE_TOO_LONG")
	}
	return mc.deliver(c, &models.Message{FromID: usercontext.GetUserID(c), ToID: other.ID, Body: body})
}

// HandleSendAttachment sends one image, uploaded as multipart field "file".
func (mc *MessageController) HandleSendAttachment(c *fiber.Ctx) error {
	other, ok, err := mc.target(c)
	if !ok {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "NO_FILE")
	}
	stored, err := storage.SaveUpload(c.UserContext(), mc.storage, fh, mc.now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			return errorJSON(c, fiber.StatusBadRequest, "INVALID_FILE_TYPE")
		case errors.Is(err, storage.ErrFileTooLarge):
			return errorJSON(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE")
		}
		return err
	}
	if stored.MediaType != models.MediaTypeImage {
		if derr := mc.storage.Delete(c.UserContext(), stored.Key); derr != nil {
			log.Warnf("[Messages] remove rejected attachment %s failed: %v", stored.Key, derr)
		}
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_FILE_TYPE")
	}
	return mc.deliver(c, &models.Message{FromID: usercontext.GetUserID(c), ToID: other.ID, AttachmentURL: stored.URL})
}

func (mc *MessageController) deliver(c *fiber.Ctx, message *models.Message) error {
	if err := mc.messages.Create(message); err != nil {
		return err
	}
	n, err := models.NewNotification(message.ToID, models.NotificationMessageReceived, map[string]interface{}{
		"fromId":    message.FromID,
		"messageId": message.ID,
	})
	if err == nil {
		err = mc.notifications.Create(n)
	}
	if err != nil {
		log.Warnf("[Messages] notify user %d of message %d failed: %v", message.ToID, message.ID, err)
	}
	return c.JSON(fiber.Map{"message": message})
}

// accessLookup answers access.CanMessage from the repositories.
type accessLookup struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	messages      repository.MessageRepository
}

func NewAccessLookup(repos *repository.Repositories) access.Lookup {
	return &accessLookup{users: repos.User, subscriptions: repos.Subscription, messages: repos.Message}
}

func (l *accessLookup) FindUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := l.users.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return u, err
}

func (l *accessLookup) HasActiveSubscription(ctx context.Context, subscriberID, profileID uint, now time.Time) (bool, error) {
	return l.subscriptions.IsActive(subscriberID, profileID, now)
}

func (l *accessLookup) HasConversation(ctx context.Context, a, b uint) (bool, error) {
	return l.messages.HasConversation(a, b)
}
