package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

const notificationLimit = 50

type NotificationController struct {
	notifications repository.NotificationRepository
	now           func() time.Time
}

func NewNotificationController(notifications repository.NotificationRepository) *NotificationController {
	return &NotificationController{notifications: notifications, now: time.Now}
}

// HandleList returns the caller's latest notifications and the unread count.
func (nc *NotificationController) HandleList(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	list, err := nc.notifications.ListByUser(userID, notificationLimit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.Notification{}
	}
	unread, err := nc.notifications.CountUnread(userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notifications": list, "unread": unread})
}

// HandleMarkRead marks one notification read. Foreign or unknown ids report updated=0.
func (nc *NotificationController) HandleMarkRead(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(fiber.Map{"ok": true, "updated": 0})
	}
	marked, err := nc.notifications.MarkRead(id, usercontext.GetUserID(c), nc.now())
	if err != nil {
		return err
	}
	updated := 0
	if marked {
		updated = 1
	}
	return c.JSON(fiber.Map{"ok": true, "updated": updated})
}
