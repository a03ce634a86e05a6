package repository

import (
	"time"

	"github.com/uzeed/uzeed/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user and profile operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Update(user *models.User) error
	TouchLastLogin(id uint, at time.Time) error
	ListProfiles(filter ProfileFilter) ([]models.User, error)
	ListMembershipExpiringBetween(from, to time.Time) ([]models.User, error)
}

// PostRepository defines the interface for creator posts and their media
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id uint) (*models.Post, error)
	Update(post *models.Post) error
	Delete(id, authorID uint) (bool, error)
	ListByAuthor(authorID uint, offset, limit int) ([]models.Post, error)
	Search(filter PostFilter) ([]models.Post, error)
}

// SubscriptionRepository answers questions about ProfileSubscription rows.
// Writes happen inside the billing transaction.
type SubscriptionRepository interface {
	// Get returns nil without error when the pair never subscribed.
	Get(subscriberID, profileID uint) (*models.ProfileSubscription, error)
	IsActive(subscriberID, profileID uint, now time.Time) (bool, error)
	ActiveProfileIDs(subscriberID uint, now time.Time) ([]uint, error)
	ActiveAmong(subscriberID uint, profileIDs []uint, now time.Time) (map[uint]bool, error)
	ActiveSubscriberIDs(profileID uint, now time.Time) ([]uint, error)
}

// MessageRepository defines the interface for direct messages
type MessageRepository interface {
	Create(message *models.Message) error
	Conversation(a, b uint, limit int) ([]models.Message, error)
	Inbox(userID uint) ([]InboxEntry, error)
	HasConversation(a, b uint) (bool, error)
	MarkRead(fromID, toID uint, at time.Time) error
}

// NotificationRepository defines the interface for in-app notifications
type NotificationRepository interface {
	Create(notification *models.Notification) error
	ListByUser(userID uint, limit int) ([]models.Notification, error)
	CountUnread(userID uint) (int64, error)
	MarkRead(id, userID uint, at time.Time) (bool, error)
}

// ServiceRepository defines the interface for service listings and ratings
type ServiceRepository interface {
	ListItems(ownerID uint) ([]models.ServiceItem, error)
	UpsertRating(rating *models.ServiceRating) error
	AverageRatings(profileIDs []uint) (map[uint]float64, error)
}

// OutboxRepository defines the interface used by the outbox dispatcher
type OutboxRepository interface {
	ListPending(limit int) ([]models.OutboxEvent, error)
	MarkDispatched(id uint, at time.Time) error
	MarkAttemptFailed(id uint, lastError string) error
}

// ProfileFilter selects profiles for the services directory.
type ProfileFilter struct {
	Types    []string
	Category string
	City     string
	Search   string
	Offset   int
	Limit    int
}

// PostFilter selects posts for the feed. Empty fields do not filter.
type PostFilter struct {
	AuthorIDs   []uint
	AuthorTypes []string
	Categories  []string
	Search      string
	MediaType   string
	Popular     bool
	Offset      int
	Limit       int
}

// InboxEntry is the latest message of one conversation.
type InboxEntry struct {
	OtherUserID uint
	LastMessage models.Message
	Unread      int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Post         PostRepository
	Subscription SubscriptionRepository
	Message      MessageRepository
	Notification NotificationRepository
	Service      ServiceRepository
	Outbox       OutboxRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Post:         NewPostRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Message:      NewMessageRepository(db),
		Notification: NewNotificationRepository(db),
		Service:      NewServiceRepository(db),
		Outbox:       NewOutboxRepository(db),
	}
}
