package repository

import (
	"time"

	"github.com/uzeed/uzeed/app/models"
	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *messageRepository) pair(a, b uint) *gorm.DB {
	return r.db.Model(&models.Message{}).
		Where("(from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)", a, b, b, a)
}

// Conversation returns up to limit messages between a and b, oldest first
func (r *messageRepository) Conversation(a, b uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	q := r.pair(a, b).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Inbox returns the latest message per counterpart, newest conversation first
func (r *messageRepository) Inbox(userID uint) ([]InboxEntry, error) {
	var messages []models.Message
	err := r.db.Where("from_id = ? OR to_id = ?", userID, userID).
		Order("created_at DESC").Order("id DESC").
		Limit(500).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	index := map[uint]int{}
	var entries []InboxEntry
	for _, m := range messages {
		other := m.FromID
		if other == userID {
			other = m.ToID
		}
		i, seen := index[other]
		if !seen {
			index[other] = len(entries)
			entries = append(entries, InboxEntry{OtherUserID: other, LastMessage: m})
			i = len(entries) - 1
		}
		if m.ToID == userID && m.ReadAt == nil {
			entries[i].Unread++
		}
	}
	return entries, nil
}

func (r *messageRepository) HasConversation(a, b uint) (bool, error) {
	var ids []uint
	err := r.pair(a, b).Limit(1).Pluck("id", &ids).Error
	return len(ids) > 0, err
}

// MarkRead marks every unread message from fromID to toID as read
func (r *messageRepository) MarkRead(fromID, toID uint, at time.Time) error {
	return r.db.Model(&models.Message{}).
		Where("from_id = ? AND to_id = ? AND read_at IS NULL", fromID, toID).
		Update("read_at", at).Error
}
