package repository

import (
	"strings"
	"time"

	"github.com/uzeed/uzeed/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail looks up a user case-insensitively by email
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *userRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// ListProfiles returns listed profiles, newest first
func (r *userRepository) ListProfiles(filter ProfileFilter) ([]models.User, error) {
	q := r.db.Model(&models.User{})
	if len(filter.Types) > 0 {
		q = q.Where("profile_type IN ?", filter.Types)
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		q = q.Where("service_category LIKE ?", "%"+c+"%")
	}
	if c := strings.TrimSpace(filter.City); c != "" {
		q = q.Where("city LIKE ?", "%"+c+"%")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where("username LIKE ? OR display_name LIKE ? OR service_category LIKE ? OR city LIKE ?",
			pattern, pattern, pattern, pattern)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var users []models.User
	err := q.Order("created_at DESC").Offset(filter.Offset).Find(&users).Error
	return users, err
}

// ListMembershipExpiringBetween returns users whose membership ends in [from, to)
func (r *userRepository) ListMembershipExpiringBetween(from, to time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("membership_expires_at >= ? AND membership_expires_at < ?", from, to).
		Order("membership_expires_at ASC").
		Find(&users).Error
	return users, err
}
