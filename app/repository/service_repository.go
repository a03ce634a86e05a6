package repository

import (
	"github.com/uzeed/uzeed/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type serviceRepository struct {
	db *gorm.DB
}

// NewServiceRepository creates a new service listing repository instance
func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) ListItems(ownerID uint) ([]models.ServiceItem, error) {
	var items []models.ServiceItem
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&items).Error
	return items, err
}

// UpsertRating keeps one rating per (profile, rater); a new rating replaces the old one
func (r *serviceRepository) UpsertRating(rating *models.ServiceRating) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "rater_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(rating).Error
}

type ratingAverage struct {
	ProfileID uint
	Avg       float64
}

func (r *serviceRepository) AverageRatings(profileIDs []uint) (map[uint]float64, error) {
	out := make(map[uint]float64, len(profileIDs))
	if len(profileIDs) == 0 {
		return out, nil
	}
	var rows []ratingAverage
	err := r.db.Model(&models.ServiceRating{}).
		Select("profile_id, AVG(rating) AS avg").
		Where("profile_id IN ?", profileIDs).
		Group("profile_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProfileID] = row.Avg
	}
	return out, nil
}
