package repository

import (
	"errors"
	"strings"

	"github.com/uzeed/uzeed/app/models"
	"gorm.io/gorm"
)

// postRepository implements the PostRepository interface
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository instance
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create stores the post together with its media rows
func (r *postRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

func (r *postRepository) GetByID(id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.Preload("Media").Preload("Author").First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Update saves the editable post columns. Media is managed on create only.
func (r *postRepository) Update(post *models.Post) error {
	return r.db.Model(post).Select("title", "body", "is_public", "price").Updates(post).Error
}

// Delete removes a post owned by authorID and reports whether it existed
func (r *postRepository) Delete(id, authorID uint) (bool, error) {
	var deleted bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ? AND author_id = ?", id, authorID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Media{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&post).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (r *postRepository) ListByAuthor(authorID uint, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	q := r.db.Preload("Media").Where("author_id = ?", authorID).Order("created_at DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&posts).Error
	return posts, err
}

// Search runs the feed query. Authors are joined so their profile columns can
// be filtered on; soft deleted authors are excluded.
func (r *postRepository) Search(filter PostFilter) ([]models.Post, error) {
	q := r.db.Model(&models.Post{}).
		Joins("JOIN users ON users.id = posts.author_id AND users.deleted_at IS NULL")

	if len(filter.AuthorIDs) > 0 {
		q = q.Where("posts.author_id IN ?", filter.AuthorIDs)
	}
	if len(filter.AuthorTypes) > 0 {
		q = q.Where("users.profile_type IN ?", filter.AuthorTypes)
	}
	if len(filter.Categories) > 0 {
		group := r.db.Where("users.service_category LIKE ?", "%"+filter.Categories[0]+"%")
		for _, c := range filter.Categories[1:] {
			group = group.Or("users.service_category LIKE ?", "%"+c+"%")
		}
		q = q.Where(group)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		p := "%" + s + "%"
		q = q.Where("posts.title LIKE ? OR posts.body LIKE ? OR users.username LIKE ? OR users.display_name LIKE ? OR users.service_category LIKE ? OR users.city LIKE ?",
			p, p, p, p, p, p)
	}
	if filter.MediaType != "" {
		q = q.Where("posts.type = ?", filter.MediaType).
			Where("EXISTS (SELECT 1 FROM media WHERE media.post_id = posts.id AND media.type = ?)", filter.MediaType)
	}

	if filter.Popular {
		q = q.Order("(SELECT COUNT(*) FROM media WHERE media.post_id = posts.id) DESC")
	}
	q = q.Order("posts.created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var posts []models.Post
	err := q.Select("posts.*").
		Preload("Media").
		Preload("Author").
		Offset(filter.Offset).
		Find(&posts).Error
	return posts, err
}
