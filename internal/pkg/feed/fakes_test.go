package feed

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
)

type fakeUsers struct {
	repository.UserRepository
	byID map[uint]*models.User
}

func (f *fakeUsers) GetByID(id uint) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetByUsername(username string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) ListProfiles(filter repository.ProfileFilter) ([]models.User, error) {
	var out []models.User
	for _, u := range f.byID {
		for _, t := range filter.Types {
			if u.ProfileType == t {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

type fakePosts struct {
	repository.PostRepository
	posts      []models.Post
	lastFilter *repository.PostFilter
	calls      int
}

func (f *fakePosts) Search(filter repository.PostFilter) ([]models.Post, error) {
	f.calls++
	f.lastFilter = &filter
	return f.posts, nil
}

func (f *fakePosts) ListByAuthor(authorID uint, offset, limit int) ([]models.Post, error) {
	var out []models.Post
	for _, p := range f.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeSubscriptions holds active (subscriber, profile) pairs.
type fakeSubscriptions struct {
	repository.SubscriptionRepository
	rows []models.ProfileSubscription
}

func (f *fakeSubscriptions) Get(subscriberID, profileID uint) (*models.ProfileSubscription, error) {
	for i := range f.rows {
		if f.rows[i].SubscriberID == subscriberID && f.rows[i].ProfileID == profileID {
			return &f.rows[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSubscriptions) ActiveProfileIDs(subscriberID uint, now time.Time) ([]uint, error) {
	var ids []uint
	for _, r := range f.rows {
		if r.SubscriberID == subscriberID && r.IsActiveAt(now) {
			ids = append(ids, r.ProfileID)
		}
	}
	return ids, nil
}

func (f *fakeSubscriptions) ActiveAmong(subscriberID uint, profileIDs []uint, now time.Time) (map[uint]bool, error) {
	out := map[uint]bool{}
	for _, r := range f.rows {
		if r.SubscriberID == subscriberID && r.IsActiveAt(now) {
			out[r.ProfileID] = true
		}
	}
	return out, nil
}

type fakeServices struct {
	repository.ServiceRepository
	mu      sync.Mutex
	ratings map[uint]float64
	loads   int
}

func (f *fakeServices) ListItems(ownerID uint) ([]models.ServiceItem, error) {
	return nil, nil
}

func (f *fakeServices) AverageRatings(ids []uint) (map[uint]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	out := map[uint]float64{}
	for _, id := range ids {
		if avg, ok := f.ratings[id]; ok {
			out[id] = avg
		}
	}
	return out, nil
}

type memoryRatingCache struct {
	mu     sync.Mutex
	values map[uint]float64
}

func (c *memoryRatingCache) GetRating(id uint) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[id]
	return v, ok
}

func (c *memoryRatingCache) SetRating(id uint, avg float64, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[id] = avg
}
