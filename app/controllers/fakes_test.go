package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/jobqueue"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func tptr(t time.Time) *time.Time { return &t }

// newTestApp builds an app whose requests run as userID (0 is anonymous).
func newTestApp(userID uint, role string, register func(app *fiber.App)) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		if userID != 0 {
			usercontext.Set(c, usercontext.UserContext{UserID: userID, Role: role, IsLoggedIn: true})
		}
		return c.Next()
	})
	register(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

type store struct {
	mu     sync.Mutex
	nextID uint
}

func (s *store) id() uint {
	s.nextID++
	return s.nextID
}

type fakeUsers struct {
	repository.UserRepository
	store
	byID map[uint]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint]*models.User{}}
	f.nextID = 100
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.id()
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetByUsername(username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) TouchLastLogin(id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

type fakePosts struct {
	repository.PostRepository
	store
	byID map[uint]*models.Post
}

func newFakePosts() *fakePosts {
	return &fakePosts{byID: map[uint]*models.Post{}}
}

func (f *fakePosts) Create(p *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	for i := range p.Media {
		p.Media[i].ID = f.id()
		p.Media[i].PostID = p.ID
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakePosts) GetByID(id uint) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePosts) Update(p *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakePosts) Delete(id, authorID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok || p.AuthorID != authorID {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

func (f *fakePosts) ListByAuthor(authorID uint, offset, limit int) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Post
	for _, p := range f.byID {
		if p.AuthorID == authorID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// fakeSubscriptions holds active (subscriber, profile) pairs.
type fakeSubscriptions struct {
	repository.SubscriptionRepository
	active map[[2]uint]bool
}

func newFakeSubscriptions(pairs ...[2]uint) *fakeSubscriptions {
	f := &fakeSubscriptions{active: map[[2]uint]bool{}}
	for _, p := range pairs {
		f.active[p] = true
	}
	return f
}

func (f *fakeSubscriptions) IsActive(subscriberID, profileID uint, now time.Time) (bool, error) {
	return f.active[[2]uint{subscriberID, profileID}], nil
}

func (f *fakeSubscriptions) ActiveSubscriberIDs(profileID uint, now time.Time) ([]uint, error) {
	var ids []uint
	for pair := range f.active {
		if pair[1] == profileID {
			ids = append(ids, pair[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeMessages struct {
	repository.MessageRepository
	store
	messages []models.Message
}

func (f *fakeMessages) Create(m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = f.id()
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeMessages) Conversation(a, b uint, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.messages {
		if (m.FromID == a && m.ToID == b) || (m.FromID == b && m.ToID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) Inbox(userID uint) ([]repository.InboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	index := map[uint]int{}
	var out []repository.InboxEntry
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if m.FromID != userID && m.ToID != userID {
			continue
		}
		other := m.FromID
		if other == userID {
			other = m.ToID
		}
		j, seen := index[other]
		if !seen {
			index[other] = len(out)
			out = append(out, repository.InboxEntry{OtherUserID: other, LastMessage: m})
			j = len(out) - 1
		}
		if m.ToID == userID && m.ReadAt == nil {
			out[j].Unread++
		}
	}
	return out, nil
}

func (f *fakeMessages) HasConversation(a, b uint) (bool, error) {
	msgs, _ := f.Conversation(a, b, 0)
	return len(msgs) > 0, nil
}

func (f *fakeMessages) MarkRead(fromID, toID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		m := &f.messages[i]
		if m.FromID == fromID && m.ToID == toID && m.ReadAt == nil {
			m.ReadAt = &at
		}
	}
	return nil
}

type fakeNotifications struct {
	repository.NotificationRepository
	store
	created []models.Notification
}

func (f *fakeNotifications) Create(n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = f.id()
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeNotifications) ListByUser(userID uint, limit int) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for i := len(f.created) - 1; i >= 0; i-- {
		if f.created[i].UserID == userID {
			out = append(out, f.created[i])
		}
	}
	return out, nil
}

func (f *fakeNotifications) CountUnread(userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, note := range f.created {
		if note.UserID == userID && note.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkRead(id, userID uint, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.created {
		n := &f.created[i]
		if n.ID == id && n.UserID == userID {
			if n.ReadAt == nil {
				n.ReadAt = &at
			}
			return true, nil
		}
	}
	return false, nil
}

type fakeServices struct {
	repository.ServiceRepository
	ratings map[[2]uint]int
}

func (f *fakeServices) UpsertRating(r *models.ServiceRating) error {
	if f.ratings == nil {
		f.ratings = map[[2]uint]int{}
	}
	f.ratings[[2]uint{r.ProfileID, r.RaterID}] = r.Rating
	return nil
}

// memoryStorage is a storage.Provider keeping objects in a map.
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (s *memoryStorage) Name() string { return "memory" }

func (s *memoryStorage) Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = raw
	return "https://cdn.test/" + key, nil
}

func (s *memoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type enqueued struct {
	jobType jobqueue.JobType
	payload map[string]interface{}
}

type fakeQueue struct {
	jobs []enqueued
}

func (q *fakeQueue) EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error) {
	q.jobs = append(q.jobs, enqueued{jobType: jobType, payload: payload})
	return &jobqueue.Job{ID: "job", Type: jobType, Payload: payload}, nil
}
