package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/access"
	"github.com/uzeed/uzeed/internal/pkg/entitlements"
	"github.com/uzeed/uzeed/internal/pkg/utils"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	// ErrPlanExpired hides a SHOP profile whose plan and trial both ended.
	ErrPlanExpired = errors.New("business plan expired")
)

const ratingCacheTTL = 5 * time.Minute

// RatingCache stores average ratings between requests. Implementations may
// drop entries at any time.
type RatingCache interface {
	GetRating(profileID uint) (float64, bool)
	SetRating(profileID uint, avg float64, ttl time.Duration)
}

type Service struct {
	users         repository.UserRepository
	posts         repository.PostRepository
	subscriptions repository.SubscriptionRepository
	services      repository.ServiceRepository
	ratings       RatingCache
	now           func() time.Time
}

func NewService(repos *repository.Repositories) *Service {
	return &Service{
		users:         repos.User,
		posts:         repos.Post,
		subscriptions: repos.Subscription,
		services:      repos.Service,
		now:           time.Now,
	}
}

// WithRatingCache enables caching of average ratings.
func (s *Service) WithRatingCache(c RatingCache) *Service {
	s.ratings = c
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// List returns one page of posts for the viewer. Posts by SHOP authors whose
// plan lapsed are dropped, paywalled posts are redacted.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	q = q.Normalize()
	now := s.now()
	empty := &Page{Posts: []PostView{}}

	filter := repository.PostFilter{
		AuthorTypes: q.Types,
		Categories:  q.Categories,
		Search:      q.Search,
		MediaType:   q.MediaType,
		Popular:     q.Sort == SortPopular,
		Offset:      (q.Page - 1) * q.Limit,
		Limit:       q.Limit,
	}

	if q.Tab == TabFollowing {
		if q.ViewerID == 0 {
			return empty, nil
		}
		ids, err := s.subscriptions.ActiveProfileIDs(q.ViewerID, now)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return empty, nil
		}
		filter.AuthorIDs = ids
	}

	posts, err := s.posts.Search(filter)
	if err != nil {
		return nil, err
	}

	authorIDs := uniqueAuthorIDs(posts)
	ratings, subscribed, err := s.enrich(ctx, q.ViewerID, authorIDs, now)
	if err != nil {
		return nil, err
	}

	views := make([]PostView, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		if p.Author != nil && !access.IsBusinessPlanActive(p.Author, now) {
			continue
		}
		v := NewPostView(p, q.ViewerID, subscribed[p.AuthorID], q.MediaType)
		if p.Author != nil {
			v.Author = newAuthorView(p.Author, ratingPtr(ratings, p.AuthorID))
			v.Distance = distanceFrom(q.Lat, q.Lng, p.Author.Latitude, p.Author.Longitude)
		}
		views = append(views, v)
	}

	if q.Sort == SortNear && q.Lat != nil && q.Lng != nil {
		sortByDistance(views, func(v PostView) *float64 { return v.Distance })
	}

	page := &Page{Posts: views}
	if len(views) == q.Limit {
		next := q.Page + 1
		page.NextPage = &next
	}
	return page, nil
}

// enrich loads ratings and the viewer's subscriptions for a set of authors concurrently.
func (s *Service) enrich(ctx context.Context, viewerID uint, authorIDs []uint, now time.Time) (map[uint]float64, map[uint]bool, error) {
	var (
		ratings    map[uint]float64
		subscribed map[uint]bool
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ratings, err = s.averageRatings(authorIDs)
		return err
	})
	g.Go(func() error {
		var err error
		subscribed, err = s.subscriptions.ActiveAmong(viewerID, authorIDs, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ratings, subscribed, nil
}

func (s *Service) averageRatings(ids []uint) (map[uint]float64, error) {
	out := make(map[uint]float64, len(ids))
	missing := ids
	if s.ratings != nil {
		missing = missing[:0:0]
		for _, id := range ids {
			if avg, ok := s.ratings.GetRating(id); ok {
				out[id] = avg
				continue
			}
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	loaded, err := s.services.AverageRatings(missing)
	if err != nil {
		return nil, err
	}
	for id, avg := range loaded {
		out[id] = avg
		if s.ratings != nil {
			s.ratings.SetRating(id, avg, ratingCacheTTL)
		}
	}
	return out, nil
}

// ProfileView is a public profile page.
type ProfileView struct {
	Profile               ProfileCard          `json:"profile"`
	IsOwner               bool                 `json:"isOwner"`
	IsSubscribed          bool                 `json:"isSubscribed"`
	SubscriptionExpiresAt *time.Time           `json:"subscriptionExpiresAt"`
	Posts                 []PostView           `json:"posts"`
	ServiceItems          []models.ServiceItem `json:"serviceItems"`
}

// ProfileCard is the public part of a user row.
type ProfileCard struct {
	AuthorView
	Address            string   `json:"address"`
	ServiceDescription string   `json:"serviceDescription"`
	Distance           *float64 `json:"distance,omitempty"`
}

func newProfileCard(u *models.User, rating *float64) ProfileCard {
	return ProfileCard{
		AuthorView:         *newAuthorView(u, rating),
		Address:            u.Address,
		ServiceDescription: u.ServiceDescription,
	}
}

// Profile loads a profile page. Owners always see their own profile.
func (s *Service) Profile(ctx context.Context, username string, viewerID uint) (*ProfileView, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	now := s.now()
	isOwner := viewerID != 0 && viewerID == user.ID
	if !isOwner && !access.IsBusinessPlanActive(user, now) {
		return nil, ErrPlanExpired
	}

	var (
		posts []models.Post
		sub   *models.ProfileSubscription
		items []models.ServiceItem
		avg   map[uint]float64
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		posts, err = s.posts.ListByAuthor(user.ID, 0, 0)
		return err
	})
	g.Go(func() (err error) {
		if viewerID == 0 || isOwner {
			return nil
		}
		sub, err = s.subscriptions.Get(viewerID, user.ID)
		return err
	})
	g.Go(func() (err error) {
		items, err = s.services.ListItems(user.ID)
		return err
	})
	g.Go(func() (err error) {
		avg, err = s.averageRatings([]uint{user.ID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load profile %s: %w", user.Username, err)
	}

	subscribed := access.HasActiveSubscription(sub, viewerID, user.ID, now)
	views := make([]PostView, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		views = append(views, NewPostView(p, viewerID, subscribed, ""))
	}

	out := &ProfileView{
		Profile:      newProfileCard(user, ratingPtr(avg, user.ID)),
		IsOwner:      isOwner,
		IsSubscribed: isOwner || subscribed,
		Posts:        views,
		ServiceItems: items,
	}
	if sub != nil {
		expires := sub.ExpiresAt
		out.SubscriptionExpiresAt = &expires
	}
	if out.ServiceItems == nil {
		out.ServiceItems = []models.ServiceItem{}
	}
	return out, nil
}

// DirectoryQuery filters the profile and services directories.
type DirectoryQuery struct {
	Search string
	Types  []string
	Lat    *float64
	Lng    *float64
}

// Profiles lists creator, professional and shop profiles with an active plan.
func (s *Service) Profiles(ctx context.Context, q DirectoryQuery) ([]ProfileCard, error) {
	if len(q.Types) == 0 {
		q.Types = []string{models.ProfileTypeCreator, models.ProfileTypeProfessional, models.ProfileTypeShop}
	}
	return s.directory(ctx, q, false)
}

// Services lists professionals and shops, nearest first when a location is given.
func (s *Service) Services(ctx context.Context, q DirectoryQuery) ([]ProfileCard, error) {
	if len(q.Types) == 0 {
		q.Types = []string{models.ProfileTypeProfessional, models.ProfileTypeShop}
	}
	return s.directory(ctx, q, true)
}

func (s *Service) directory(ctx context.Context, q DirectoryQuery, byDistance bool) ([]ProfileCard, error) {
	_ = ctx
	users, err := s.users.ListProfiles(repository.ProfileFilter{Types: q.Types, Search: q.Search})
	if err != nil {
		return nil, err
	}
	now := s.now()

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	ratings, err := s.averageRatings(ids)
	if err != nil {
		return nil, err
	}

	cards := make([]ProfileCard, 0, len(users))
	for i := range users {
		u := &users[i]
		if !access.IsBusinessPlanActive(u, now) {
			continue
		}
		card := newProfileCard(u, ratingPtr(ratings, u.ID))
		card.Distance = distanceFrom(q.Lat, q.Lng, u.Latitude, u.Longitude)
		cards = append(cards, card)
	}
	if byDistance {
		sortByDistance(cards, func(c ProfileCard) *float64 { return c.Distance })
	}
	return cards, nil
}

// Dashboard summarizes the signed in user's plan.
type Dashboard struct {
	Active              bool       `json:"active"`
	MembershipExpiresAt *time.Time `json:"membershipExpiresAt"`
	ShopTrialEndsAt     *time.Time `json:"shopTrialEndsAt"`
	DaysRemaining       int        `json:"daysRemaining"`
	ProfileType         string     `json:"profileType"`
	Username            string     `json:"username"`
	DisplayName         string     `json:"displayName"`
	AvatarURL           string     `json:"avatarUrl"`
	CoverURL            string     `json:"coverUrl"`
	Address             string     `json:"address"`
	Phone               string     `json:"phone"`
	Bio                 string     `json:"bio"`
	SubscriptionPrice   *int       `json:"subscriptionPrice"`
	ProfileViews        int64      `json:"profileViews"`
}

func (s *Service) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	_ = ctx
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &Dashboard{
		Active:              entitlements.IsActive(u.MembershipExpiresAt, now),
		MembershipExpiresAt: u.MembershipExpiresAt,
		ShopTrialEndsAt:     u.ShopTrialEndsAt,
		DaysRemaining:       entitlements.DaysRemaining(u.MembershipExpiresAt, now),
		ProfileType:         u.ProfileType,
		Username:            u.Username,
		DisplayName:         u.DisplayName,
		AvatarURL:           utils.AvatarURL(u.AvatarURL, u.Email),
		CoverURL:            u.CoverURL,
		Address:             u.Address,
		Phone:               u.Phone,
		Bio:                 u.Bio,
		SubscriptionPrice:   u.SubscriptionPrice,
		ProfileViews:        u.ProfileViews,
	}, nil
}

func uniqueAuthorIDs(posts []models.Post) []uint {
	seen := make(map[uint]struct{}, len(posts))
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.AuthorID]; ok {
			continue
		}
		seen[p.AuthorID] = struct{}{}
		ids = append(ids, p.AuthorID)
	}
	return ids
}

func ratingPtr(ratings map[uint]float64, id uint) *float64 {
	avg, ok := ratings[id]
	if !ok {
		return nil
	}
	return &avg
}
