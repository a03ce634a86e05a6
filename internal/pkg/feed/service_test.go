package feed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/app/repository"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func fptr(f float64) *float64 { return &f }
func tptr(t time.Time) *time.Time { return &t }

type fixture struct {
	svc      *Service
	users    *fakeUsers
	posts    *fakePosts
	subs     *fakeSubscriptions
	services *fakeServices
}

func newFixture() *fixture {
	f := &fixture{
		users:    &fakeUsers{byID: map[uint]*models.User{}},
		posts:    &fakePosts{},
		subs:     &fakeSubscriptions{},
		services: &fakeServices{ratings: map[uint]float64{}},
	}
	f.svc = NewService(&repository.Repositories{
		User:         f.users,
		Post:         f.posts,
		Subscription: f.subs,
		Service:      f.services,
	}).WithClock(func() time.Time { return now })
	return f
}

func (f *fixture) addUser(u *models.User) *models.User {
	f.users.byID[u.ID] = u
	return u
}

func TestQueryNormalize(t *testing.T) {
	tests := []struct {
		name      string
		in        Query
		wantPage  int
		wantLimit int
	}{
		{"defaults", Query{}, 1, 12},
		{"negative page", Query{Page: -3, Limit: 10}, 1, 10},
		{"limit too small", Query{Page: 2, Limit: 1}, 2, 6},
		{"limit too large", Query{Limit: 500}, 1, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, q.Page)
			assert.Equal(t, tt.wantLimit, q.Limit)
		})
	}

	q := Query{Tab: "weird", Sort: "random", MediaType: "video", Types: []string{" ", ""}}.Normalize()
	assert.Equal(t, TabForYou, q.Tab)
	assert.Equal(t, SortNew, q.Sort)
	assert.Equal(t, models.MediaTypeVideo, q.MediaType)
	assert.Equal(t, []string{models.ProfileTypeCreator, models.ProfileTypeProfessional}, q.Types)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{"CREATOR", "SHOP"}, SplitList("CREATOR, ,SHOP"))
}

func TestListFollowingAnonymousIsEmpty(t *testing.T) {
	f := newFixture()
	page, err := f.svc.List(context.Background(), Query{Tab: TabFollowing})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Nil(t, page.NextPage)
	assert.Zero(t, f.posts.calls)
}

func TestListFollowingRestrictsToSubscriptions(t *testing.T) {
	f := newFixture()
	f.subs.rows = []models.ProfileSubscription{
		{SubscriberID: 5, ProfileID: 7, Status: models.SubscriptionStatusActive, ExpiresAt: now.Add(time.Hour)},
		{SubscriberID: 5, ProfileID: 8, Status: models.SubscriptionStatusActive, ExpiresAt: now.Add(-time.Hour)},
	}

	_, err := f.svc.List(context.Background(), Query{ViewerID: 5, Tab: TabFollowing})
	require.NoError(t, err)
	require.NotNil(t, f.posts.lastFilter)
	assert.Equal(t, []uint{7}, f.posts.lastFilter.AuthorIDs)

	f.posts.calls = 0
	page, err := f.svc.List(context.Background(), Query{ViewerID: 6, Tab: TabFollowing})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Zero(t, f.posts.calls)
}

func TestListRedactsAndFiltersLapsedShops(t *testing.T) {
	f := newFixture()
	creator := f.addUser(&models.User{ID: 1, Username: "creator", ProfileType: models.ProfileTypeCreator})
	lapsed := f.addUser(&models.User{ID: 2, Username: "shop", ProfileType: models.ProfileTypeShop, ShopTrialEndsAt: tptr(now.Add(-time.Hour))})
	f.services.ratings[creator.ID] = 4.5

	longBody := strings.Repeat("a", 300)
	f.posts.posts = []models.Post{
		{ID: 10, AuthorID: creator.ID, Author: creator, Title: "private", Body: longBody, Media: []models.Media{{ID: 1, Type: models.MediaTypeImage, URL: "u1"}}},
		{ID: 11, AuthorID: creator.ID, Author: creator, Title: "public", Body: "hola", IsPublic: true, Media: []models.Media{{ID: 2, Type: models.MediaTypeImage, URL: "u2"}}},
		{ID: 12, AuthorID: lapsed.ID, Author: lapsed, Title: "shop post", IsPublic: true},
	}

	page, err := f.svc.List(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)

	private := page.Posts[0]
	assert.True(t, private.Paywalled)
	assert.Empty(t, private.Media)
	assert.Nil(t, private.Preview)
	assert.Equal(t, strings.Repeat("a", 220)+"…", private.Body)
	require.NotNil(t, private.Author)
	require.NotNil(t, private.Author.Rating)
	assert.Equal(t, 4.5, *private.Author.Rating)

	public := page.Posts[1]
	assert.False(t, public.Paywalled)
	assert.Equal(t, "hola", public.Body)
	require.Len(t, public.Media, 1)
	require.NotNil(t, public.Preview)
	assert.Equal(t, "u2", public.Preview.URL)
}

func TestListSubscriberAndAuthorSeeFullPosts(t *testing.T) {
	f := newFixture()
	creator := f.addUser(&models.User{ID: 1, ProfileType: models.ProfileTypeCreator})
	f.posts.posts = []models.Post{{ID: 10, AuthorID: 1, Author: creator, Body: "secreto", Media: []models.Media{{ID: 1, Type: models.MediaTypeImage, URL: "u"}}}}
	f.subs.rows = []models.ProfileSubscription{{SubscriberID: 9, ProfileID: 1, Status: models.SubscriptionStatusActive, ExpiresAt: now.Add(time.Hour)}}

	for _, viewer := range []uint{1, 9} {
		page, err := f.svc.List(context.Background(), Query{ViewerID: viewer})
		require.NoError(t, err)
		require.Len(t, page.Posts, 1)
		assert.False(t, page.Posts[0].Paywalled, "viewer %d", viewer)
		assert.True(t, page.Posts[0].IsSubscribed, "viewer %d", viewer)
		assert.Equal(t, "secreto", page.Posts[0].Body)
	}

	page, err := f.svc.List(context.Background(), Query{ViewerID: 3})
	require.NoError(t, err)
	assert.True(t, page.Posts[0].Paywalled)
	assert.False(t, page.Posts[0].IsSubscribed)
}

func TestListMediaTypeFiltersMedia(t *testing.T) {
	f := newFixture()
	creator := f.addUser(&models.User{ID: 1, ProfileType: models.ProfileTypeCreator})
	f.posts.posts = []models.Post{{
		ID: 10, AuthorID: 1, Author: creator, IsPublic: true, Type: models.MediaTypeVideo,
		Media: []models.Media{{ID: 1, Type: models.MediaTypeImage, URL: "img"}, {ID: 2, Type: models.MediaTypeVideo, URL: "vid"}},
	}}

	page, err := f.svc.List(context.Background(), Query{MediaType: models.MediaTypeVideo})
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeVideo, f.posts.lastFilter.MediaType)
	require.Len(t, page.Posts[0].Media, 1)
	assert.Equal(t, "vid", page.Posts[0].Media[0].URL)
}

func TestListNextPage(t *testing.T) {
	f := newFixture()
	creator := f.addUser(&models.User{ID: 1, ProfileType: models.ProfileTypeCreator})
	for i := 0; i < 6; i++ {
		f.posts.posts = append(f.posts.posts, models.Post{ID: uint(i + 1), AuthorID: 1, Author: creator, IsPublic: true})
	}

	page, err := f.svc.List(context.Background(), Query{Page: 2, Limit: 6})
	require.NoError(t, err)
	require.NotNil(t, page.NextPage)
	assert.Equal(t, 3, *page.NextPage)
	assert.Equal(t, 6, f.posts.lastFilter.Offset)

	page, err = f.svc.List(context.Background(), Query{Limit: 12})
	require.NoError(t, err)
	assert.Nil(t, page.NextPage)
}

func TestListNearSortsByDistanceNullsLast(t *testing.T) {
	f := newFixture()
	far := f.addUser(&models.User{ID: 1, ProfileType: models.ProfileTypeProfessional, Latitude: fptr(-33.0), Longitude: fptr(-71.6)})
	near := f.addUser(&models.User{ID: 2, ProfileType: models.ProfileTypeProfessional, Latitude: fptr(-33.44), Longitude: fptr(-70.66)})
	unknown := f.addUser(&models.User{ID: 3, ProfileType: models.ProfileTypeProfessional})
	f.posts.posts = []models.Post{
		{ID: 1, AuthorID: 3, Author: unknown, IsPublic: true},
		{ID: 2, AuthorID: 1, Author: far, IsPublic: true},
		{ID: 3, AuthorID: 2, Author: near, IsPublic: true},
	}

	page, err := f.svc.List(context.Background(), Query{Sort: SortNear, Lat: fptr(-33.45), Lng: fptr(-70.65)})
	require.NoError(t, err)
	require.Len(t, page.Posts, 3)
	assert.Equal(t, uint(3), page.Posts[0].ID)
	assert.Equal(t, uint(2), page.Posts[1].ID)
	assert.Equal(t, uint(1), page.Posts[2].ID)
	assert.Nil(t, page.Posts[2].Distance)
}

func TestListUsesRatingCache(t *testing.T) {
	f := newFixture()
	creator := f.addUser(&models.User{ID: 1, ProfileType: models.ProfileTypeCreator})
	f.posts.posts = []models.Post{{ID: 1, AuthorID: 1, Author: creator, IsPublic: true}}
	f.services.ratings[1] = 3
	c := &memoryRatingCache{values: map[uint]float64{}}
	f.svc.WithRatingCache(c)

	for i := 0; i < 3; i++ {
		_, err := f.svc.List(context.Background(), Query{})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.services.loads)
	assert.Equal(t, 3.0, c.values[1])
}

func TestProfilePlanExpired(t *testing.T) {
	f := newFixture()
	shop := f.addUser(&models.User{ID: 4, Username: "tienda", ProfileType: models.ProfileTypeShop, MembershipExpiresAt: tptr(now.Add(-time.Minute))})

	_, err := f.svc.Profile(context.Background(), "tienda", 0)
	assert.ErrorIs(t, err, ErrPlanExpired)

	_, err = f.svc.Profile(context.Background(), "tienda", 99)
	assert.ErrorIs(t, err, ErrPlanExpired)

	view, err := f.svc.Profile(context.Background(), "tienda", shop.ID)
	require.NoError(t, err)
	assert.True(t, view.IsOwner)

	_, err = f.svc.Profile(context.Background(), "nadie", 0)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileSubscriberSeesPosts(t *testing.T) {
	f := newFixture()
	creator := f.addUser(&models.User{ID: 1, Username: "ana", ProfileType: models.ProfileTypeCreator})
	f.posts.posts = []models.Post{{ID: 1, AuthorID: 1, Author: creator, Body: "full"}}
	expires := now.AddDate(0, 0, 5)
	f.subs.rows = []models.ProfileSubscription{{SubscriberID: 2, ProfileID: 1, Status: models.SubscriptionStatusActive, ExpiresAt: expires}}

	view, err := f.svc.Profile(context.Background(), "ana", 2)
	require.NoError(t, err)
	assert.True(t, view.IsSubscribed)
	require.NotNil(t, view.SubscriptionExpiresAt)
	assert.Equal(t, expires, *view.SubscriptionExpiresAt)
	assert.False(t, view.Posts[0].Paywalled)

	view, err = f.svc.Profile(context.Background(), "ana", 3)
	require.NoError(t, err)
	assert.False(t, view.IsSubscribed)
	assert.True(t, view.Posts[0].Paywalled)
	assert.Equal(t, "full…", view.Posts[0].Body)
}

func TestServicesSortedByDistance(t *testing.T) {
	f := newFixture()
	f.addUser(&models.User{ID: 1, ProfileType: models.ProfileTypeProfessional, Latitude: fptr(0), Longitude: fptr(2)})
	f.addUser(&models.User{ID: 2, ProfileType: models.ProfileTypeProfessional, Latitude: fptr(0), Longitude: fptr(1)})
	f.addUser(&models.User{ID: 3, ProfileType: models.ProfileTypeShop})
	f.addUser(&models.User{ID: 4, ProfileType: models.ProfileTypeCreator})

	cards, err := f.svc.Services(context.Background(), DirectoryQuery{Lat: fptr(0), Lng: fptr(0)})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, uint(2), cards[0].ID)
	assert.Equal(t, uint(1), cards[1].ID)
}

func TestDashboard(t *testing.T) {
	f := newFixture()
	f.addUser(&models.User{ID: 1, Username: "ana", MembershipExpiresAt: tptr(now.Add(36 * time.Hour))})

	d, err := f.svc.Dashboard(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, d.Active)
	assert.Equal(t, 2, d.DaysRemaining)
	assert.Equal(t, "ana", d.Username)
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 111.19, Haversine(0, 0, 0, 1), 0.01)
	assert.InDelta(t, 0, Haversine(-33.45, -70.66, -33.45, -70.66), 1e-9)
}
