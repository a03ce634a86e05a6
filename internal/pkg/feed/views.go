package feed

import (
	"time"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/internal/pkg/access"
	"github.com/uzeed/uzeed/internal/pkg/utils"
)

type MediaView struct {
	ID   uint   `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type AuthorView struct {
	ID                uint     `json:"id"`
	Username          string   `json:"username"`
	DisplayName       string   `json:"displayName"`
	AvatarURL         string   `json:"avatarUrl"`
	CoverURL          string   `json:"coverUrl"`
	Bio               string   `json:"bio"`
	City              string   `json:"city"`
	ServiceCategory   string   `json:"serviceCategory"`
	ProfileType       string   `json:"profileType"`
	SubscriptionPrice *int     `json:"subscriptionPrice"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	Rating            *float64 `json:"rating"`
}

// PostView is a post as one viewer may see it. Paywalled posts carry a
// shortened body and no media.
type PostView struct {
	ID           uint        `json:"id"`
	Title        string      `json:"title"`
	Body         string      `json:"body"`
	CreatedAt    time.Time   `json:"createdAt"`
	Price        int         `json:"price"`
	IsPublic     bool        `json:"isPublic"`
	Type         string      `json:"type"`
	Media        []MediaView `json:"media"`
	Preview      *MediaView  `json:"preview"`
	Paywalled    bool        `json:"paywalled"`
	IsSubscribed bool        `json:"isSubscribed"`
	Distance     *float64    `json:"distance"`
	Author       *AuthorView `json:"author,omitempty"`
}

type Page struct {
	Posts    []PostView `json:"posts"`
	NextPage *int       `json:"nextPage"`
}

func newAuthorView(u *models.User, rating *float64) *AuthorView {
	if u == nil {
		return nil
	}
	return &AuthorView{
		ID:                u.ID,
		Username:          u.Username,
		DisplayName:       u.DisplayName,
		AvatarURL:         utils.AvatarURL(u.AvatarURL, u.Email),
		CoverURL:          u.CoverURL,
		Bio:               u.Bio,
		City:              u.City,
		ServiceCategory:   u.ServiceCategory,
		ProfileType:       u.ProfileType,
		SubscriptionPrice: u.SubscriptionPrice,
		Latitude:          u.Latitude,
		Longitude:         u.Longitude,
		Rating:            rating,
	}
}

// NewPostView applies the paywall for viewerID. subscribed is whether the
// viewer holds an active subscription to the author. mediaType, when set,
// keeps only media of that type.
func NewPostView(p *models.Post, viewerID uint, subscribed bool, mediaType string) PostView {
	paywalled := access.IsPaywalledFor(p, viewerID, subscribed)

	media := make([]MediaView, 0, len(p.Media))
	for _, m := range p.Media {
		if mediaType != "" && m.Type != mediaType {
			continue
		}
		media = append(media, MediaView{ID: m.ID, Type: m.Type, URL: m.URL})
	}

	v := PostView{
		ID:           p.ID,
		Title:        p.Title,
		Body:         p.Body,
		CreatedAt:    p.CreatedAt,
		Price:        p.Price,
		IsPublic:     p.IsPublic,
		Type:         p.Type,
		Media:        media,
		Paywalled:    paywalled,
		IsSubscribed: viewerID != 0 && (subscribed || viewerID == p.AuthorID),
	}
	if paywalled {
		v.Body = access.Redact(p.Body)
		v.Media = []MediaView{}
		return v
	}
	if len(media) > 0 {
		preview := media[0]
		v.Preview = &preview
	}
	return v
}
