package feed

import (
	"strings"

	"github.com/uzeed/uzeed/app/models"
)

const (
	DefaultLimit = 12
	MinLimit     = 6
	MaxLimit     = 24
)

const (
	TabForYou    = "for-you"
	TabFollowing = "following"
)

const (
	SortNew     = "new"
	SortPopular = "popular"
	SortNear    = "near"
)

var defaultAuthorTypes = []string{models.ProfileTypeCreator, models.ProfileTypeProfessional}

// Query selects one page of the feed. A zero ViewerID is an anonymous visitor.
type Query struct {
	ViewerID   uint
	Page       int
	Limit      int
	Tab        string
	Search     string
	Types      []string
	Categories []string
	Sort       string
	Lat        *float64
	Lng        *float64
	MediaType  string
}

// Normalize clamps paging and fills defaults.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit < MinLimit:
		q.Limit = MinLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	if q.Tab != TabFollowing {
		q.Tab = TabForYou
	}
	switch q.Sort {
	case SortPopular, SortNear:
	default:
		q.Sort = SortNew
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Types = cleanList(q.Types)
	if len(q.Types) == 0 {
		q.Types = defaultAuthorTypes
	}
	q.Categories = cleanList(q.Categories)
	q.MediaType = strings.ToUpper(strings.TrimSpace(q.MediaType))
	if q.MediaType != models.MediaTypeImage && q.MediaType != models.MediaTypeVideo {
		q.MediaType = ""
	}
	return q
}

// SplitList parses a comma separated query parameter.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return cleanList(strings.Split(raw, ","))
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
