// internal/domain/models/pagesettings.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PageSettings holds the editable content of one marketing page.
// Each page has exactly one settings document, keyed by Page.
type PageSettings struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Page string             `bson:"page" json:"page"` // page slug: "blogs", "about-me", ...

	// Values holds scalar text and stored media paths keyed by field key.
	// On pages with several forms the key is group-qualified ("banner:label").
	// A missing key means the value was never set.
	Values map[string]string `bson:"values,omitempty" json:"values,omitempty"`

	// Lists holds list-valued fields keyed by field key.
	Lists map[string][]ListItem `bson:"lists,omitempty" json:"lists,omitempty"`

	// Audit fields
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Value returns the stored value for key and whether it is present.
func (s *PageSettings) Value(key string) (string, bool) {
	if s == nil || s.Values == nil {
		return "", false
	}
	v, ok := s.Values[key]
	return v, ok
}

// List returns the stored list for key and whether it is present.
// A present list may be empty.
func (s *PageSettings) List(key string) ([]ListItem, bool) {
	if s == nil || s.Lists == nil {
		return nil, false
	}
	items, ok := s.Lists[key]
	return items, ok
}

// ListItem is one entry of a list-valued field (a quote, an innovation,
// a video, a year option). ID is assigned when the item is created and
// never changes; position in the list carries the order.
type ListItem struct {
	ID     string            `bson:"id" json:"id"`
	Values map[string]string `bson:"values,omitempty" json:"values,omitempty"`
	Video  *VideoSource      `bson:"video,omitempty" json:"video,omitempty"`
}

// Page slugs
const (
	PageAboutMe          = "about-me"
	PageBlogs            = "blogs"
	PageBooks            = "books"
	PageDonation         = "donation"
	PageEntrepreneurship = "entrepreneurship"
	PageEvents           = "events"
	PageLifeEvents       = "life-events"
	PageTechnology       = "technology"
	PageVideos           = "videos"
)

// AllPageSlugs returns all page slugs in menu order.
func AllPageSlugs() []string {
	return []string{
		PageAboutMe,
		PageBlogs,
		PageBooks,
		PageDonation,
		PageEntrepreneurship,
		PageEvents,
		PageLifeEvents,
		PageTechnology,
		PageVideos,
	}
}

// IsValidPageSlug checks if a slug is valid.
func IsValidPageSlug(slug string) bool {
	for _, s := range AllPageSlugs() {
		if s == slug {
			return true
		}
	}
	return false
}
