package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entity is a record of an independently managed collection shown on the
// About page: an about section, an award, a corporate journey step or an
// associate. Field values follow the kind's schema.
type Entity struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Kind     string             `bson:"kind" json:"kind"`
	Values   map[string]string  `bson:"values,omitempty" json:"values,omitempty"`
	Order    int                `bson:"order" json:"order"`
	IsActive bool               `bson:"is_active" json:"is_active"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Entity kinds. The kind doubles as the URL segment under /admin.
const (
	EntityAboutSections    = "about-sections"
	EntityAwards           = "awards"
	EntityCorporateJourney = "corporate-journey"
	EntityAssociates       = "associates"
)

// AllEntityKinds returns all entity kinds.
func AllEntityKinds() []string {
	return []string{
		EntityAboutSections,
		EntityAwards,
		EntityCorporateJourney,
		EntityAssociates,
	}
}

// IsValidEntityKind checks if a kind is valid.
func IsValidEntityKind(kind string) bool {
	for _, k := range AllEntityKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Value returns a field value, or "" when unset.
func (e *Entity) Value(key string) string {
	if e == nil || e.Values == nil {
		return ""
	}
	return e.Values[key]
}
