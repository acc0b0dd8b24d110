// internal/app/store/pagesettings/pagesettingsstore.go
package pagesettingsstore

import (
	"context"
	"time"

	"github.com/dalemusser/pagecms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the page_settings collection.
// Each page has a singleton settings document keyed by its slug.
type Store struct {
	c *mongo.Collection
}

// New creates a new page settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("page_settings")}
}

// Get returns the settings of a page.
// A page that was never saved yields an empty record, so every field
// reads as absent.
func (s *Store) Get(ctx context.Context, page string) (*models.PageSettings, error) {
	var settings models.PageSettings
	err := s.c.FindOne(ctx, bson.M{"page": page}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		return &models.PageSettings{Page: page}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Update writes the given values and lists of one page.
// Keys not passed are left untouched, so forms sharing a page document
// never overwrite each other's fields.
func (s *Store) Update(ctx context.Context, page string, values map[string]string, lists map[string][]models.ListItem) error {
	now := time.Now().UTC()

	set := bson.M{"updated_at": now}
	for k, v := range values {
		set["values."+k] = v
	}
	for k, items := range lists {
		if items == nil {
			items = []models.ListItem{}
		}
		set["lists."+k] = items
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":  primitive.NewObjectID(),
			"page": page,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, bson.M{"page": page}, update, opts)
	return err
}

// Seed creates an empty record for page unless one exists and reports
// whether it did. The record has no values and no updated_at, so the page
// still reads as never saved.
func (s *Store) Seed(ctx context.Context, page string) (bool, error) {
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":  primitive.NewObjectID(),
			"page": page,
		},
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"page": page}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

// All returns every saved page settings document.
func (s *Store) All(ctx context.Context) ([]models.PageSettings, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "page", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PageSettings
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Exists checks if settings for a page have been saved.
func (s *Store) Exists(ctx context.Context, page string) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"page": page})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
