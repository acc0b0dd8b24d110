// internal/app/store/entities/entitystore.go
package entitystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/pagecms/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no entity matches.
var ErrNotFound = errors.New("entity not found")

// Store provides access to the entities collection, which holds every
// About-page collection (sections, awards, corporate journey, associates)
// discriminated by kind.
type Store struct {
	c *mongo.Collection
}

// New creates a new entity store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("entities")}
}

// List returns the entities of a kind in display order.
func (s *Store) List(ctx context.Context, kind string) ([]models.Entity, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "order", Value: 1},
		{Key: "created_at", Value: 1},
	})
	cur, err := s.c.Find(ctx, bson.M{"kind": kind}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Entity
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one entity of a kind.
func (s *Store) Get(ctx context.Context, kind string, id primitive.ObjectID) (models.Entity, error) {
	var e models.Entity
	err := s.c.FindOne(ctx, bson.M{"_id": id, "kind": kind}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return models.Entity{}, ErrNotFound
	}
	if err != nil {
		return models.Entity{}, err
	}
	return e, nil
}

// Create inserts a new entity. A zero Order places it after the last one.
func (s *Store) Create(ctx context.Context, e models.Entity) (models.Entity, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Order == 0 {
		n, err := s.c.CountDocuments(ctx, bson.M{"kind": e.Kind})
		if err != nil {
			return models.Entity{}, err
		}
		e.Order = int(n) + 1
	}
	e.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Entity{}, err
	}
	return e, nil
}

// Update replaces the values of one entity of a kind and returns the
// entity as it was before, so the caller can clean up superseded files.
func (s *Store) Update(ctx context.Context, kind string, id primitive.ObjectID, values map[string]string) (models.Entity, error) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"values": values, "updated_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var old models.Entity
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id, "kind": kind}, update, opts).Decode(&old)
	if err == mongo.ErrNoDocuments {
		return models.Entity{}, ErrNotFound
	}
	if err != nil {
		return models.Entity{}, err
	}
	return old, nil
}

// Delete removes one entity of a kind and returns what was removed so the
// caller can clean up its stored files.
func (s *Store) Delete(ctx context.Context, kind string, id primitive.ObjectID) (models.Entity, error) {
	var e models.Entity
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id, "kind": kind}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return models.Entity{}, ErrNotFound
	}
	if err != nil {
		return models.Entity{}, err
	}
	return e, nil
}

// Count returns the number of entities of a kind.
func (s *Store) Count(ctx context.Context, kind string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"kind": kind})
}
