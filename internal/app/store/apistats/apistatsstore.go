// Package apistats stores per-bucket request statistics for the API surface.
package apistats

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection for API statistics.
const CollectionName = "api_stats"

// StatType identifies the kind of API operation being tracked.
type StatType string

const (
	StatTypePageRead       StatType = "page_read"
	StatTypeSettingsUpdate StatType = "settings_update"
	StatTypeEntityWrite    StatType = "entity_write"
)

// Bucket is one time bucket of aggregated statistics.
type Bucket struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Bucket         time.Time          `bson:"bucket"`          // bucket start
	BucketDuration string             `bson:"bucket_duration"` // "1h", "15m"
	StatType       StatType           `bson:"stat_type"`
	Requests       int64              `bson:"requests"`
	Errors         int64              `bson:"errors"` // 4xx and 5xx
	TotalMs        int64              `bson:"total_ms"`
	MinMs          int64              `bson:"min_ms"`
	MaxMs          int64              `bson:"max_ms"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// Store provides API statistics persistence.
type Store struct {
	c *mongo.Collection
}

// New creates a new API stats store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// TruncateToBucket truncates a time to the start of its bucket.
func TruncateToBucket(t time.Time, duration time.Duration) time.Time {
	return t.UTC().Truncate(duration)
}

// Record adds one request to its bucket, creating the bucket if needed.
func (s *Store) Record(ctx context.Context, statType StatType, bucketDuration time.Duration, durationMs int64, isError bool) error {
	now := time.Now().UTC()
	bucket := TruncateToBucket(now, bucketDuration)
	durationStr := bucketDuration.String()

	// $min and $max also cover the insert case, so they stay out of $setOnInsert.
	inc := bson.M{
		"requests": 1,
		"total_ms": durationMs,
	}
	if isError {
		inc["errors"] = 1
	}
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"_id":             primitive.NewObjectID(),
			"bucket":          bucket,
			"bucket_duration": durationStr,
			"stat_type":       statType,
		},
		"$min": bson.M{"min_ms": durationMs},
		"$max": bson.M{"max_ms": durationMs},
	}

	_, err := s.c.UpdateOne(ctx, bson.M{
		"bucket":          bucket,
		"stat_type":       statType,
		"bucket_duration": durationStr,
	}, update, options.Update().SetUpsert(true))
	return err
}

// Summary totals one stat type over a range.
type Summary struct {
	StatType      StatType
	TotalRequests int64
	TotalErrors   int64
	AvgMs         float64
	MaxMs         int64
}

// GetSummary totals every stat type with buckets in [start, end].
func (s *Store) GetSummary(ctx context.Context, start, end time.Time) ([]Summary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"bucket": bson.M{"$gte": start.UTC(), "$lte": end.UTC()},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$stat_type",
			"requests": bson.M{"$sum": "$requests"},
			"errors":   bson.M{"$sum": "$errors"},
			"total_ms": bson.M{"$sum": "$total_ms"},
			"max_ms":   bson.M{"$max": "$max_ms"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Summary
	for cur.Next(ctx) {
		var doc struct {
			ID       string `bson:"_id"`
			Requests int64  `bson:"requests"`
			Errors   int64  `bson:"errors"`
			TotalMs  int64  `bson:"total_ms"`
			MaxMs    int64  `bson:"max_ms"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		sum := Summary{
			StatType:      StatType(doc.ID),
			TotalRequests: doc.Requests,
			TotalErrors:   doc.Errors,
			MaxMs:         doc.MaxMs,
		}
		if doc.Requests > 0 {
			sum.AvgMs = float64(doc.TotalMs) / float64(doc.Requests)
		}
		out = append(out, sum)
	}
	return out, cur.Err()
}

// DeleteOlderThan removes buckets that started before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"bucket": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
