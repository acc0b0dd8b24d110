// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"

	pagesettingsstore "github.com/dalemusser/pagecms/internal/app/store/pagesettings"
	"github.com/dalemusser/pagecms/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if err := seedPageSettings(ctx, db, logger); err != nil {
		return err
	}
	return nil
}

// seedPageSettings creates an empty settings record for every page that has
// none. Values stay absent so the defaults table keeps applying until an
// admin saves the form.
func seedPageSettings(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := pagesettingsstore.New(db)

	for _, slug := range models.AllPageSlugs() {
		created, err := store.Seed(ctx, slug)
		if err != nil {
			logger.Error("failed to seed page settings",
				zap.String("page", slug),
				zap.Error(err))
			return err
		}
		if created {
			logger.Info("seeded empty page settings", zap.String("page", slug))
		}
	}

	return nil
}
