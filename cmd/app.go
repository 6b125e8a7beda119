package cmd

import (
	"context"
	"fmt"

	"api-poller/core/config"
	"api-poller/core/database"
	"api-poller/core/fetch"
	"api-poller/core/lock"
	"api-poller/core/logger"
	"api-poller/core/secrets"
	"api-poller/core/storage"
	"api-poller/feature/constituents"
	constituentModels "api-poller/feature/constituents/models"
	"api-poller/feature/integrity"
	"api-poller/feature/poller"
	pollerModels "api-poller/feature/poller/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds everything a command needs to run poller and line item work.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB

	// store is nil when object storage is unreachable.
	store storage.Client

	constituents *constituents.Feature
	poller       *poller.Feature
	integrity    *integrity.Feature

	closers []func() error
}

// newApp loads configuration and connects every collaborator. The database
// is required; the page archive is disabled when storage is unreachable.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(logg)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection required: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := migrate(db); err != nil {
			return nil, err
		}
		logg.Info("Database schema migrated")
	}

	a := &app{cfg: cfg, logger: logg, db: db}

	locker, closeLocker, err := lock.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeLocker)
	if cfg.Redis.Addr == "" {
		logg.Warn("No redis address configured, identity locks are local to this process")
	}

	store, err := secrets.NewStore(ctx, cfg.Secrets)
	if err != nil {
		return nil, err
	}
	client := fetch.NewClient(store, cfg.Poller.Env, cfg.Poller.FetchTimeout)

	a.constituents = constituents.NewFeature(db, locker, logg, cfg.Poller.AllowDeactivation)

	var archive *poller.Archive
	if a.store = openStorage(ctx, cfg, logg); a.store != nil {
		archive = poller.NewArchive(a.store, cfg.Storage.Bucket)
	}
	a.poller = poller.NewFeature(db, client, archive, a.constituents.Service(), logg, cfg.Poller)
	a.integrity = integrity.NewFeature(a.store, cfg.Storage.Bucket, cfg.Storage.Region, logg, db, allModels())
	return a, nil
}

// openStorage returns nil when the archive bucket cannot be reached, which
// disables page archiving.
func openStorage(ctx context.Context, cfg *config.Config, logg *zap.Logger) storage.Client {
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		logg.Warn("Storage unavailable, pages will not be archived", zap.Error(err))
		return nil
	}
	if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
		logg.Warn("Archive bucket unavailable, pages will not be archived", zap.Error(err))
		return nil
	}
	return client
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("Close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func allModels() []any {
	return append(constituentModels.All(), pollerModels.All()...)
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// expectedSchema merges the expected columns of every feature.
func expectedSchema() map[string][]string {
	out := constituentModels.ExpectedSchema()
	for table, cols := range pollerModels.ExpectedSchema() {
		out[table] = cols
	}
	return out
}
