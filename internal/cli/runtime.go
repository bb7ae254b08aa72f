package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/chanomhub/gamedl/internal/config"
	"github.com/chanomhub/gamedl/internal/engine"
	"github.com/chanomhub/gamedl/internal/events"
	"github.com/chanomhub/gamedl/internal/helper"
	"github.com/chanomhub/gamedl/internal/library"
	"github.com/chanomhub/gamedl/internal/logger"
	"github.com/chanomhub/gamedl/internal/registry"
	"github.com/chanomhub/gamedl/internal/repository"
	"github.com/chanomhub/gamedl/internal/upload"
)

const shutdownTimeout = 5 * time.Second

// runtime is everything one command needs, opened from the configuration.
type runtime struct {
	cfg      *config.Config
	db       *repository.BboltRepository
	registry *registry.Registry
	library  *library.Library
	engine   *engine.Engine
}

func open(c *cli.Context, emitter events.Emitter) (*runtime, error) {
	cfg, err := config.GetConfig(c.String(configFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if c.Bool(debugFlag.Name) {
		cfg.Debug = true
	}

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	if err := logger.InitLogging(cfg.Debug, cfg.LogPath()); err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}

	db, err := repository.NewBboltRepository(cfg.DatabasePath())
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var store registry.Store = repository.NewFileStore(cfg.RegistryPath())
	if cfg.Storage == config.StorageBbolt {
		store = db
	}

	reg := registry.New(store)

	repaired, err := reg.Load()
	if err != nil {
		db.Close()
		logger.Close()
		return nil, fmt.Errorf("loading downloads: %w", err)
	}

	if repaired > 0 {
		logger.Infof("Marked %d interrupted downloads as failed", repaired)
	}

	lib := library.New(db)

	opts := []engine.Option{
		engine.WithEmitter(emitter),
		engine.WithNotifier(events.NewThrottled(
			events.EmitterNotifier{Emitter: emitter},
			cfg.Notifications.PerMinute,
			cfg.Notifications.Burst,
		)),
		engine.WithLibrary(lib),
		engine.WithSettings(db),
	}

	if cfg.Upload.Bucket != "" {
		uploader, err := upload.NewS3Uploader(cfg.Upload)
		if err != nil {
			logger.Warnf("Uploads disabled: %v", err)
		} else {
			opts = append(opts, engine.WithUploader(uploader))
		}
	}

	launcher := &helper.Launcher{
		Binary: cfg.Helper.Binary,
		Args:   cfg.Helper.Args,
	}

	eng := engine.New(&engine.Config{
		DownloadDir: cfg.DownloadDir,
		Provider:    cfg.Helper.Provider,
	}, reg, launcher, opts...)

	return &runtime{
		cfg:      cfg,
		db:       db,
		registry: reg,
		library:  lib,
		engine:   eng,
	}, nil
}

func (rt *runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := rt.engine.Shutdown(ctx)
	rt.registry.Close()

	if err := rt.db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	logger.Close()

	return shutdownErr
}

func withRuntime(emitter func(c *cli.Context) events.Emitter, f func(rt *runtime, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := open(c, emitter(c))
		if err != nil {
			return err
		}
		defer rt.Close()

		return f(rt, c)
	}
}

func discard(*cli.Context) events.Emitter { return events.Discard }
