package di

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/dmid-labs/scangate/internal/config"
)

// ConfigService wraps the loaded configuration with hot-reload support.
// It uses atomic.Pointer for lock-free config reads, allowing in-flight
// requests to continue uninterrupted while new requests use reloaded config.
type ConfigService struct {
	config  atomic.Pointer[config.Config]
	watcher *config.Watcher
	path    string
}

var _ config.RuntimeConfigGetter = (*ConfigService)(nil)

// Get returns the current configuration via atomic load (lock-free read).
func (c *ConfigService) Get() *config.Config {
	return c.config.Load()
}

// Path returns the config file path, or empty for environment-only mode.
func (c *ConfigService) Path() string {
	return c.path
}

// StartWatching begins watching the config file for changes.
// It registers a callback to atomically swap the config on reload.
// This should be called after the DI container is fully initialized.
// The context controls the watcher lifecycle - cancel to stop watching.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}

	c.watcher.OnReload(func(newCfg *config.Config) error {
		c.config.Store(newCfg)
		log.Info().Str("path", c.path).Msg("config hot-reloaded successfully")
		return nil
	})

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// OnReload registers an additional hot-reload callback. The swap
// callback registered by StartWatching always runs first.
func (c *ConfigService) OnReload(cb config.ReloadCallback) {
	if c.watcher == nil {
		return
	}
	c.watcher.OnReload(cb)
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads the configuration and creates a hot-reload watcher.
// With an empty path the environment-variable surface is used instead
// and hot-reload is unavailable.
// The watcher is created but not started - call StartWatching() after
// container init.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to build config from environment: %w", err)
		}
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svc := &ConfigService{path: path}
	svc.config.Store(cfg)

	if path != "" {
		// Warn on failure, don't error - hot-reload is optional
		watcher, err := config.NewWatcher(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
		} else {
			svc.watcher = watcher
		}
	}

	return svc, nil
}
