package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"tradescribe/internal/analysis"
	"tradescribe/internal/captions"
	"tradescribe/internal/config"
	"tradescribe/internal/extract"
	"tradescribe/internal/logging"
	"tradescribe/internal/metadata"
	"tradescribe/internal/notifications"
	"tradescribe/internal/pipeline"
	"tradescribe/internal/progress"
	"tradescribe/internal/specbuild"
	"tradescribe/internal/speech"
	"tradescribe/internal/transcriptcache"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Paths:  []string{"stderr", filepath.Join(cfg.Paths.LogDir, "tradescribe.log")},
	})
}

func (c *commandContext) openCache(logger *slog.Logger) (*transcriptcache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return transcriptcache.Open(cfg.CacheDBPath(), cfg.Cache.MaxEntries, logger)
}

// buildRunner wires the full pipeline: cache, caption fast path, speech
// fallback, extraction, and reporting.
func (c *commandContext) buildRunner(logger *slog.Logger, store *transcriptcache.Store, reporter progress.Reporter) (*analysis.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	strategies := []pipeline.Strategy{
		captions.NewClient(cfg.Captions, logger),
		speech.NewService(cfg.Speech, cfg.Paths.WorkDir, cfg.YtDlpBinary(), cfg.FFmpegBinary(), logger),
	}
	coordinator := pipeline.NewCoordinator(store, strategies, reporter, logger)

	var metadataFetcher analysis.MetadataFetcher
	if cfg.Metadata.Enabled {
		metadataFetcher = metadata.NewClient(cfg.Metadata, logger)
	}

	return analysis.NewRunner(
		cfg,
		coordinator,
		extract.New(cfg.Extraction),
		specbuild.NewBuilder(cfg.Extraction.ParameterTolerance),
		metadataFetcher,
		notifications.NewService(cfg.Notifications),
		reporter,
		logger,
	), nil
}
