package cmd

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/contentloom/storyforge/internal/catalog"
	"github.com/contentloom/storyforge/internal/config"
	"github.com/contentloom/storyforge/internal/dispatcher"
	platformdb "github.com/contentloom/storyforge/internal/platform/db"
	"github.com/contentloom/storyforge/internal/ideasource"
	"github.com/contentloom/storyforge/internal/platform/logger"
	"github.com/contentloom/storyforge/internal/processor"
	"github.com/contentloom/storyforge/internal/selector"
	"github.com/contentloom/storyforge/internal/store"
)

// wiring bundles everything assembled once at process startup and shared
// across the daemon loop or a one-shot step invocation.
type wiring struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *gorm.DB
	dispatcher *dispatcher.Dispatcher
	registry   *processor.Registry
}

func wire() (*wiring, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}

	gdb, err := platformdb.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := platformdb.AutoMigrate(gdb); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	cat := catalog.Default()
	validator := catalog.NewValidator(cat)

	storyRepo := store.NewStoryRepo(gdb, log, validator)
	titleRepo := store.NewTitleRepo(gdb, log)
	contentRepo := store.NewContentRepo(gdb, log)
	reviewRepo := store.NewReviewRepo(gdb, log)
	sel := selector.New(gdb, log)

	var ideas ideasource.IdeaSource
	if cfg.IdeaSourceBaseURL != "" {
		httpSource, err := ideasource.NewHTTPSource(log, ideasource.HTTPConfig{BaseURL: cfg.IdeaSourceBaseURL})
		if err != nil {
			return nil, fmt.Errorf("idea source init: %w", err)
		}
		ideas = httpSource
	} else {
		ideas = ideasource.NewMemorySource()
		log.Warn("no idea_source_base_url configured, using in-memory idea source")
	}

	registry := processor.NewRegistry()

	d := dispatcher.New(dispatcher.Config{
		DB:               gdb,
		Log:              log,
		Catalog:          cat,
		Validator:        validator,
		StoryRepo:        storyRepo,
		TitleRepo:        titleRepo,
		ContentRepo:      contentRepo,
		ReviewRepo:       reviewRepo,
		Selector:         sel,
		Ideas:            ideas,
		Registry:         registry,
		DefaultThreshold: cfg.PassThresholdDefault,
		Thresholds:       cfg.StageThresholds,
	})

	return &wiring{cfg: cfg, log: log, db: gdb, dispatcher: d, registry: registry}, nil
}
