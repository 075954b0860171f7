package main

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"kinetic/internal/api"
	"kinetic/internal/catalog"
	"kinetic/internal/config"
	"kinetic/internal/content"
	"kinetic/internal/ffmpeg"
	"kinetic/internal/inference"
	"kinetic/internal/logging"
	"kinetic/internal/objectstore"
	"kinetic/internal/pipeline"
	"kinetic/internal/step"
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

// services bundles the wired management surface for one command
// invocation. Close releases the catalog connection and inference pool.
type services struct {
	Config    *config.Config
	Logger    *slog.Logger
	Pipelines *api.PipelineService
	Streams   *api.StreamService
	Content   *api.ContentService

	store     *catalog.Store
	inference *inference.Pool
}

func (s *services) Close() {
	if s.inference != nil {
		s.inference.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

// withServices opens the catalog and object store, wires the execution
// engine and management services, runs fn, and tears everything down.
func (c *commandContext) withServices(fn func(*services) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	objects, err := objectstore.Open(cfg.ObjectStoreDir())
	if err != nil {
		store.Close()
		return err
	}

	contentSvc := content.NewService(store, objects)
	pool := inference.NewPool(cfg)
	env := &step.Env{
		Objects: objects,
		Content: contentSvc,
		HTTP: &http.Client{
			Timeout: time.Duration(cfg.Ingest.DownloadTimeoutSeconds) * time.Second,
		},
		FFmpeg:          ffmpeg.NewTool(cfg),
		Inference:       pool,
		DepthServiceURL: cfg.Inference.BaseURL,
	}
	engine := pipeline.New(store, objects, env, logger)

	svc := &services{
		Config:    cfg,
		Logger:    logger,
		Pipelines: api.NewPipelineService(store, objects, engine, cfg.LockDir(), logger),
		Streams:   api.NewStreamService(store, logger),
		Content:   api.NewContentService(store, contentSvc),
		store:     store,
		inference: pool,
	}
	defer svc.Close()
	return fn(svc)
}
