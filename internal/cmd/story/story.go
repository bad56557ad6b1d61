// Package story parses story command flags and composes the HTTP entrypoint.
package story

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	entrypoint "github.com/louisbranch/budgetstory/internal/platform/cmd"
	"github.com/louisbranch/budgetstory/internal/platform/timeouts"
	"github.com/louisbranch/budgetstory/internal/services/story/dataset"
	"github.com/louisbranch/budgetstory/internal/services/story/server"
)

// Config holds story command configuration.
type Config struct {
	HTTPAddr        string        `env:"STORY_HTTP_ADDR"        envDefault:":8080"`
	DataDir         string        `env:"STORY_DATA_DIR"         envDefault:"data"`
	ResizeDebounce  time.Duration `env:"STORY_RESIZE_DEBOUNCE"  envDefault:"250ms"`
	LoadTimeout     time.Duration `env:"STORY_LOAD_TIMEOUT"     envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"STORY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return entrypoint.Load(fs, args, func(fs *flag.FlagSet, cfg *Config) {
		fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "story HTTP listen address")
		fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the story documents")
		fs.DurationVar(&cfg.ResizeDebounce, "resize-debounce", cfg.ResizeDebounce, "quiet period before a resize triggers relayout")
		fs.DurationVar(&cfg.LoadTimeout, "load-timeout", cfg.LoadTimeout, "timeout for loading the story documents")
		fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time allowed to drain sessions and flush traces on stop")
	})
}

// Run loads the story documents and serves them until ctx is done.
func Run(ctx context.Context, cfg Config) error {
	opts := entrypoint.RunOptions{ShutdownTimeout: cfg.ShutdownTimeout}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceStory, opts, func(ctx context.Context) error {
		bundle, err := loadBundle(ctx, cfg)
		if err != nil {
			return err
		}
		srv, err := server.NewServer(server.Config{
			HTTPAddr:        cfg.HTTPAddr,
			ShutdownTimeout: cfg.ShutdownTimeout,
			ResizeDebounce:  cfg.ResizeDebounce,
			Logger:          log.Default(),
		}, bundle)
		if err != nil {
			return fmt.Errorf("build story server: %w", err)
		}
		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve story: %w", err)
		}
		return nil
	})
}

func loadBundle(ctx context.Context, cfg Config) (*dataset.Bundle, error) {
	timeout := cfg.LoadTimeout
	if timeout <= 0 {
		timeout = timeouts.DatasetLoad
	}
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	bundle, err := dataset.Load(loadCtx, os.DirFS(cfg.DataDir))
	if err != nil {
		return nil, fmt.Errorf("load story data from %s: %w", cfg.DataDir, err)
	}
	log.Printf("loaded story data dir=%s paragraphs=%d sections=%d duration=%s",
		cfg.DataDir, len(bundle.Viz.Paragraphs), len(bundle.Story.Sections), time.Since(start))
	return bundle, nil
}
