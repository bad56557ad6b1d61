// Package scenario parses scenario command flags and runs one Lua script.
package scenario

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"time"

	entrypoint "github.com/louisbranch/budgetstory/internal/platform/cmd"
	"github.com/louisbranch/budgetstory/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	Scenario    string        `env:"STORY_SCENARIO_FILE"`
	DataDir     string        `env:"STORY_SCENARIO_DATA_DIR"`
	Assertions  bool          `env:"STORY_SCENARIO_ASSERT"       envDefault:"true"`
	Verbose     bool          `env:"STORY_SCENARIO_VERBOSE"`
	LoadTimeout time.Duration `env:"STORY_SCENARIO_LOAD_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return entrypoint.Load(fs, args, func(fs *flag.FlagSet, cfg *Config) {
		fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
		fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "base directory for dataset paths (defaults to the script directory)")
		fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
		fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
		fs.DurationVar(&cfg.LoadTimeout, "load-timeout", cfg.LoadTimeout, "timeout for loading dataset documents")
	})
}

// Run executes the scenario command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}

	logger := log.New(errOut, "", 0)
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceScenario, func(ctx context.Context) error {
		if err := scenario.RunFile(ctx, scenario.Config{
			BaseDir:     cfg.DataDir,
			DatasetLoad: cfg.LoadTimeout,
			Assertions:  mode,
			Verbose:     cfg.Verbose,
			Logger:      logger,
		}, cfg.Scenario); err != nil {
			return err
		}
		log.New(out, "", 0).Printf("scenario passed: %s", cfg.Scenario)
		return nil
	})
}
