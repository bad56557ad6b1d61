// Package scenario runs Lua-scripted interaction scenarios against a story
// session on a manual clock.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/louisbranch/budgetstory/internal/platform/timeouts"
	"github.com/louisbranch/budgetstory/internal/services/story/layout"
	"github.com/louisbranch/budgetstory/internal/services/story/schedule"
	"github.com/louisbranch/budgetstory/internal/services/story/session"
	"github.com/louisbranch/budgetstory/internal/services/story/tracker"
)

// Config controls scenario execution.
type Config struct {
	// BaseDir resolves relative dataset paths. RunFile sets it to the
	// script's directory when empty.
	BaseDir     string
	DatasetLoad time.Duration
	Assertions  AssertionMode
	Verbose     bool
	Logger      *log.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		DatasetLoad: timeouts.DatasetLoad,
		Assertions:  AssertionStrict,
	}
}

// Runner executes scenarios. Each run gets a fresh clock and session.
type Runner struct {
	baseDir     string
	datasetLoad time.Duration
	assertions  Assertions
	logger      *log.Logger
	verbose     bool
}

// NewRunner prepares a scenario runner.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	datasetLoad := cfg.DatasetLoad
	if datasetLoad <= 0 {
		datasetLoad = timeouts.DatasetLoad
	}
	return &Runner{
		baseDir:     cfg.BaseDir,
		datasetLoad: datasetLoad,
		assertions:  Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:      logger,
		verbose:     cfg.Verbose,
	}
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) error {
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = filepath.Dir(path)
	}
	return NewRunner(cfg).RunScenario(ctx, scenario)
}

// scenarioState is what the steps build up during one run.
type scenarioState struct {
	clock    *schedule.Manual
	records  []layout.Record
	sections []tracker.Section
	navIDs   []string
	session  *session.Controller
	scrolls  []string
}

// RunScenario executes the scenario steps in order.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))
	state := &scenarioState{
		clock: schedule.NewManual(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)),
	}
	defer func() {
		if state.session != nil {
			state.session.Close()
		}
	}()

	for index, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		if err := r.runStep(ctx, state, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (t=%s)", stepNumber, len(scenario.Steps), step.Kind, state.clock.Now().Format("15:04:05.000"))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) ensureSession(state *scenarioState) *session.Controller {
	if state.session != nil {
		return state.session
	}
	state.session = session.New(state.clock, state.records, session.Options{
		Sections: state.sections,
		NavIDs:   state.navIDs,
		Logger:   r.sessionLogger(),
		Hooks: session.Hooks{
			OnScrollTo: func(id string) { state.scrolls = append(state.scrolls, id) },
		},
	})
	return state.session
}

func (r *Runner) sessionLogger() *log.Logger {
	if r.verbose {
		return r.logger
	}
	return log.New(io.Discard, "", 0)
}

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
