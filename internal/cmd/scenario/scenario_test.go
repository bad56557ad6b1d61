package scenario

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("scenario", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !cfg.Assertions {
		t.Fatal("expected assertions to default to true")
	}
	if cfg.Scenario != "" {
		t.Fatalf("expected no default scenario, got %q", cfg.Scenario)
	}
}

func TestParseConfigFlags(t *testing.T) {
	t.Setenv("STORY_SCENARIO_FILE", "env.lua")

	fs := flag.NewFlagSet("scenario", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-scenario", "flag.lua", "-assert=false", "-verbose"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Scenario != "flag.lua" {
		t.Fatalf("expected flag scenario, got %q", cfg.Scenario)
	}
	if cfg.Assertions || !cfg.Verbose {
		t.Fatalf("expected assertions off and verbose on, got %+v", cfg)
	}
}

func TestRunRequiresScenario(t *testing.T) {
	if err := Run(context.Background(), Config{}, nil, nil); err == nil {
		t.Fatal("expected missing scenario path to fail")
	}
}

func TestRunExecutesScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smoke.lua")
	source := `local scene = Scenario.new("smoke")
scene:records({{year = 1965, category = "promise_citizen"}})
scene:sections({{id = "explore", years = {1965, 2026}}})
scene:relayout(1280, 800)
scene:expect_relayouts(1)
scene:expect_mode("narrative")
return scene
`
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	var out bytes.Buffer
	if err := Run(context.Background(), Config{Scenario: path, Assertions: true}, &out, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "scenario passed") {
		t.Fatalf("output = %q, want pass line", out.String())
	}
}
