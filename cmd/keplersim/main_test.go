package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/spf13/cobra"
)

func newRunCmd(t *testing.T) *cobra.Command {
	t.Helper()
	configFile = ""
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd)
	return cmd
}

func TestResolveConfigPreset(t *testing.T) {
	cmd := newRunCmd(t)

	cfg, name, err := resolveConfig(cmd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if name != "keplertest" {
		t.Errorf("expected default preset keplertest, got %s", name)
	}
	// unchanged flags do not override the preset
	if cfg.Dt != config.GetPreset("keplertest").Dt {
		t.Errorf("dt overridden by flag default: %g", cfg.Dt)
	}

	if err := cmd.Flags().Set("dt", "0.5"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("integrator", "dkd"); err != nil {
		t.Fatal(err)
	}
	cfg, _, err = resolveConfig(cmd, []string{"circular"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dt != 0.5 || cfg.Integrator != "dkd" {
		t.Errorf("flags not applied: dt=%g integrator=%s", cfg.Dt, cfg.Integrator)
	}
}

func TestResolveConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.ini")
	if err := os.WriteFile(path, []byte(config.ExampleINI), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newRunCmd(t)
	configFile = path
	defer func() { configFile = "" }()

	cfg, name, err := resolveConfig(cmd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if name != "pair" {
		t.Errorf("expected run name from file, got %s", name)
	}
	if cfg.Integrator != "dkd" || len(cfg.Bodies) != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestResolveConfigErrors(t *testing.T) {
	cmd := newRunCmd(t)
	if _, _, err := resolveConfig(cmd, []string{"nope"}); err == nil {
		t.Error("expected unknown preset error")
	}

	if err := cmd.Flags().Set("dt", "-1"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := resolveConfig(cmd, nil); err == nil {
		t.Error("expected validation error")
	}
}

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[string]float64{"b": 1, "a": 2, "c": 3})
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("sortedKeys = %v", got)
	}
}
