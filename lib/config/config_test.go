// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := writeConfig(t, "hearth.yaml", `
daemon:
  url: http://10.0.0.2:7420
console:
  starred_view: portals
timing:
  transition_cooldown: 500ms
  reconnect_stability: 3s
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Daemon.URL != "http://10.0.0.2:7420" {
		t.Errorf("Daemon.URL = %q", cfg.Daemon.URL)
	}
	if cfg.Console.StarredView != "portals" {
		t.Errorf("StarredView = %q, want %q", cfg.Console.StarredView, "portals")
	}
	if cfg.Timing.TransitionCooldown != 500*time.Millisecond {
		t.Errorf("TransitionCooldown = %v, want 500ms", cfg.Timing.TransitionCooldown)
	}
	if cfg.Timing.ReconnectStability != 3*time.Second {
		t.Errorf("ReconnectStability = %v, want 3s", cfg.Timing.ReconnectStability)
	}
	// Unset fields keep their defaults.
	if cfg.Timing.ExitSettle != 150*time.Millisecond {
		t.Errorf("ExitSettle = %v, want default 150ms", cfg.Timing.ExitSettle)
	}
}

func TestLoadFileJSONC(t *testing.T) {
	path := writeConfig(t, "hearth.jsonc", `{
  // local daemon on the LAN
  "daemon": {"url": "http://192.168.1.10:7420"},
  "console": {"starred_view": "storage"},
}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Daemon.URL != "http://192.168.1.10:7420" {
		t.Errorf("Daemon.URL = %q", cfg.Daemon.URL)
	}
	if cfg.Console.StarredView != "storage" {
		t.Errorf("StarredView = %q, want %q", cfg.Console.StarredView, "storage")
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/skipper")
	path := writeConfig(t, "hearth.yaml", `
console:
  state_path: ${HOME}/.hearth/state.json
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Console.StatePath != "/home/skipper/.hearth/state.json" {
		t.Errorf("StatePath = %q, want expanded ${HOME}", cfg.Console.StatePath)
	}
}

func TestValidateRejectsBadTimings(t *testing.T) {
	cfg := Default()
	cfg.Timing.TransitionCooldown = 0
	cfg.Timing.OutageThreshold = -time.Second
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted non-positive timers")
	}
}

func TestLoadWithoutEnvReturnsDefaults(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timing.TransitionCooldown != time.Second {
		t.Errorf("TransitionCooldown = %v, want default 1s", cfg.Timing.TransitionCooldown)
	}
}
