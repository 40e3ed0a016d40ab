// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the hearth console.
//
// Configuration is loaded from a single file specified by:
//   - HEARTH_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
// Files ending in .json or .jsonc are parsed as JSONC (comments and
// trailing commas allowed); everything else is parsed as YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the hearth console.
type Config struct {
	// Daemon configures the connection to the hearth daemon.
	Daemon DaemonConfig `yaml:"daemon"`

	// Console configures view behavior.
	Console ConsoleConfig `yaml:"console"`

	// Timing configures the coordination timers. Each value encodes an
	// assumed latency of a collaborator subsystem — see the field docs.
	Timing TimingConfig `yaml:"timing"`

	// Journal configures the local diagnostic journal.
	Journal JournalConfig `yaml:"journal"`
}

// DaemonConfig configures the channel connection to the daemon.
type DaemonConfig struct {
	// URL is the base URL of the hearth daemon (e.g.,
	// "http://homeserver.local:7420").
	URL string `yaml:"url"`

	// CredentialFile is the path to the admin credential presented
	// for privileged channel authentication. "-" reads from stdin.
	// Empty means prompt interactively.
	CredentialFile string `yaml:"credential_file"`
}

// ConsoleConfig configures view behavior.
type ConsoleConfig struct {
	// StarredView is the user's preferred view, selected when the
	// current view becomes inaccessible after leaving admin mode.
	StarredView string `yaml:"starred_view"`

	// StatePath is where the last active view and privilege flag are
	// persisted across restarts.
	StatePath string `yaml:"state_path"`

	// RestoreMaxAge bounds how old a persisted state may be and still
	// be restored. Stale state starts the console fresh.
	RestoreMaxAge time.Duration `yaml:"restore_max_age"`
}

// TimingConfig holds the coordination timer durations. The defaults
// encode latency assumptions about collaborator subsystems; raise
// them when running against a slow daemon rather than tolerating
// flapping.
type TimingConfig struct {
	// TransitionCooldown is the minimum gap between completed
	// privilege transitions. Requests arriving inside the window are
	// debounced into a single pending transition. Assumes channel
	// privileged-authentication completes well inside this window.
	TransitionCooldown time.Duration `yaml:"transition_cooldown"`

	// ExitSettle is the pause after leaving admin mode before view
	// accessibility is recomputed. Covers the propagation delay of
	// visibility recomputation in the view layer.
	ExitSettle time.Duration `yaml:"exit_settle"`

	// ReconnectStability is how long the channel must report
	// connected continuously before fallback recovery is attempted.
	// Prevents recovery flapping on jittery links.
	ReconnectStability time.Duration `yaml:"reconnect_stability"`

	// OutageThreshold is how long the channel must report
	// disconnected continuously before fallback activates. Brief
	// blips below the threshold never reach the fallback coordinator.
	OutageThreshold time.Duration `yaml:"outage_threshold"`
}

// JournalConfig configures the local diagnostic journal.
type JournalConfig struct {
	// Path is the SQLite database file for recorded console signals.
	// Empty disables the journal.
	Path string `yaml:"path"`

	// Retention caps how long journal entries are kept.
	Retention time.Duration `yaml:"retention"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file; the config file is still
// the source of truth for anything it sets.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "state", "hearth")

	return &Config{
		Daemon: DaemonConfig{
			URL: "http://homeserver.local:7420",
		},
		Console: ConsoleConfig{
			StarredView:   "overview",
			StatePath:     filepath.Join(defaultRoot, "console-state.json"),
			RestoreMaxAge: 12 * time.Hour,
		},
		Timing: TimingConfig{
			TransitionCooldown: 1000 * time.Millisecond,
			ExitSettle:         150 * time.Millisecond,
			ReconnectStability: 2000 * time.Millisecond,
			OutageThreshold:    2000 * time.Millisecond,
		},
		Journal: JournalConfig{
			Path:      filepath.Join(defaultRoot, "journal.db"),
			Retention: 30 * 24 * time.Hour,
		},
	}
}

// Load loads configuration from the HEARTH_CONFIG environment
// variable. If HEARTH_CONFIG is not set, the defaults are returned —
// the console is usable with zero configuration against a local
// daemon.
func Load() (*Config, error) {
	configPath := os.Getenv("HEARTH_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging
// over the defaults. Environment variables do not override config
// values; the only expansion performed is ${VAR} in paths for
// portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".json" || ext == ".jsonc" {
		data = jsonc.ToJSON(data)
	}
	// YAML is a superset of JSON, so both formats land here.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Console.StatePath = expandVars(c.Console.StatePath, vars)
	c.Journal.Path = expandVars(c.Journal.Path, vars)
	c.Daemon.CredentialFile = expandVars(c.Daemon.CredentialFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Daemon.URL == "" {
		errs = append(errs, fmt.Errorf("daemon.url is required"))
	}
	if c.Console.StatePath == "" {
		errs = append(errs, fmt.Errorf("console.state_path is required"))
	}

	if c.Timing.TransitionCooldown <= 0 {
		errs = append(errs, fmt.Errorf("timing.transition_cooldown must be positive"))
	}
	if c.Timing.ExitSettle < 0 {
		errs = append(errs, fmt.Errorf("timing.exit_settle must not be negative"))
	}
	if c.Timing.ReconnectStability <= 0 {
		errs = append(errs, fmt.Errorf("timing.reconnect_stability must be positive"))
	}
	if c.Timing.OutageThreshold <= 0 {
		errs = append(errs, fmt.Errorf("timing.outage_threshold must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the parent directories of configured file paths.
func (c *Config) EnsurePaths() error {
	paths := []string{
		filepath.Dir(c.Console.StatePath),
	}
	if c.Journal.Path != "" {
		paths = append(paths, filepath.Dir(c.Journal.Path))
	}

	for _, path := range paths {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
