// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// hearth-console is the terminal management console for a hearth
// home server. It connects to the daemon's event channel, keeps a
// live set of topic subscriptions consistent with the active view and
// privilege level, and renders the streams in a tabbed TUI.
//
// Configuration comes from the file named by HEARTH_CONFIG or
// --config; with neither, built-in defaults target a daemon at
// http://homeserver.local:7420. The last active view and privilege
// flag persist across restarts; restoring the privilege flag re-runs
// the full elevation flow, including channel authentication.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/hearth-home/hearth/channel"
	"github.com/hearth-home/hearth/console"
	"github.com/hearth-home/hearth/lib/config"
	"github.com/hearth-home/hearth/lib/journal"
	"github.com/hearth-home/hearth/lib/secret"
	"github.com/hearth-home/hearth/lib/statefile"
	"github.com/hearth-home/hearth/lib/version"
	"github.com/hearth-home/hearth/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var daemonURL string
	var logOutput string
	var freshState bool

	flagSet := pflag.NewFlagSet("hearth-console", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (overrides HEARTH_CONFIG)")
	flagSet.StringVar(&daemonURL, "daemon-url", "", "daemon base URL (overrides config)")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.BoolVar(&freshState, "fresh", false, "ignore persisted view and privilege state")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("hearth-console")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if daemonURL != "" {
		cfg.Daemon.URL = daemonURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger, closeLog, err := openLogger(logOutput)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var diag *journal.Journal
	if cfg.Journal.Path != "" {
		diag, err = journal.Open(journal.Config{
			Path:      cfg.Journal.Path,
			Retention: cfg.Journal.Retention,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer diag.Close()
		if err := diag.Prune(ctx, time.Now()); err != nil {
			logger.Warn("journal prune failed", "error", err)
		}
	}

	restored := restoreState(cfg, freshState, logger)

	// The console is created after the channel client, but the client
	// notifies into it; the pointer is bound before Connect runs.
	var con *console.Console
	var program *tea.Program

	client, err := channel.NewClient(channel.ClientConfig{
		DaemonURL: cfg.Daemon.URL,
		Logger:    logger,
		Notify: channel.Notify{
			StatusChanged: func(status channel.Status) {
				con.HandleStatusChange(status)
			},
			AuthChanged: func(authed bool) {
				con.HandleAuthChange(authed)
			},
		},
	})
	if err != nil {
		return err
	}
	defer client.Disconnect()

	catalog := console.DefaultCatalog()
	initialView := console.ViewID(restored.ActiveView)
	if !catalog.IsAccessible(initialView, false) {
		initialView = catalog.SafeView
	}

	con, err = console.New(console.Config{
		Channel:     client,
		Catalog:     catalog,
		Logger:      logger,
		StarredView: console.ViewID(cfg.Console.StarredView),
		InitialView: initialView,
		Timing: console.Timing{
			TransitionCooldown: cfg.Timing.TransitionCooldown,
			ExitSettle:         cfg.Timing.ExitSettle,
			ReconnectStability: cfg.Timing.ReconnectStability,
			OutageThreshold:    cfg.Timing.OutageThreshold,
		},
		Signals: journaledSignals(ctx, diag, &program, func() string {
			return string(con.ActiveView())
		}),
		OnEvent: func(event channel.Event) {
			if program != nil {
				program.Send(ui.EventMsg{Event: event})
			}
		},
	})
	if err != nil {
		return err
	}

	program = tea.NewProgram(ui.New(con, catalog), tea.WithAltScreen())

	con.Start()
	if err := client.Connect(ctx); err != nil {
		// The console runs degraded until the poll loop reaches the
		// daemon; fallback handles a sustained failure.
		logger.Warn("initial connect failed", "error", err)
	}

	if restored.Privileged {
		if err := reelevate(ctx, cfg, con, logger); err != nil {
			logger.Warn("privilege restore failed", "error", err)
		}
	}

	if _, err := program.Run(); err != nil {
		return err
	}

	saveState(cfg, con, logger)
	return nil
}

// loadConfig loads the --config path when given, otherwise defers to
// HEARTH_CONFIG / defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// openLogger builds the application logger. With no --log-output the
// records are discarded: stderr belongs to the TUI.
func openLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(file, nil))
	return logger, func() { file.Close() }, nil
}

// restoreState reads the persisted view and privilege flag, ignoring
// stale or missing files.
func restoreState(cfg *config.Config, fresh bool, logger *slog.Logger) statefile.State {
	if fresh || cfg.Console.StatePath == "" {
		return statefile.State{}
	}
	state, valid, err := statefile.Check(cfg.Console.StatePath, cfg.Console.RestoreMaxAge)
	if err != nil {
		logger.Warn("state restore failed", "error", err)
		return statefile.State{}
	}
	if !valid {
		return statefile.State{}
	}
	return state
}

// saveState persists the current view and privilege flag for the
// next start.
func saveState(cfg *config.Config, con *console.Console, logger *slog.Logger) {
	if cfg.Console.StatePath == "" {
		return
	}
	state := statefile.State{
		ActiveView: string(con.ActiveView()),
		Privileged: con.Privileged(),
		Timestamp:  time.Now(),
	}
	if err := statefile.Write(cfg.Console.StatePath, state); err != nil {
		logger.Warn("state save failed", "error", err)
	}
}

// reelevate re-enters admin mode after a restart that had it
// enabled. The credential comes from the configured file, or an
// interactive prompt when the terminal allows it. The flag alone
// grants nothing: the full channel authentication runs again.
func reelevate(ctx context.Context, cfg *config.Config, con *console.Console, logger *slog.Logger) error {
	credential, err := readCredential(cfg.Daemon.CredentialFile)
	if err != nil {
		return err
	}
	if credential == nil {
		return nil
	}
	defer credential.Close()

	granted, err := con.SubmitCredential(ctx, credential)
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("daemon rejected the stored admin credential")
	}
	con.RequestPrivilegeChange(true)
	logger.Info("privileged mode restored")
	return nil
}

// readCredential loads the admin credential from a file, stdin, or
// an interactive terminal prompt. Returns nil when no source is
// available, which skips re-elevation.
func readCredential(path string) (*secret.Buffer, error) {
	if path != "" {
		return secret.ReadFromPath(path)
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, nil
	}
	fmt.Fprint(os.Stderr, "admin credential: ")
	line, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}
	if len(line) == 0 {
		return nil, nil
	}
	return secret.NewFromBytes(line)
}

// journaledSignals fans console signals out to the diagnostic
// journal and the running TUI. Both sides are fire-and-forget.
func journaledSignals(ctx context.Context, diag *journal.Journal, program **tea.Program, activeView func() string) console.Signals {
	record := func(kind, reason, detail string) {
		if diag != nil {
			entry := journal.Entry{
				At:     time.Now(),
				Kind:   kind,
				View:   activeView(),
				Reason: reason,
				Detail: detail,
			}
			if err := diag.Record(ctx, entry); err != nil {
				// Diagnostics only; the console never depends on it.
				_ = err
			}
		}
		if *program != nil {
			(*program).Send(ui.SignalMsg{Kind: kind, Detail: firstNonEmpty(reason, detail)})
		}
	}
	return console.Signals{
		PrivilegeChangeCompleted: func(privileged bool) {
			if privileged {
				record("privilege_change_completed", "", "enabled")
			} else {
				record("privilege_change_completed", "", "disabled")
			}
		},
		FallbackActivated: func(reason string) {
			record("fallback_activated", reason, "")
		},
		FallbackRecoveryAttempted: func() {
			record("fallback_recovery_attempted", "", "")
		},
		FallbackRecoverySucceeded: func() {
			record("fallback_recovery_succeeded", "", "")
		},
		FallbackRecoveryFailed: func() {
			record("fallback_recovery_failed", "", "")
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `hearth-console — terminal management console for a hearth home server.

Connects to the hearth daemon's event channel and renders the
subscribed topic streams in a tabbed terminal UI. Admin mode (press
"a") requires the daemon admin credential; admin-only streams appear
once the privileged session is granted.

Usage:
  hearth-console [flags]

Examples:
  # Connect with defaults (daemon at homeserver.local:7420)
  hearth-console

  # Use an explicit config file and daemon
  hearth-console --config ~/.config/hearth/console.yaml --daemon-url http://10.0.0.2:7420

  # Start fresh, ignoring the persisted view and privilege state
  hearth-console --fresh

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
