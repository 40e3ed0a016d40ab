// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hearth-home/hearth/channel"
	"github.com/hearth-home/hearth/console"
	"github.com/hearth-home/hearth/lib/clock"
)

func newTestModel(t *testing.T) (Model, *console.Console) {
	t.Helper()
	mem := channel.NewMemory("")
	catalog := console.DefaultCatalog()
	con, err := console.New(console.Config{
		Channel: mem,
		Catalog: catalog,
		Clock:   clock.Fake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("console.New: %v", err)
	}
	if err := mem.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	mem.SetNotify(con.Notify())
	con.Start()
	return New(con, catalog), con
}

func TestCycleViewAdvancesSelection(t *testing.T) {
	m, con := newTestModel(t)

	m.cycleView(1)
	if got := con.ActiveView(); got != "portals" {
		t.Errorf("ActiveView = %q after cycle, want portals", got)
	}

	m.cycleView(-1)
	if got := con.ActiveView(); got != "overview" {
		t.Errorf("ActiveView = %q after cycling back, want overview", got)
	}

	// Cycling backward from the first view wraps to the last
	// accessible one; admin stays hidden without privilege.
	m.cycleView(-1)
	if got := con.ActiveView(); got != "backups" {
		t.Errorf("ActiveView = %q after wrap, want backups", got)
	}
}

func TestAdminKeyOpensCredentialPrompt(t *testing.T) {
	m, con := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = updated.(Model)
	if !m.prompting {
		t.Fatal("admin key did not open the credential prompt")
	}
	if con.Privileged() {
		t.Error("privilege flipped before credential submission")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.prompting {
		t.Error("escape did not dismiss the credential prompt")
	}
}

func TestEventUpdatesBody(t *testing.T) {
	m, _ := newTestModel(t)

	updated, _ := m.Update(EventMsg{Event: channel.Event{
		Topic:    "system.metrics",
		Sequence: 9,
		At:       time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC),
	}})
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "system.metrics") {
		t.Errorf("rendered view missing topic line:\n%s", view)
	}
	if !strings.Contains(view, "seq=9") {
		t.Errorf("rendered view missing event sequence:\n%s", view)
	}
}

func TestSignalSetsNotice(t *testing.T) {
	m, _ := newTestModel(t)

	updated, _ := m.Update(SignalMsg{Kind: "fallback_activated", Detail: "channel_lost"})
	m = updated.(Model)
	if !strings.Contains(m.notice, "channel_lost") {
		t.Errorf("notice = %q, want it to carry the reason", m.notice)
	}

	updated, _ = m.Update(noticeFadeMsg{})
	m = updated.(Model)
	if m.notice != "" {
		t.Errorf("notice = %q after fade, want empty", m.notice)
	}
}

func TestRenderFaultRoutedToConsole(t *testing.T) {
	m, con := newTestModel(t)

	// A nil catalog makes the normal render path panic. The shell
	// must report the fault and fall back to the safe rendering.
	m.catalog = nil
	view := m.View()

	if !con.FallbackActive() {
		t.Fatal("render fault did not activate fallback")
	}
	if got := con.FallbackReason(); got != console.ReasonRenderError {
		t.Errorf("reason = %q, want %q", got, console.ReasonRenderError)
	}
	if !strings.Contains(view, "safe mode") {
		t.Errorf("faulted render did not produce the safe view:\n%s", view)
	}
}
