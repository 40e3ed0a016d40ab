// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hearth-home/hearth/channel"
	"github.com/hearth-home/hearth/lib/clock"
)

// signalLog records raised signals in order for assertions.
type signalLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *signalLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *signalLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *signalLog) count(entry string) int {
	n := 0
	for _, e := range l.list() {
		if e == entry {
			n++
		}
	}
	return n
}

type fixture struct {
	clk *clock.FakeClock
	mem *channel.Memory
	con *Console
	sig *signalLog
}

// newFixture builds a console over a connected in-memory channel with
// a fake clock. starred configures the preferred view.
func newFixture(t *testing.T, starred ViewID) *fixture {
	t.Helper()
	f := &fixture{
		clk: clock.Fake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		mem: channel.NewMemory("hunter2"),
		sig: &signalLog{},
	}
	con, err := New(Config{
		Channel:     f.mem,
		Clock:       f.clk,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		StarredView: starred,
		Signals: Signals{
			PrivilegeChangeCompleted: func(privileged bool) {
				f.sig.add(fmt.Sprintf("privilege_change_completed:%t", privileged))
			},
			FallbackActivated: func(reason string) {
				f.sig.add("fallback_activated:" + reason)
			},
			FallbackRecoveryAttempted: func() { f.sig.add("fallback_recovery_attempted") },
			FallbackRecoverySucceeded: func() { f.sig.add("fallback_recovery_succeeded") },
			FallbackRecoveryFailed:    func() { f.sig.add("fallback_recovery_failed") },
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.con = con

	if err := f.mem.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	f.mem.SetNotify(con.Notify())
	con.Start()
	return f
}

func (f *fixture) topics() []string {
	var topics []string
	for _, info := range f.con.Subscriptions() {
		topics = append(topics, string(info.Topic))
	}
	return topics
}

func (f *fixture) hasTopic(topic string) bool {
	return contains(f.topics(), topic)
}

func assertTopics(t *testing.T, f *fixture, want []string) {
	t.Helper()
	got := f.topics()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("topics = %v, want %v", got, want)
		}
	}
}

func TestScenarioPortalsView(t *testing.T) {
	f := newFixture(t, "")
	if err := f.con.RequestViewChange("portals"); err != nil {
		t.Fatalf("RequestViewChange: %v", err)
	}

	assertTopics(t, f, []string{
		"system.metrics", "system.alerts", "daemon.status",
		"portal.status", "portal.traffic",
	})
	if got := f.con.ActiveView(); got != "portals" {
		t.Errorf("ActiveView = %q, want portals", got)
	}
}

func TestScenarioPrivilegeBeforeChannelAuth(t *testing.T) {
	f := newFixture(t, "")
	f.con.RequestPrivilegeChange(true)

	// Admin-enhanced variants swap in immediately; admin-only topics
	// wait for channel auth.
	if !f.con.Privileged() {
		t.Fatal("Privileged = false after entry")
	}
	assertTopics(t, f, []string{
		"system.metrics.admin", "system.alerts.admin", "daemon.status",
	})
	if got := f.sig.count("privilege_change_completed:true"); got != 1 {
		t.Errorf("privilege_change_completed:true raised %d times, want 1", got)
	}

	f.mem.SetAuthed(true)

	assertTopics(t, f, []string{
		"system.metrics.admin", "system.alerts.admin", "daemon.status",
		"audit.log", "admin.sessions",
	})

	// No duplicate identity anywhere.
	seen := make(map[string]int)
	for _, topic := range f.topics() {
		seen[topic]++
	}
	for topic, n := range seen {
		if n != 1 {
			t.Errorf("topic %s registered %d times", topic, n)
		}
	}
	if f.hasTopic("system.metrics") {
		t.Error("plain identity present alongside admin-enhanced variant")
	}
}

func TestSteadyStateIssuesNoOps(t *testing.T) {
	f := newFixture(t, "")
	if err := f.con.RequestViewChange("portals"); err != nil {
		t.Fatalf("RequestViewChange: %v", err)
	}
	f.mem.ResetOps()

	// Redundant notifications and a same-view selection trigger
	// passes, none of which may issue channel calls.
	f.con.HandleStatusChange(channel.StatusConnected)
	f.con.HandleAuthChange(false)
	if err := f.con.RequestViewChange("portals"); err != nil {
		t.Fatalf("RequestViewChange: %v", err)
	}

	if ops := f.mem.Ops(); len(ops) != 0 {
		t.Errorf("steady state issued %d channel calls: %+v", len(ops), ops)
	}
}

func TestUnknownViewRejected(t *testing.T) {
	f := newFixture(t, "")
	if err := f.con.RequestViewChange("no-such-view"); err == nil {
		t.Error("RequestViewChange accepted an unknown view")
	}
	if got := f.con.ActiveView(); got != "overview" {
		t.Errorf("ActiveView = %q after rejected change, want overview", got)
	}
}

func TestInaccessibleViewIgnored(t *testing.T) {
	f := newFixture(t, "")
	if err := f.con.RequestViewChange("admin"); err != nil {
		t.Fatalf("RequestViewChange: %v", err)
	}
	if got := f.con.ActiveView(); got != "overview" {
		t.Errorf("ActiveView = %q, want overview (admin view needs privilege)", got)
	}
}

func TestInitialViewRestored(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	mem := channel.NewMemory("")
	con, err := New(Config{
		Channel:     mem,
		Clock:       clk,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		InitialView: "storage",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := mem.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	mem.SetNotify(con.Notify())
	con.Start()

	if got := con.ActiveView(); got != "storage" {
		t.Errorf("ActiveView = %q, want storage", got)
	}
	var hasStorageTab bool
	for _, info := range con.Subscriptions() {
		if info.OwnerView == "storage" {
			hasStorageTab = true
		}
	}
	if !hasStorageTab {
		t.Error("no storage tab subscriptions after restored start")
	}
}

func TestInitialAdminOnlyViewRejected(t *testing.T) {
	_, err := New(Config{
		Channel:     channel.NewMemory(""),
		InitialView: "admin",
	})
	if err == nil {
		t.Error("New accepted an admin-only initial view")
	}
}

func TestSubscriptionListingSorted(t *testing.T) {
	f := newFixture(t, "")
	if err := f.con.RequestViewChange("portals"); err != nil {
		t.Fatalf("RequestViewChange: %v", err)
	}

	infos := f.con.Subscriptions()
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Topic > infos[i].Topic {
			t.Fatalf("listing not sorted: %q before %q", infos[i-1].Topic, infos[i].Topic)
		}
	}
	for _, info := range infos {
		if info.ID == "" {
			t.Errorf("subscription %s has empty channel ID", info.Topic)
		}
	}
}
