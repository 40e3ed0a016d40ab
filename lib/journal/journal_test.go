// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T, retention time.Duration) *Journal {
	t.Helper()
	j, err := Open(Config{
		Path:      filepath.Join(t.TempDir(), "journal.db"),
		Retention: retention,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []Entry{
		{At: base, Kind: "privilege_change_completed", Detail: "privileged=true"},
		{At: base.Add(time.Minute), Kind: "fallback_activated", View: "admin", Reason: "render_error"},
		{At: base.Add(2 * time.Minute), Kind: "fallback_recovery_succeeded", View: "admin"},
	}
	for _, entry := range entries {
		if err := j.Record(ctx, entry); err != nil {
			t.Fatalf("Record %s: %v", entry.Kind, err)
		}
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent returned %d entries, want 3", len(got))
	}
	// Newest first.
	if got[0].Kind != "fallback_recovery_succeeded" {
		t.Errorf("got[0].Kind = %q, want newest entry first", got[0].Kind)
	}
	if got[2].Kind != "privilege_change_completed" {
		t.Errorf("got[2].Kind = %q, want oldest entry last", got[2].Kind)
	}
	if got[1].Reason != "render_error" {
		t.Errorf("got[1].Reason = %q, want %q", got[1].Reason, "render_error")
	}
	if !got[0].At.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("got[0].At = %v, want %v", got[0].At, base.Add(2*time.Minute))
	}
}

func TestRecentLimit(t *testing.T) {
	j := openTestJournal(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		entry := Entry{At: base.Add(time.Duration(i) * time.Second), Kind: "fallback_recovery_attempted"}
		if err := j.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Recent(2) returned %d entries", len(got))
	}
}

func TestPruneRespectsRetention(t *testing.T) {
	j := openTestJournal(t, time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	old := Entry{At: now.Add(-2 * time.Hour), Kind: "fallback_activated", Reason: "channel_lost"}
	fresh := Entry{At: now.Add(-time.Minute), Kind: "fallback_recovery_succeeded"}
	for _, entry := range []Entry{old, fresh} {
		if err := j.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if err := j.Prune(ctx, now); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent after Prune returned %d entries, want 1", len(got))
	}
	if got[0].Kind != "fallback_recovery_succeeded" {
		t.Errorf("surviving entry = %q, want the fresh one", got[0].Kind)
	}
}

func TestPruneZeroRetentionKeepsAll(t *testing.T) {
	j := openTestJournal(t, 0)
	ctx := context.Background()
	now := time.Now()

	entry := Entry{At: now.Add(-1000 * time.Hour), Kind: "fallback_activated"}
	if err := j.Record(ctx, entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Prune(ctx, now); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("zero-retention Prune removed entries: %d remain, want 1", len(got))
	}
}
