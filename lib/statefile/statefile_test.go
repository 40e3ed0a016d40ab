// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package statefile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-state.json")
	state := State{
		ActiveView: "portals",
		Privileged: true,
		Timestamp:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	if err := Write(path, state); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.ActiveView != state.ActiveView {
		t.Errorf("ActiveView = %q, want %q", got.ActiveView, state.ActiveView)
	}
	if got.Privileged != state.Privileged {
		t.Errorf("Privileged = %v, want %v", got.Privileged, state.Privileged)
	}
	if !got.Timestamp.Equal(state.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, state.Timestamp)
	}
}

func TestWriteOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-state.json")

	if err := Write(path, State{ActiveView: "overview", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Write first: %v", err)
	}
	if err := Write(path, State{ActiveView: "storage", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Write second: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.ActiveView != "storage" {
		t.Errorf("ActiveView = %q, want %q (second write should win)", got.ActiveView, "storage")
	}
}

func TestCheckFreshness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-state.json")

	fresh := State{ActiveView: "portals", Timestamp: time.Now()}
	if err := Write(path, fresh); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, ok, err := Check(path, time.Hour)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !ok {
		t.Fatal("Check = false for a fresh file, want true")
	}
	if got.ActiveView != "portals" {
		t.Errorf("ActiveView = %q, want %q", got.ActiveView, "portals")
	}

	stale := State{ActiveView: "portals", Privileged: true, Timestamp: time.Now().Add(-48 * time.Hour)}
	if err := Write(path, stale); err != nil {
		t.Fatalf("Write stale: %v", err)
	}
	_, ok, err = Check(path, time.Hour)
	if err != nil {
		t.Fatalf("Check stale: %v", err)
	}
	if ok {
		t.Error("Check = true for a stale file, want false")
	}
}

func TestCheckMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-state.json")
	_, ok, err := Check(path, time.Hour)
	if err != nil {
		t.Fatalf("Check on missing file: %v", err)
	}
	if ok {
		t.Error("Check = true for a missing file, want false")
	}
}

func TestCheckCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := Check(path, time.Hour); err == nil {
		t.Error("Check on corrupt file succeeded, want error")
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-state.json")
	if err := Clear(path); err != nil {
		t.Fatalf("Clear on missing file: %v", err)
	}
	if err := Write(path, State{ActiveView: "overview", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("state file still exists after Clear")
	}
}
