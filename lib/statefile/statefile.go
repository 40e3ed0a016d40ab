// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package statefile persists the console's last active view and
// privilege flag across restarts. The coordination core itself never
// reads or writes this file — the cmd wiring restores the state on
// startup and records it on change.
//
// The file is written atomically (write to temporary file, fsync,
// rename) so readers never see a partial or corrupt state. Staleness
// checking via Check prevents restoring an ancient privilege flag
// left behind by a session that ended long ago.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State records the console state worth restoring after a restart.
type State struct {
	// ActiveView is the view that was displayed when the state was
	// recorded.
	ActiveView string `json:"active_view"`

	// Privileged records whether admin mode was enabled. Restoring it
	// re-runs the normal privilege-entry flow, including channel
	// authentication — the flag alone grants nothing.
	Privileged bool `json:"privileged"`

	// Timestamp is when the state was recorded. Used by Check to
	// discard stale files.
	Timestamp time.Time `json:"timestamp"`
}

// Write atomically writes the state file. The file is written to a
// temporary location in the same directory, fsynced for durability,
// and renamed into place.
//
// The file is created with mode 0600. The parent directory must
// already exist.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling console state: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary state file: %w", err)
	}

	// Write, sync, close — in that order. If any step fails, remove
	// the temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary state file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming state file into place: %w", err)
	}

	// Sync the parent directory so the rename survives power loss.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}

// Read reads and parses a state file. When the file does not exist,
// the returned error wraps os.ErrNotExist (testable with errors.Is).
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return state, nil
}

// Check reads a state file and verifies it was written recently
// enough to be worth restoring. Returns the state and true when the
// file exists and its Timestamp is within maxAge of now. Returns a
// zero State and false when the file does not exist or is stale.
//
// Any other error (permission denied, corrupt JSON) is returned as-is
// so the caller can distinguish "no saved state" from "saved state
// exists but unreadable."
func Check(path string, maxAge time.Duration) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	if time.Since(state.Timestamp) > maxAge {
		return State{}, false, nil
	}

	return state, true, nil
}

// Clear removes a state file. Idempotent: returns nil when the file
// does not exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}
