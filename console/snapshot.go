// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import "github.com/hearth-home/hearth/channel"

// Snapshot is the complete, immutable input to one reconciliation
// pass. It is captured atomically before evaluation begins, so the
// Reconciler never reads a torn mix of old and new fields.
//
// ActiveView is the controller-selected view, not the fallback-
// resolved one: fallback activation alone does not change
// reconciliation inputs.
type Snapshot struct {
	ActiveView    ViewID
	Privileged    bool
	ChannelAuthed bool
	ChannelStatus channel.Status
}
