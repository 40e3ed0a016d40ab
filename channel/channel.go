// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"time"

	"github.com/hearth-home/hearth/lib/codec"
	"github.com/hearth-home/hearth/lib/secret"
)

// Status is the connection state of the channel.
type Status int

const (
	// StatusDisconnected means no event delivery is happening. The
	// client may still be retrying in the background.
	StatusDisconnected Status = iota

	// StatusConnected means the event stream is live.
	StatusConnected
)

// String returns the canonical label used in logs and wire frames.
func (s Status) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// Category classifies a subscription by what governs its lifetime.
type Category int

const (
	// CategoryCore subscriptions live for the whole connected session.
	CategoryCore Category = iota

	// CategoryTab subscriptions belong to a single view and are torn
	// down when that view is left.
	CategoryTab

	// CategoryAdmin subscriptions require privileged authentication.
	CategoryAdmin
)

// String returns the wire label for the category.
func (c Category) String() string {
	switch c {
	case CategoryTab:
		return "tab"
	case CategoryAdmin:
		return "admin"
	default:
		return "core"
	}
}

// SubscriptionID identifies an active subscription on the channel.
type SubscriptionID string

// Event is one server-pushed event delivered to a subscription
// callback. Payload decoding is deferred until the consumer asks.
type Event struct {
	// Topic is the event topic the subscription matched.
	Topic string

	// Sequence is the daemon's monotonically increasing event counter.
	Sequence uint64

	// At is the daemon-side emission time.
	At time.Time

	// Payload is the raw CBOR event body.
	Payload codec.RawMessage
}

// Callback receives events for a subscription. Callbacks run on the
// channel's delivery goroutine and must not block.
type Callback func(Event)

// Channel is the persistent event connection to the hearth daemon, as
// consumed by the console core. The core treats every call as
// fire-and-forget intent: the subscription registry reflects what was
// requested, not what the daemon confirmed delivering.
//
// Implementations: *Client (HTTP long-poll against the daemon) and
// *Memory (in-process fake for tests).
type Channel interface {
	// Connect starts event delivery. Idempotent while connected.
	Connect(ctx context.Context) error

	// Disconnect stops event delivery and clears privileged
	// authentication. Idempotent.
	Disconnect()

	// Status reports the current connection state.
	Status() Status

	// AuthenticatePrivileged presents the admin credential. On
	// success the privileged-authenticated flag flips, which is
	// reported through the auth-change notification. The credential
	// buffer is read but not closed — the caller retains ownership.
	AuthenticatePrivileged(ctx context.Context, credential *secret.Buffer) (bool, error)

	// DropPrivileged discards privileged authentication.
	DropPrivileged()

	// PrivilegedAuthenticated reports whether the channel currently
	// holds privileged authentication.
	PrivilegedAuthenticated() bool

	// Subscribe registers interest in a topic. The returned ID is the
	// handle for Unsubscribe. Fails when the daemon rejects the
	// subscription or the channel is disconnected.
	Subscribe(topic string, category Category, callback Callback) (SubscriptionID, error)

	// Unsubscribe cancels a subscription. Unknown IDs are a no-op.
	Unsubscribe(id SubscriptionID) error
}

// Notify carries the channel's outbound notifications. Both callbacks
// are optional and fire-and-forget: the channel never depends on what
// listeners do with them.
type Notify struct {
	// StatusChanged is invoked whenever the connection state flips.
	StatusChanged func(Status)

	// AuthChanged is invoked whenever the privileged-authenticated
	// flag flips.
	AuthChanged func(bool)
}
