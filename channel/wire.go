// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import "github.com/hearth-home/hearth/lib/codec"

// Wire frames exchanged with the daemon. All bodies are deterministic
// CBOR (lib/codec); event batches may additionally be zstd-compressed
// at the HTTP layer.

// sessionResponse is returned by POST /v1/session.
type sessionResponse struct {
	// Cursor anchors the event stream: the first poll resumes from
	// here, so no event emitted after session creation is lost.
	Cursor string `cbor:"cursor"`
}

// subscribeRequest is the body of POST /v1/subscribe.
type subscribeRequest struct {
	Topic    string `cbor:"topic"`
	Category string `cbor:"category"`
}

// subscribeResponse is returned by POST /v1/subscribe.
type subscribeResponse struct {
	ID string `cbor:"id"`
}

// unsubscribeRequest is the body of POST /v1/unsubscribe.
type unsubscribeRequest struct {
	ID string `cbor:"id"`
}

// adminAuthRequest is the body of POST /v1/admin/auth.
type adminAuthRequest struct {
	Credential string `cbor:"credential"`
}

// adminAuthResponse is returned by POST /v1/admin/auth.
type adminAuthResponse struct {
	Granted bool   `cbor:"granted"`
	Token   string `cbor:"token"`
}

// eventBatch is returned by GET /v1/events. The daemon holds the
// request until events arrive or the server-side timeout elapses;
// an empty Events slice means the hold expired.
type eventBatch struct {
	Next   string      `cbor:"next"`
	Events []wireEvent `cbor:"events"`
}

// wireEvent is one event within a batch.
type wireEvent struct {
	Topic    string           `cbor:"topic"`
	Sequence uint64           `cbor:"sequence"`
	AtMilli  int64            `cbor:"at"`
	Payload  codec.RawMessage `cbor:"payload"`
}
