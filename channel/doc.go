// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel implements the persistent event connection between
// the console and the hearth daemon.
//
// The daemon pushes events on named topics; the console subscribes
// and unsubscribes as the user navigates. Client is the production
// implementation: CBOR frames over HTTP with long-poll event
// delivery, optional zstd batch compression, and privileged
// authentication for admin topics. Memory is the in-process fake used
// by the console core's tests.
//
// The Channel interface deliberately reports intent, not confirmed
// delivery: Subscribe returning nil means the daemon accepted the
// request, not that an event has flowed. The console's subscription
// registry mirrors this — it records what was asked for.
package channel
