// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used on the hearth daemon
// channel. Event frames, subscription requests, and authentication
// exchanges all use deterministic CBOR: the same logical frame always
// encodes to identical bytes.
package codec
