// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"errors"
	"fmt"
)

// DaemonError represents a structured error response from the hearth
// daemon. Callers can use errors.As to extract the structured
// information:
//
//	var daemonErr *channel.DaemonError
//	if errors.As(err, &daemonErr) {
//	    if daemonErr.Code == channel.ErrCodeForbidden { ... }
//	}
type DaemonError struct {
	// Code is the daemon error code (e.g., "H_FORBIDDEN").
	Code string `cbor:"code"`
	// Message is the human-readable description from the daemon.
	Message string `cbor:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `cbor:"-"`
}

func (e *DaemonError) Error() string {
	return fmt.Sprintf("daemon: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Standard daemon error codes.
const (
	ErrCodeForbidden      = "H_FORBIDDEN"
	ErrCodeUnknownTopic   = "H_UNKNOWN_TOPIC"
	ErrCodeUnknownSub     = "H_UNKNOWN_SUBSCRIPTION"
	ErrCodeBadCredential  = "H_BAD_CREDENTIAL"
	ErrCodeLimitExceeded  = "H_LIMIT_EXCEEDED"
	ErrCodeSessionExpired = "H_SESSION_EXPIRED"
)

// IsDaemonError checks whether err is a *DaemonError with the given code.
func IsDaemonError(err error, code string) bool {
	var daemonErr *DaemonError
	if errors.As(err, &daemonErr) {
		return daemonErr.Code == code
	}
	return false
}

// ErrDisconnected is returned by Subscribe when the channel has no
// live connection to carry the request.
var ErrDisconnected = errors.New("channel: not connected")
