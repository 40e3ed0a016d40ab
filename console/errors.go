// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import "errors"

// ErrUnknownView is returned by RequestViewChange for a view ID not
// in the catalog.
var ErrUnknownView = errors.New("console: unknown view")
