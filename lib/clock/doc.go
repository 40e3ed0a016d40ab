// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for the console's debounce, cooldown,
// settle, stability, and outage timers. Production code injects
// Real(); tests inject Fake() and drive it with Advance for fully
// deterministic timer behavior.
package clock
