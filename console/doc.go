// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

// Package console is the coordination core of the hearth management
// console. It keeps the set of daemon event subscriptions consistent
// with three independently changing inputs — the selected view, the
// privilege level, and the channel state — and forces a safe degraded
// view when consistency cannot be achieved.
//
// The moving parts:
//
//   - Registry: the single table of believed-active subscriptions,
//     keyed by (topic, category, owner view).
//   - Reconciler: computes the desired set for an immutable Snapshot
//     and converges the Registry in one evaluate-then-commit pass.
//   - adminFlow: the only writer of the privilege flag; serializes
//     and debounces transitions and re-selects the view on privilege
//     loss.
//   - fallbackGuard: activates the safe view on render faults, loss
//     of all accessible views, or sustained channel outage, and
//     drives recovery after a stable reconnect or explicit
//     re-elevation.
//
// Everything runs single-threaded and event-driven: state changes
// enter an ordered queue and apply one at a time, each ending with a
// synchronous reconciliation pass. The channel is fire-and-forget
// from the Registry's perspective — the Registry reflects intended
// state, not confirmed delivery.
package console
