// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"time"

	"github.com/hearth-home/hearth/channel"
	"github.com/hearth-home/hearth/lib/clock"
)

// Canonical fallback reasons. Free-form strings for display; the
// coordination logic never branches on them — all disconnect-like
// causes share one threshold-based activation path.
const (
	ReasonRenderError      = "render_error"
	ReasonChannelLost      = "channel_lost"
	ReasonNoAccessibleView = "no_accessible_view"
)

type fallbackPhase int

const (
	fallbackInactive fallbackPhase = iota
	fallbackActive
	fallbackRecovering
)

// fallbackGuard forces the safe view when normal operation cannot be
// guaranteed, and manages recovery back to it. While the phase is not
// inactive, the resolved active view is the safe view no matter what
// the other controllers select.
//
// All methods run as queue steps with stateMu held.
type fallbackGuard struct {
	c *Console

	phase          fallbackPhase
	reason         string
	lastActiveView ViewID
	activatedAt    time.Time

	// recoveryBlocked is set after a failed recovery. Automatic
	// (stable-reconnect) retries stay suppressed until an explicit
	// user action clears it.
	recoveryBlocked bool

	// outage runs while disconnected and inactive; firing activates
	// fallback. stability runs while connected and active; firing
	// attempts recovery. deadline bounds a recovery attempt. Arming
	// any of them stops its predecessor.
	outage    *clock.Timer
	stability *clock.Timer
	deadline  *clock.Timer
}

func stopTimer(timer **clock.Timer) {
	if *timer != nil {
		(*timer).Stop()
		*timer = nil
	}
}

// onStatus reacts to channel status transitions.
func (g *fallbackGuard) onStatus(status channel.Status) {
	c := g.c
	if status == channel.StatusConnected {
		// A reconnect below the outage threshold is a blip;
		// fallback never activates for it.
		stopTimer(&g.outage)
		if g.phase == fallbackActive && !g.recoveryBlocked {
			stopTimer(&g.stability)
			g.stability = c.clk.AfterFunc(c.timing.ReconnectStability, func() {
				c.enqueue(g.stableReconnect)
			})
		}
		return
	}

	switch g.phase {
	case fallbackInactive:
		stopTimer(&g.outage)
		g.outage = c.clk.AfterFunc(c.timing.OutageThreshold, func() {
			c.enqueue(g.outageElapsed)
		})
	case fallbackActive:
		stopTimer(&g.stability)
	case fallbackRecovering:
		g.failRecovery("channel lost during recovery")
	}
}

// outageElapsed fires when a disconnection has persisted past the
// threshold.
func (g *fallbackGuard) outageElapsed() {
	g.outage = nil
	if g.phase == fallbackInactive && g.c.channelStatus == channel.StatusDisconnected {
		g.activate(ReasonChannelLost)
	}
}

// stableReconnect fires when the channel has stayed connected through
// the stability window.
func (g *fallbackGuard) stableReconnect() {
	g.stability = nil
	if g.phase != fallbackActive || g.recoveryBlocked {
		return
	}
	if g.c.channelStatus != channel.StatusConnected {
		return
	}
	g.attemptRecovery(false)
	g.c.reconcileNow()
}

// activate enters fallback. Activation records the selection at the
// moment of failure but does not itself change reconciliation inputs;
// existing subscriptions stay registered until the inputs move.
func (g *fallbackGuard) activate(reason string) {
	c := g.c
	switch g.phase {
	case fallbackActive:
		return
	case fallbackRecovering:
		g.failRecovery("fault during recovery")
		g.reason = reason
		return
	}

	stopTimer(&g.outage)
	stopTimer(&g.stability)
	g.phase = fallbackActive
	g.reason = reason
	g.lastActiveView = c.selectedView
	g.activatedAt = c.clk.Now()

	c.logger.Warn("fallback activated",
		"reason", reason,
		"last_view", string(g.lastActiveView),
	)
	c.emit(func() {
		if fire := c.signals.FallbackActivated; fire != nil {
			fire(reason)
		}
	})
}

// attemptRecovery moves Active to Recovering: restore the previous
// selection and give reconciliation one stability window to converge.
// explicit marks a user action, which overrides the retry block.
func (g *fallbackGuard) attemptRecovery(explicit bool) {
	c := g.c
	if g.phase != fallbackActive {
		return
	}
	if !explicit && g.recoveryBlocked {
		return
	}
	g.recoveryBlocked = false
	stopTimer(&g.stability)
	g.phase = fallbackRecovering

	target := g.lastActiveView
	if !c.catalog.IsAccessible(target, c.privileged) {
		target = c.catalog.SafeView
	}
	c.selectedView = target

	stopTimer(&g.deadline)
	g.deadline = c.clk.AfterFunc(c.timing.ReconnectStability, func() {
		c.enqueue(g.deadlineElapsed)
	})

	c.logger.Info("fallback recovery attempt", "restore_view", string(target))
	c.emit(func() {
		if fire := c.signals.FallbackRecoveryAttempted; fire != nil {
			fire()
		}
	})
}

// deadlineElapsed fires when a recovery attempt did not converge in
// time.
func (g *fallbackGuard) deadlineElapsed() {
	g.deadline = nil
	if g.phase == fallbackRecovering {
		g.failRecovery("recovery deadline elapsed")
	}
}

// failRecovery reverts Recovering to Active. Further automatic
// retries are blocked until an explicit user action.
func (g *fallbackGuard) failRecovery(detail string) {
	c := g.c
	stopTimer(&g.deadline)
	g.phase = fallbackActive
	g.recoveryBlocked = true

	c.logger.Warn("fallback recovery failed", "detail", detail)
	c.emit(func() {
		if fire := c.signals.FallbackRecoveryFailed; fire != nil {
			fire()
		}
	})
}

// onReconcile observes each completed reconciliation pass. A clean
// pass on a connected channel completes an in-flight recovery.
func (g *fallbackGuard) onReconcile(result CommitResult) {
	c := g.c
	if g.phase != fallbackRecovering {
		return
	}
	if result.Failed > 0 {
		// Failed subscribes are retried lazily on the next pass; the
		// deadline bounds how long recovery waits for one.
		return
	}
	if c.channelStatus != channel.StatusConnected {
		return
	}

	stopTimer(&g.deadline)
	g.phase = fallbackInactive
	g.reason = ""
	g.lastActiveView = ""
	g.recoveryBlocked = false

	c.logger.Info("fallback recovered", "view", string(c.selectedView))
	c.emit(func() {
		if fire := c.signals.FallbackRecoverySucceeded; fire != nil {
			fire()
		}
	})
}
