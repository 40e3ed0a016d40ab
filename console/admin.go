// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"time"

	"github.com/hearth-home/hearth/lib/clock"
)

// adminFlow serializes privilege transitions. It is the only writer
// of the privilege flag. At most one transition runs at a time; at
// most one request is pending in the cooldown debounce timer.
//
// All methods run as queue steps with stateMu held.
type adminFlow struct {
	c *Console

	// inProgress is set from transition start until completion
	// (immediately for entry, after the settle delay and view
	// re-selection for exit). New requests are dropped meanwhile.
	inProgress bool

	lastCompleted time.Time
	hasCompleted  bool

	// pending holds the debounced request armed during the cooldown
	// window. A newer request replaces the timer and the target;
	// there is never more than one.
	pending       *clock.Timer
	pendingTarget bool

	settle *clock.Timer
}

// request handles one privilege-change request.
func (a *adminFlow) request(target bool) {
	c := a.c
	if a.inProgress {
		c.logger.Debug("privilege request dropped, transition in progress", "target", target)
		return
	}

	now := c.clk.Now()
	if a.hasCompleted && now.Sub(a.lastCompleted) < c.timing.TransitionCooldown {
		// Inside the cooldown: capture latest intent in a single
		// pending timer. Equal-to-current intent is still captured —
		// it supersedes any opposite intent already pending — and
		// no-ops when it fires.
		if a.pending != nil {
			a.pending.Stop()
		}
		a.pendingTarget = target
		remaining := a.lastCompleted.Add(c.timing.TransitionCooldown).Sub(now)
		a.pending = c.clk.AfterFunc(remaining, func() {
			c.enqueue(a.firePending)
		})
		c.logger.Debug("privilege request debounced", "target", target)
		return
	}

	if target == c.privileged {
		c.logger.Debug("privilege request ignored, already at target", "target", target)
		return
	}
	a.execute(target)
}

// firePending executes the debounced request once the cooldown
// elapses.
func (a *adminFlow) firePending() {
	a.pending = nil
	target := a.pendingTarget
	if a.inProgress {
		return
	}
	if target == a.c.privileged {
		a.c.logger.Debug("debounced privilege request ignored, already at target", "target", target)
		return
	}
	a.execute(target)
}

// execute performs the transition: flip the flag, notify the channel,
// reconcile, then branch into the entry or exit flow.
func (a *adminFlow) execute(target bool) {
	c := a.c
	a.inProgress = true
	c.privileged = target
	c.logger.Info("privilege transition", "privileged", target)

	if target {
		// Entry: admin-enhanced variants swap in on this pass;
		// admin-only topics follow once channel auth is granted. An
		// explicit elevation is the user action that retries a failed
		// fallback recovery.
		if c.guard.phase == fallbackActive {
			c.guard.attemptRecovery(true)
		}
		c.reconcileNow()
		a.finish()
		return
	}

	// Exit: the privileged channel session ends now; view
	// re-selection waits for the settle delay so visibility
	// recomputation has propagated.
	c.channel.DropPrivileged()
	c.reconcileNow()
	a.settle = c.clk.AfterFunc(c.timing.ExitSettle, func() {
		c.enqueue(a.finishExit)
	})
}

// finishExit re-selects the active view under non-privileged
// visibility, then completes the transition.
func (a *adminFlow) finishExit() {
	a.settle = nil
	a.selectExitView()
	a.finish()
}

// selectExitView picks the next active view after privilege loss:
// the current view when still accessible, else the starred view, else
// the first accessible view in display order, else the safe view.
func (a *adminFlow) selectExitView() {
	c := a.c
	accessible := c.catalog.Accessible(false)
	if len(accessible) == 0 {
		// Recoverable, not fatal: fall back and still complete the
		// transition.
		c.guard.activate(ReasonNoAccessibleView)
		c.selectedView = c.catalog.SafeView
		c.reconcileNow()
		return
	}

	switch {
	case c.catalog.IsAccessible(c.selectedView, false):
		// Keep the current view.
	case c.starred != "" && c.catalog.IsAccessible(c.starred, false):
		c.selectedView = c.starred
	default:
		c.selectedView = accessible[0].ID
	}
	c.reconcileNow()
}

// finish marks the transition complete and starts the cooldown.
func (a *adminFlow) finish() {
	c := a.c
	a.inProgress = false
	a.lastCompleted = c.clk.Now()
	a.hasCompleted = true

	privileged := c.privileged
	c.emit(func() {
		if fire := c.signals.PrivilegeChangeCompleted; fire != nil {
			fire(privileged)
		}
	})
}
