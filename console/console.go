// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hearth-home/hearth/channel"
	"github.com/hearth-home/hearth/lib/clock"
	"github.com/hearth-home/hearth/lib/secret"
)

// Timing holds the coordination timer windows. Each default encodes
// an assumed collaborator latency; raise them when the daemon or
// terminal is slower than usual.
type Timing struct {
	// TransitionCooldown is the minimum gap between completed
	// privilege transitions. Requests inside the window are debounced
	// into a single pending execution. Default 1s.
	TransitionCooldown time.Duration

	// ExitSettle is the delay between dropping the privilege flag and
	// re-selecting the active view, giving visibility recomputation
	// time to propagate through listeners. Default 150ms.
	ExitSettle time.Duration

	// ReconnectStability is how long the channel must stay connected
	// before fallback recovery is attempted, and the deadline for an
	// attempted recovery to complete. Covers the daemon's session
	// re-handshake. Default 2s.
	ReconnectStability time.Duration

	// OutageThreshold is how long a disconnection must persist before
	// fallback activates. Blips below it never activate fallback.
	// Default 2s.
	OutageThreshold time.Duration
}

func (t Timing) withDefaults() Timing {
	if t.TransitionCooldown <= 0 {
		t.TransitionCooldown = time.Second
	}
	if t.ExitSettle <= 0 {
		t.ExitSettle = 150 * time.Millisecond
	}
	if t.ReconnectStability <= 0 {
		t.ReconnectStability = 2 * time.Second
	}
	if t.OutageThreshold <= 0 {
		t.OutageThreshold = 2 * time.Second
	}
	return t
}

// Signals are fire-and-forget notifications for observers (UI,
// journal). The core never depends on a listener being present; all
// fields may be nil. Listeners run after the state change that raised
// them has fully applied, and may call back into the Console.
type Signals struct {
	PrivilegeChangeCompleted  func(privileged bool)
	FallbackActivated         func(reason string)
	FallbackRecoveryAttempted func()
	FallbackRecoverySucceeded func()
	FallbackRecoveryFailed    func()
}

// Config holds configuration for creating a Console.
type Config struct {
	// Channel is the daemon event channel. Required. The caller wires
	// Notify() into it and drives Connect/Disconnect.
	Channel channel.Channel

	// Catalog describes views and topics. If nil, DefaultCatalog()
	// is used.
	Catalog *Catalog

	// Clock drives the coordination timers. If nil, the real clock
	// is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// Timing windows; zero fields take their defaults.
	Timing Timing

	// StarredView is the user's preferred view, preferred during view
	// re-selection after privilege loss. Optional.
	StarredView ViewID

	// InitialView is the view selected at startup. If empty, the
	// catalog's safe view is used.
	InitialView ViewID

	// Signals to raise on lifecycle events.
	Signals Signals

	// OnEvent receives every event delivered on any subscription.
	// Optional.
	OnEvent channel.Callback
}

// Console is the coordination core: it owns the subscription
// registry, the privilege flag, and the fallback state, and keeps the
// live subscription set consistent with {selected view, privilege,
// channel state}.
//
// All state changes funnel through an internal notification queue and
// are applied one at a time in emission order, from whichever
// goroutine happens to be draining the queue. Reconciliation runs
// synchronously at the end of each state-changing step, against an
// atomic snapshot.
type Console struct {
	channel channel.Channel
	catalog *Catalog
	clk     clock.Clock
	logger  *slog.Logger
	timing  Timing
	starred ViewID
	signals Signals

	// queueMu guards only the queue and the draining flag. It is
	// never held while a step runs, so steps may enqueue follow-ups —
	// including synchronous channel notifications echoing back from
	// the core's own channel calls.
	queueMu  sync.Mutex
	queue    []func()
	draining bool

	// stateMu guards everything below. Held while a step runs;
	// released before signal listeners fire.
	stateMu        sync.Mutex
	selectedView   ViewID
	privileged     bool
	channelAuthed  bool
	channelStatus  channel.Status
	registry       *Registry
	reconciler     *Reconciler
	admin          adminFlow
	guard          fallbackGuard
	pendingSignals []func()
}

// New creates a Console. The caller must wire Notify() into the
// channel and call Start once the channel is set up.
func New(cfg Config) (*Console, error) {
	if cfg.Channel == nil {
		return nil, fmt.Errorf("console: Channel is required")
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	initial := cfg.InitialView
	if initial == "" {
		initial = catalog.SafeView
	}
	if !catalog.IsAccessible(initial, false) {
		return nil, fmt.Errorf("console: initial view %q is not accessible without privilege", initial)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Console{
		channel:       cfg.Channel,
		catalog:       catalog,
		clk:           clk,
		logger:        logger,
		timing:        cfg.Timing.withDefaults(),
		starred:       cfg.StarredView,
		signals:       cfg.Signals,
		selectedView:  initial,
		channelStatus: channel.StatusDisconnected,
		registry:      NewRegistry(),
	}
	c.reconciler = NewReconciler(cfg.Channel, catalog, c.registry, logger, cfg.OnEvent)
	c.admin.c = c
	c.guard.c = c
	return c, nil
}

// Notify returns the channel notification hooks routing status and
// auth changes into the console's queue. Wire this into the channel
// before connecting.
func (c *Console) Notify() channel.Notify {
	return channel.Notify{
		StatusChanged: c.HandleStatusChange,
		AuthChanged:   c.HandleAuthChange,
	}
}

// Start captures the channel's current state and runs the first
// reconciliation pass.
func (c *Console) Start() {
	c.enqueue(func() {
		c.channelStatus = c.channel.Status()
		c.channelAuthed = c.channel.PrivilegedAuthenticated()
		if c.channelStatus == channel.StatusDisconnected {
			// Starting disconnected counts as the beginning of an
			// outage.
			c.guard.onStatus(c.channelStatus)
		}
		c.reconcileNow()
	})
}

// RequestViewChange selects a view. Unknown views are rejected;
// views inaccessible at the current privilege level are ignored.
// While fallback is active the selection is recorded but the resolved
// view stays the safe view.
func (c *Console) RequestViewChange(id ViewID) error {
	if _, ok := c.catalog.View(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownView, id)
	}
	c.enqueue(func() {
		if id == c.selectedView {
			return
		}
		if !c.catalog.IsAccessible(id, c.privileged) {
			c.logger.Warn("view change rejected", "view", string(id))
			return
		}
		c.selectedView = id
		c.reconcileNow()
	})
	return nil
}

// RequestPrivilegeChange requests entering or leaving privileged
// mode. Redundant and overlapping requests are dropped; rapid
// requests within the transition cooldown are debounced,
// latest-intent-wins.
func (c *Console) RequestPrivilegeChange(privileged bool) {
	c.enqueue(func() {
		c.admin.request(privileged)
	})
}

// SubmitCredential presents the admin credential to the channel. The
// resulting auth change flows back through Notify and unlocks
// admin-only subscriptions on the next pass.
func (c *Console) SubmitCredential(ctx context.Context, credential *secret.Buffer) (bool, error) {
	return c.channel.AuthenticatePrivileged(ctx, credential)
}

// ReportRenderFault routes an uncaught fault in the view tree to
// fallback. Never swallowed: reaching the safe view is the error
// path.
func (c *Console) ReportRenderFault(cause any) {
	c.enqueue(func() {
		c.logger.Error("render fault", "cause", fmt.Sprint(cause), "view", string(c.selectedView))
		c.guard.activate(ReasonRenderError)
	})
}

// ActiveView returns the resolved active view: the safe view while
// fallback is active, the selected view otherwise.
func (c *Console) ActiveView() ViewID {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.guard.phase != fallbackInactive {
		return c.catalog.SafeView
	}
	return c.selectedView
}

// ChannelStatus reports the last observed channel status.
func (c *Console) ChannelStatus() channel.Status {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.channelStatus
}

// Privileged reports the privilege flag.
func (c *Console) Privileged() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.privileged
}

// FallbackActive reports whether fallback holds the view.
func (c *Console) FallbackActive() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.guard.phase != fallbackInactive
}

// FallbackReason returns the activation reason, empty when inactive.
func (c *Console) FallbackReason() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.guard.reason
}

// FallbackRecovering reports whether a recovery attempt is in
// progress, for progress display.
func (c *Console) FallbackRecovering() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.guard.phase == fallbackRecovering
}

// FallbackLastView returns the view that was selected when fallback
// activated.
func (c *Console) FallbackLastView() ViewID {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.guard.lastActiveView
}

// Subscriptions returns a diagnostic listing of the registry.
func (c *Console) Subscriptions() []SubscriptionInfo {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.registry.List()
}

// HandleStatusChange feeds a channel status change into the queue.
func (c *Console) HandleStatusChange(status channel.Status) {
	c.enqueue(func() {
		if status == c.channelStatus {
			return
		}
		c.channelStatus = status
		c.logger.Info("channel status changed", "status", status.String())
		c.guard.onStatus(status)
		c.reconcileNow()
	})
}

// HandleAuthChange feeds a privileged-auth change into the queue.
func (c *Console) HandleAuthChange(authed bool) {
	c.enqueue(func() {
		if authed == c.channelAuthed {
			return
		}
		c.channelAuthed = authed
		c.logger.Info("privileged auth changed", "authed", authed)
		c.reconcileNow()
	})
}

// enqueue appends a step and, unless another goroutine is already
// draining, drains the queue. Steps run with stateMu held, strictly
// in emission order; a step that triggers further notifications (a
// channel call echoing a status change, a timer firing synchronously
// under a fake clock) appends them behind itself rather than
// re-entering. Signals raised by a step fire after it finishes, with
// stateMu released.
func (c *Console) enqueue(step func()) {
	c.queueMu.Lock()
	c.queue = append(c.queue, step)
	if c.draining {
		c.queueMu.Unlock()
		return
	}
	c.draining = true
	c.queueMu.Unlock()

	for {
		c.queueMu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.queueMu.Unlock()
			return
		}
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.queueMu.Unlock()

		c.stateMu.Lock()
		next()
		signals := c.pendingSignals
		c.pendingSignals = nil
		c.stateMu.Unlock()

		for _, fire := range signals {
			fire()
		}
	}
}

// emit defers a signal until the current step completes. Must be
// called with stateMu held.
func (c *Console) emit(fire func()) {
	c.pendingSignals = append(c.pendingSignals, fire)
}

// reconcileNow runs one evaluate-then-commit pass against the
// current snapshot. Called at the end of every state-changing step.
func (c *Console) reconcileNow() {
	snap := Snapshot{
		ActiveView:    c.selectedView,
		Privileged:    c.privileged,
		ChannelAuthed: c.channelAuthed,
		ChannelStatus: c.channelStatus,
	}
	plan := c.reconciler.Evaluate(snap)

	var result CommitResult
	if plan.Empty() {
		c.logger.Debug("reconcile no-op")
	} else {
		result = c.reconciler.Commit(plan)
		c.logger.Debug("reconciled",
			"issued", result.Issued,
			"failed", result.Failed,
			"registered", c.registry.Len(),
		)
	}
	c.guard.onReconcile(result)
}
