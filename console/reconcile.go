// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"log/slog"
	"sort"

	"github.com/hearth-home/hearth/channel"
)

// Reconciler converges the Registry to the desired subscription set
// for a snapshot. Reconciliation is two-phase: Evaluate computes the
// full diff as a Plan without touching anything, Commit applies it.
// Because Evaluate never mutates and Commit never re-evaluates, a
// pass cannot feed back into itself and no re-entrancy guard is
// needed.
type Reconciler struct {
	channel  channel.Channel
	catalog  *Catalog
	registry *Registry
	logger   *slog.Logger

	// onEvent receives every delivered event. Shared by all
	// subscriptions; routing by topic is the consumer's concern.
	onEvent channel.Callback
}

// NewReconciler creates a reconciler over the given registry. onEvent
// may be nil.
func NewReconciler(ch channel.Channel, catalog *Catalog, registry *Registry, logger *slog.Logger, onEvent channel.Callback) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if onEvent == nil {
		onEvent = func(channel.Event) {}
	}
	return &Reconciler{
		channel:  ch,
		catalog:  catalog,
		registry: registry,
		logger:   logger,
		onEvent:  onEvent,
	}
}

// removal pairs an identity with the channel ID needed to cancel it.
type removal struct {
	Key Key
	ID  channel.SubscriptionID
}

// Plan is the full diff between the registry and the desired set for
// one snapshot. Commit applies removals before additions, so an
// identity swap (plain topic to admin-enhanced variant) never holds
// both identities at once.
type Plan struct {
	// Unsubscribe entries are cancelled on the channel and removed
	// from the registry.
	Unsubscribe []removal

	// Drop entries are removed from the registry only. Used when the
	// channel is disconnected: nothing was being delivered, and the
	// daemon expires the server side with the session.
	Drop []Key

	// Subscribe entries are issued on the channel and added to the
	// registry.
	Subscribe []Key
}

// Empty reports whether the plan contains no operations. An empty
// plan on an unchanged snapshot is the expected steady state.
func (p Plan) Empty() bool {
	return len(p.Unsubscribe) == 0 && len(p.Drop) == 0 && len(p.Subscribe) == 0
}

// desired computes the wanted subscription set for a snapshot.
func (r *Reconciler) desired(snap Snapshot) map[Key]bool {
	want := make(map[Key]bool)
	if snap.ChannelStatus != channel.StatusConnected {
		// Disconnected wants nothing: registry entries are dropped
		// locally and resubscribed cleanly on reconnect.
		return want
	}

	for _, core := range r.catalog.CoreTopics {
		topic := core.Topic
		if snap.Privileged && core.AdminVariant != "" {
			topic = core.AdminVariant
		}
		want[Key{Topic: topic, Category: channel.CategoryCore}] = true
	}

	if view, ok := r.catalog.View(snap.ActiveView); ok {
		for _, topic := range view.TabTopics {
			want[Key{Topic: topic, Category: channel.CategoryTab, OwnerView: view.ID}] = true
		}
	}

	// Admin-only topics wait for both the privilege flag and channel
	// authentication. Pending authentication is not an error: the
	// auth flag flipping triggers another pass that subscribes them.
	if snap.Privileged && snap.ChannelAuthed {
		for _, topic := range r.catalog.AdminTopics {
			want[Key{Topic: topic, Category: channel.CategoryAdmin}] = true
		}
	}
	return want
}

// Evaluate computes the plan that converges the registry to the
// desired set for snap. It mutates nothing.
func (r *Reconciler) Evaluate(snap Snapshot) Plan {
	want := r.desired(snap)
	connected := snap.ChannelStatus == channel.StatusConnected

	var plan Plan
	for key, id := range r.registry.entries {
		if want[key] {
			continue
		}
		if connected {
			plan.Unsubscribe = append(plan.Unsubscribe, removal{Key: key, ID: id})
		} else {
			plan.Drop = append(plan.Drop, key)
		}
	}
	for key := range want {
		if !r.registry.Has(key) {
			plan.Subscribe = append(plan.Subscribe, key)
		}
	}

	// Map iteration order is random; sort for deterministic channel
	// call sequences.
	sort.Slice(plan.Unsubscribe, func(i, j int) bool { return keyLess(plan.Unsubscribe[i].Key, plan.Unsubscribe[j].Key) })
	sort.Slice(plan.Drop, func(i, j int) bool { return keyLess(plan.Drop[i], plan.Drop[j]) })
	sort.Slice(plan.Subscribe, func(i, j int) bool { return keyLess(plan.Subscribe[i], plan.Subscribe[j]) })
	return plan
}

func keyLess(a, b Key) bool {
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.Topic != b.Topic {
		return a.Topic < b.Topic
	}
	return a.OwnerView < b.OwnerView
}

// CommitResult summarizes one applied plan.
type CommitResult struct {
	// Issued counts channel calls made (subscribes and unsubscribes).
	Issued int

	// Failed counts subscribe calls the channel rejected. Failed
	// entries are not registered; the next pass retries them.
	Failed int
}

// Commit applies a plan: removals first, then additions. Channel
// errors are absorbed here — they are logged and reflected in the
// result, never propagated across the notification boundary.
func (r *Reconciler) Commit(plan Plan) CommitResult {
	var result CommitResult

	for _, rem := range plan.Unsubscribe {
		result.Issued++
		if err := r.channel.Unsubscribe(rem.ID); err != nil {
			// The registry entry goes away regardless: the daemon
			// expires orphaned subscriptions with the session.
			r.logger.Warn("unsubscribe failed",
				"topic", string(rem.Key.Topic),
				"error", err,
			)
		}
		r.registry.remove(rem.Key)
	}
	for _, key := range plan.Drop {
		r.registry.remove(key)
	}
	for _, key := range plan.Subscribe {
		result.Issued++
		id, err := r.channel.Subscribe(string(key.Topic), key.Category, r.onEvent)
		if err != nil {
			result.Failed++
			r.logger.Warn("subscribe failed",
				"topic", string(key.Topic),
				"category", key.Category.String(),
				"error", err,
			)
			continue
		}
		r.registry.put(key, id)
	}
	return result
}
