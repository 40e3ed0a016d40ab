// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"sort"

	"github.com/hearth-home/hearth/channel"
)

// Key is the composite identity of a subscription. OwnerView is set
// only for tab-category subscriptions; core and admin subscriptions
// are view-independent.
type Key struct {
	Topic     Topic
	Category  channel.Category
	OwnerView ViewID
}

// Registry is the single table of believed-active subscriptions,
// keyed by composite identity. It reflects intended state — a
// subscribe call that was issued and not rolled back — not confirmed
// delivery. Only the Reconciler mutates it.
type Registry struct {
	entries map[Key]channel.SubscriptionID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]channel.SubscriptionID)}
}

// Has reports whether a subscription with the given identity exists.
func (r *Registry) Has(key Key) bool {
	_, ok := r.entries[key]
	return ok
}

// ID returns the channel subscription ID for an identity.
func (r *Registry) ID(key Key) (channel.SubscriptionID, bool) {
	id, ok := r.entries[key]
	return id, ok
}

// Len returns the number of registered subscriptions.
func (r *Registry) Len() int { return len(r.entries) }

func (r *Registry) put(key Key, id channel.SubscriptionID) {
	r.entries[key] = id
}

func (r *Registry) remove(key Key) {
	delete(r.entries, key)
}

// SubscriptionInfo is one row of the diagnostic listing.
type SubscriptionInfo struct {
	Topic     Topic
	Category  channel.Category
	OwnerView ViewID
	ID        channel.SubscriptionID
}

// List returns the current subscriptions sorted by topic, category,
// and owner view, for diagnostics.
func (r *Registry) List() []SubscriptionInfo {
	infos := make([]SubscriptionInfo, 0, len(r.entries))
	for key, id := range r.entries {
		infos = append(infos, SubscriptionInfo{
			Topic:     key.Topic,
			Category:  key.Category,
			OwnerView: key.OwnerView,
			ID:        id,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Topic != infos[j].Topic {
			return infos[i].Topic < infos[j].Topic
		}
		if infos[i].Category != infos[j].Category {
			return infos[i].Category < infos[j].Category
		}
		return infos[i].OwnerView < infos[j].OwnerView
	})
	return infos
}
