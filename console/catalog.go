// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import "fmt"

// ViewID identifies a console view (one tab of the interface).
type ViewID string

// Topic names a server-pushed event stream available for subscription.
type Topic string

// View describes one console view: its place in the tab bar, whether
// it requires privileged mode, and the topics it needs while active.
type View struct {
	ID    ViewID
	Title string

	// AdminOnly views are accessible only in privileged mode.
	AdminOnly bool

	// TabTopics are subscribed while this view is active and dropped
	// when the user navigates away.
	TabTopics []Topic
}

// CoreTopic is a topic subscribed whenever the channel is connected,
// independent of the active view. When AdminVariant is non-empty,
// privileged mode subscribes the variant instead of the plain topic —
// never both.
type CoreTopic struct {
	Topic        Topic
	AdminVariant Topic
}

// Catalog is the static description of the console's views and
// topics. It is immutable after construction; visibility under a
// privilege level is recomputed from it on demand.
type Catalog struct {
	// Views in display order. Order matters: view re-selection after
	// privilege loss falls back to the first accessible view.
	Views []View

	// CoreTopics are subscribed whenever the channel is connected.
	CoreTopics []CoreTopic

	// AdminTopics require privileged mode and privileged channel
	// authentication.
	AdminTopics []Topic

	// SafeView is shown when normal operation cannot be guaranteed.
	// Must name a non-admin view with no tab topics, so it renders
	// without any view-specific subscriptions.
	SafeView ViewID
}

// DefaultCatalog returns the hearth console's standard view and topic
// layout. The overview view doubles as the safe view: it renders from
// core topics alone.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Views: []View{
			{ID: "overview", Title: "Overview"},
			{ID: "portals", Title: "Portals", TabTopics: []Topic{"portal.status", "portal.traffic"}},
			{ID: "storage", Title: "Storage", TabTopics: []Topic{"storage.volumes", "storage.smart"}},
			{ID: "network", Title: "Network", TabTopics: []Topic{"network.devices", "network.throughput"}},
			{ID: "backups", Title: "Backups", TabTopics: []Topic{"backup.progress"}},
			{ID: "admin", Title: "Admin", AdminOnly: true, TabTopics: []Topic{"admin.config"}},
		},
		CoreTopics: []CoreTopic{
			{Topic: "system.metrics", AdminVariant: "system.metrics.admin"},
			{Topic: "system.alerts", AdminVariant: "system.alerts.admin"},
			{Topic: "daemon.status"},
		},
		AdminTopics: []Topic{"audit.log", "admin.sessions"},
		SafeView:    "overview",
	}
}

// View returns the view with the given ID.
func (c *Catalog) View(id ViewID) (View, bool) {
	for _, view := range c.Views {
		if view.ID == id {
			return view, true
		}
	}
	return View{}, false
}

// IsAccessible reports whether the view exists and is visible at the
// given privilege level.
func (c *Catalog) IsAccessible(id ViewID, privileged bool) bool {
	view, ok := c.View(id)
	if !ok {
		return false
	}
	return privileged || !view.AdminOnly
}

// Accessible returns the views visible at the given privilege level,
// in display order.
func (c *Catalog) Accessible(privileged bool) []View {
	var views []View
	for _, view := range c.Views {
		if privileged || !view.AdminOnly {
			views = append(views, view)
		}
	}
	return views
}

// Validate checks the catalog's structural requirements.
func (c *Catalog) Validate() error {
	if len(c.Views) == 0 {
		return fmt.Errorf("console: catalog has no views")
	}
	seen := make(map[ViewID]bool, len(c.Views))
	for _, view := range c.Views {
		if view.ID == "" {
			return fmt.Errorf("console: catalog view with empty ID")
		}
		if seen[view.ID] {
			return fmt.Errorf("console: duplicate view %q", view.ID)
		}
		seen[view.ID] = true
	}
	safe, ok := c.View(c.SafeView)
	if !ok {
		return fmt.Errorf("console: safe view %q not in catalog", c.SafeView)
	}
	if safe.AdminOnly {
		return fmt.Errorf("console: safe view %q must not be admin-only", c.SafeView)
	}
	if len(safe.TabTopics) != 0 {
		return fmt.Errorf("console: safe view %q must not carry tab topics", c.SafeView)
	}
	for _, core := range c.CoreTopics {
		if core.Topic == "" {
			return fmt.Errorf("console: core topic with empty name")
		}
	}
	return nil
}
