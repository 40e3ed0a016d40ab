// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package console

import "testing"

func TestDefaultCatalogValid(t *testing.T) {
	catalog := DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, ok := catalog.View(catalog.SafeView); !ok {
		t.Errorf("safe view %q not found", catalog.SafeView)
	}
}

func TestAccessibility(t *testing.T) {
	catalog := DefaultCatalog()

	if !catalog.IsAccessible("portals", false) {
		t.Error("portals should be accessible without privilege")
	}
	if catalog.IsAccessible("admin", false) {
		t.Error("admin view accessible without privilege")
	}
	if !catalog.IsAccessible("admin", true) {
		t.Error("admin view not accessible with privilege")
	}
	if catalog.IsAccessible("no-such-view", true) {
		t.Error("unknown view reported accessible")
	}

	unprivileged := catalog.Accessible(false)
	privileged := catalog.Accessible(true)
	if len(privileged) <= len(unprivileged) {
		t.Errorf("privileged sees %d views, unprivileged %d; want strictly more",
			len(privileged), len(unprivileged))
	}
	for _, view := range unprivileged {
		if view.AdminOnly {
			t.Errorf("admin-only view %q visible without privilege", view.ID)
		}
	}
}

func TestValidateRejectsBrokenCatalogs(t *testing.T) {
	cases := []struct {
		name    string
		catalog Catalog
	}{
		{"no views", Catalog{SafeView: "x"}},
		{"duplicate view", Catalog{
			Views:    []View{{ID: "a"}, {ID: "a"}},
			SafeView: "a",
		}},
		{"missing safe view", Catalog{
			Views:    []View{{ID: "a"}},
			SafeView: "b",
		}},
		{"admin-only safe view", Catalog{
			Views:    []View{{ID: "a", AdminOnly: true}},
			SafeView: "a",
		}},
		{"safe view with tab topics", Catalog{
			Views:    []View{{ID: "a", TabTopics: []Topic{"t"}}},
			SafeView: "a",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.catalog.Validate(); err == nil {
				t.Error("Validate accepted a broken catalog")
			}
		})
	}
}
