// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the console key bindings.
type keyMap struct {
	NextView key.Binding
	PrevView key.Binding
	Admin    key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextView: key.NewBinding(
			key.WithKeys("tab", "right"),
			key.WithHelp("tab", "next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("shift+tab", "left"),
			key.WithHelp("shift+tab", "previous view"),
		),
		Admin: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle admin mode"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
