// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the hearth console. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Tab bar.
	TabActiveForeground   lipgloss.Color
	TabActiveBackground   lipgloss.Color
	TabInactiveForeground lipgloss.Color
	TabAdminForeground    lipgloss.Color

	// Status bar.
	StatusConnected    lipgloss.Color
	StatusDisconnected lipgloss.Color
	PrivilegedAccent   lipgloss.Color

	// Fallback banner.
	FallbackForeground lipgloss.Color
	FallbackBackground lipgloss.Color

	BorderColor lipgloss.Color
	HelpText    lipgloss.Color
}

// DefaultTheme returns the standard hearth palette.
func DefaultTheme() Theme {
	return Theme{
		NormalText: lipgloss.Color("252"),
		FaintText:  lipgloss.Color("243"),

		TabActiveForeground:   lipgloss.Color("231"),
		TabActiveBackground:   lipgloss.Color("24"),
		TabInactiveForeground: lipgloss.Color("246"),
		TabAdminForeground:    lipgloss.Color("173"),

		StatusConnected:    lipgloss.Color("71"),
		StatusDisconnected: lipgloss.Color("167"),
		PrivilegedAccent:   lipgloss.Color("179"),

		FallbackForeground: lipgloss.Color("231"),
		FallbackBackground: lipgloss.Color("124"),

		BorderColor: lipgloss.Color("238"),
		HelpText:    lipgloss.Color("243"),
	}
}
