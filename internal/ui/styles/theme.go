// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the loom TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================

// Purple - primary accent, assistant messages
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - brand color, commands, user highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - success states, tool results
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors, declined calls
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - warnings, pending confirmation
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Overlay - borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// TextPrimary - main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextMuted - hints, timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// TextInverse - text on colored backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// =============================================================================
// MESSAGE STYLES
// =============================================================================

// UserLabel styles the "You" prefix.
var UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

// AssistantLabel styles the "Assistant" prefix.
var AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)

// ToolLabel styles the "Tool" prefix.
var ToolLabel = lipgloss.NewStyle().Foreground(Emerald).Bold(true)

// SystemText styles informational output from slash commands.
var SystemText = lipgloss.NewStyle().Foreground(TextMuted)

// ErrorText styles error lines.
var ErrorText = lipgloss.NewStyle().Foreground(Rose).Bold(true)

// SuccessText styles success confirmations.
var SuccessText = lipgloss.NewStyle().Foreground(Emerald)

// WarningText styles warnings and confirmation prompts.
var WarningText = lipgloss.NewStyle().Foreground(Amber).Bold(true)

// MutedText styles hints and secondary detail.
var MutedText = lipgloss.NewStyle().Foreground(TextMuted)

// =============================================================================
// CHROME
// =============================================================================

// StatusBar styles the bottom status line.
var StatusBar = lipgloss.NewStyle().
	Foreground(TextInverse).
	Background(Purple).
	Padding(0, 1)

// StatusBarBusy recolors the status line while a turn is in flight.
var StatusBarBusy = lipgloss.NewStyle().
	Foreground(TextInverse).
	Background(Amber).
	Padding(0, 1)

// InputBorder frames the textarea.
var InputBorder = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Overlay)

// ConfirmBox frames a pending tool confirmation.
var ConfirmBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Amber).
	Padding(0, 1)

// Banner styles the welcome header.
var Banner = lipgloss.NewStyle().Foreground(Purple).Bold(true)

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// ASCII indicators keep status readable without color.
const (
	IndicatorOK      = "[OK]"
	IndicatorError   = "[X]"
	IndicatorWarning = "[!]"
	IndicatorInfo    = "[i]"
)

// RenderError renders an error line with its indicator.
func RenderError(message string) string {
	return ErrorText.Render(IndicatorError + " " + message)
}

// RenderSuccess renders a success line with its indicator.
func RenderSuccess(message string) string {
	return SuccessText.Render(IndicatorOK + " " + message)
}

// RenderInfo renders an informational line with its indicator.
func RenderInfo(message string) string {
	return SystemText.Render(IndicatorInfo + " " + message)
}

// RenderWarning renders a warning line with its indicator.
func RenderWarning(message string) string {
	return WarningText.Render(IndicatorWarning + " " + message)
}
