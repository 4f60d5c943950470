// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/morganforge/loom/internal/agent"
	"github.com/morganforge/loom/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View composes the transcript, the confirmation prompt or input box, and
// the status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.pendingConfirm != nil {
		b.WriteString(m.confirmView())
	} else {
		b.WriteString(styles.InputBorder.Render(m.textarea.View()))
	}
	b.WriteString("\n")
	b.WriteString(m.statusView())
	return b.String()
}

// confirmView replaces the input box while a tool call awaits approval.
func (m Model) confirmView() string {
	call := m.pendingConfirm.Call
	origin := m.pendingConfirm.Origin

	var b strings.Builder
	b.WriteString(styles.WarningText.Render("Tool call requires confirmation") + "\n")
	b.WriteString(fmt.Sprintf("%s (%s)\n", call.Name, origin))
	if len(call.Arguments) > 0 {
		for k, v := range call.Arguments {
			b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %s: %v", k, v)) + "\n")
		}
	}
	hint := "y approve / a always allow / n decline / esc cancel turn"
	if origin == "remote" {
		// Remote tools prompt every time; "always" degrades to a plain yes.
		hint = "y approve / n decline / esc cancel turn"
	}
	b.WriteString(styles.MutedText.Render(hint))
	return styles.ConfirmBox.Render(b.String())
}

// statusView renders the single-line status bar, truncated to the
// terminal width.
func (m Model) statusView() string {
	var state string
	switch m.state {
	case agent.StateAwaitingModel:
		state = m.spinner.View() + " thinking"
	case agent.StateAwaitingConfirmation:
		state = "waiting for confirmation"
	case agent.StateExecutingTool:
		state = m.spinner.View() + " running tool"
	default:
		state = "ready"
	}

	parts := []string{state, m.orch.Model()}
	if m.orch.AutoConfirm() {
		parts = append(parts, "yolo")
	}
	if n := m.servers.Count(); n > 0 {
		parts = append(parts, fmt.Sprintf("mcp:%d", n))
	}
	if m.statusNote != "" {
		parts = append(parts, m.statusNote)
	}

	line := strings.Join(parts, "  |  ")
	line = runewidth.Truncate(line, maxInt(m.width-2, 0), "...")

	if m.busy() {
		return styles.StatusBarBusy.Width(m.width).Render(line)
	}
	return styles.StatusBar.Width(m.width).Render(line)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
