// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// Handlers communicate with the application by emitting these messages;
// the chat model interprets them against its own state.

// ShowHelpMsg triggers the help display.
type ShowHelpMsg struct{}

// NewConversationMsg starts a fresh conversation.
type NewConversationMsg struct{}

// ClearConversationMsg empties the current history.
type ClearConversationMsg struct{}

// ModelSwitchMsg switches the active model; an empty Model shows the
// available models instead.
type ModelSwitchMsg struct {
	Model string
}

// ShowHistoryMsg renders the stored conversation.
type ShowHistoryMsg struct{}

// ShowStatusMsg renders endpoint, model, and server status.
type ShowStatusMsg struct{}

// ToggleAutoConfirmMsg flips confirmation-free tool execution.
type ToggleAutoConfirmMsg struct{}

// MCPMsg carries one /mcp subcommand.
type MCPMsg struct {
	Action string // list, add, remove, enable, disable, refresh
	Args   []string
}

// SaveSessionMsg persists the current conversation.
type SaveSessionMsg struct{}

// ListSessionsMsg shows the saved sessions.
type ListSessionsMsg struct{}

// ResumeSessionMsg loads a saved conversation.
type ResumeSessionMsg struct {
	ID string
}

// UsageErrorMsg reports a malformed command invocation.
type UsageErrorMsg struct {
	Usage string
}

// =============================================================================
// HANDLERS
// =============================================================================

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func handleHelp(args []string) tea.Cmd {
	return msgCmd(ShowHelpMsg{})
}

func handleQuit(args []string) tea.Cmd {
	return tea.Quit
}

func handleNew(args []string) tea.Cmd {
	return msgCmd(NewConversationMsg{})
}

func handleClear(args []string) tea.Cmd {
	return msgCmd(ClearConversationMsg{})
}

func handleModel(args []string) tea.Cmd {
	if len(args) == 0 {
		return msgCmd(ModelSwitchMsg{})
	}
	return msgCmd(ModelSwitchMsg{Model: args[0]})
}

func handleHistory(args []string) tea.Cmd {
	return msgCmd(ShowHistoryMsg{})
}

func handleStatus(args []string) tea.Cmd {
	return msgCmd(ShowStatusMsg{})
}

func handleYolo(args []string) tea.Cmd {
	return msgCmd(ToggleAutoConfirmMsg{})
}

func handleMCP(args []string) tea.Cmd {
	if len(args) == 0 {
		return msgCmd(MCPMsg{Action: "list"})
	}
	action := args[0]
	rest := args[1:]

	switch action {
	case "list", "refresh":
		return msgCmd(MCPMsg{Action: action})
	case "add":
		if len(rest) < 2 {
			return msgCmd(UsageErrorMsg{Usage: "/mcp add <id> <url> [token]"})
		}
		return msgCmd(MCPMsg{Action: action, Args: rest})
	case "remove", "enable", "disable":
		if len(rest) < 1 {
			return msgCmd(UsageErrorMsg{Usage: "/mcp " + action + " <id>"})
		}
		return msgCmd(MCPMsg{Action: action, Args: rest})
	default:
		return msgCmd(UsageErrorMsg{Usage: "/mcp [list|add|remove|enable|disable|refresh]"})
	}
}

func handleSave(args []string) tea.Cmd {
	return msgCmd(SaveSessionMsg{})
}

func handleSessions(args []string) tea.Cmd {
	return msgCmd(ListSessionsMsg{})
}

func handleResume(args []string) tea.Cmd {
	if len(args) == 0 {
		return msgCmd(UsageErrorMsg{Usage: "/resume <session_id>"})
	}
	return msgCmd(ResumeSessionMsg{ID: args[0]})
}
