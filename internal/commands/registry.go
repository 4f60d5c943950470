// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command is one slash command.
type Command struct {
	// Name is the primary command name (e.g., "/help").
	Name string

	// Aliases are alternative names (e.g., "/h", "/?").
	Aliases []string

	// Description is shown in help.
	Description string

	// Usage shows argument syntax (e.g., "/model <name>").
	Usage string

	// Handler produces the command the UI runs.
	Handler func(args []string) tea.Cmd
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns the commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Handler:     handleHelp,
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit loom",
		Handler:     handleQuit,
	})

	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new conversation",
		Handler:     handleNew,
	})

	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear conversation history",
		Handler:     handleClear,
	})

	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Show or switch the active model",
		Usage:       "/model [name]",
		Handler:     handleModel,
	})

	r.Register(&Command{
		Name:        "/history",
		Description: "Show the conversation history",
		Handler:     handleHistory,
	})

	r.Register(&Command{
		Name:        "/status",
		Description: "Show connection and session status",
		Handler:     handleStatus,
	})

	r.Register(&Command{
		Name:        "/yolo",
		Description: "Toggle tool confirmation prompts",
		Handler:     handleYolo,
	})

	r.Register(&Command{
		Name:        "/mcp",
		Description: "Manage remote tool servers",
		Usage:       "/mcp [list|add <id> <url> [token]|remove <id>|enable <id>|disable <id>|refresh]",
		Handler:     handleMCP,
	})

	r.Register(&Command{
		Name:        "/save",
		Aliases:     []string{"/s"},
		Description: "Save the current session",
		Handler:     handleSave,
	})

	r.Register(&Command{
		Name:        "/sessions",
		Aliases:     []string{"/list"},
		Description: "List saved sessions",
		Handler:     handleSessions,
	})

	r.Register(&Command{
		Name:        "/resume",
		Aliases:     []string{"/load", "/l"},
		Description: "Resume a saved session",
		Usage:       "/resume <session_id>",
		Handler:     handleResume,
	})
}
