// loom - a terminal agent for local LLMs with tool use and MCP servers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/morganforge/loom/internal/agent"
	"github.com/morganforge/loom/internal/config"
	"github.com/morganforge/loom/internal/mcp"
	"github.com/morganforge/loom/internal/model"
	"github.com/morganforge/loom/internal/ollama"
	"github.com/morganforge/loom/internal/storage"
	"github.com/morganforge/loom/internal/tools"
	"github.com/morganforge/loom/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async event delivery. The orchestrator is
// constructed before the Bubble Tea program exists, so its notify sink
// resolves the program at send time.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "version", "--version", "-v":
			fmt.Printf("loom %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: loom is an interactive TUI and needs a terminal")
		os.Exit(1)
	}

	// ==========================================================================
	// CONFIGURATION
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so the standard logger never writes to it:
	// a debug log file when enabled, otherwise nothing.
	log.SetOutput(io.Discard)
	if cfg.Log.Debug {
		if logFile := openDebugLog(cfg); logFile != nil {
			defer logFile.Close()
			log.SetOutput(logFile)
			log.SetPrefix("loom ")
			log.Printf("starting %s (model %s, host %s)", Version, cfg.Model.Name, cfg.Model.Host)
		}
	}

	// ==========================================================================
	// CLIENTS AND SERVICES
	// ==========================================================================
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Model.Host,
		Timeout:      cfg.Model.Timeout(),
		DefaultModel: cfg.Model.Name,
	})

	servers := mcp.NewManager()
	for _, sc := range cfg.MCP.Servers {
		err := servers.AddServer(mcp.Server{
			ID:        sc.ID,
			URL:       sc.URL,
			Enabled:   sc.Enabled,
			AuthToken: sc.AuthToken,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping MCP server %q: %v\n", sc.ID, err)
		}
	}

	// Session storage is best-effort: the chat still works without it.
	var store *storage.Store
	if dbPath, err := cfg.DatabasePath(); err == nil {
		if store, err = storage.Open(dbPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: session storage unavailable: %v\n", err)
			store = nil
		}
	} else {
		fmt.Fprintf(os.Stderr, "Warning: session storage unavailable: %v\n", err)
	}
	if store != nil {
		defer store.Close()
	}

	// ==========================================================================
	// ORCHESTRATOR AND TUI
	// ==========================================================================
	notify := func(event interface{}) {
		programMu.Lock()
		p := programRef
		programMu.Unlock()
		if p != nil {
			p.Send(event)
		}
	}

	conv := model.NewConversationWithModel(cfg.Model.Name)
	orch := agent.New(client, tools.NewRegistry(), servers, conv, notify, agent.Config{
		Model:         cfg.Model.Name,
		SystemPrompt:  cfg.Model.SystemPrompt,
		AutoConfirm:   cfg.Chat.AutoConfirm,
		MaxIterations: cfg.Chat.MaxIterations,
	})

	p := tea.NewProgram(
		chat.New(orch, client, servers, store, cfg),
		tea.WithAltScreen(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running loom: %v\n", err)
		os.Exit(1)
	}
}

// openDebugLog opens the debug log for appending. Best-effort: a failure
// is reported on stderr and logging stays disabled.
func openDebugLog(cfg *config.Config) *os.File {
	path, err := cfg.LogPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
		return nil
	}
	return f
}

func printUsage() {
	fmt.Print(`loom - a terminal agent for local LLMs

Usage:
  loom            start the chat TUI
  loom version    print version information
  loom help       show this help

Configuration lives in ~/.loom/config.toml and is created on first save.
Inside the TUI, type /help for the command list.
`)
}
