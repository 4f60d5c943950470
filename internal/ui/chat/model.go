// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/morganforge/loom/internal/agent"
	"github.com/morganforge/loom/internal/commands"
	"github.com/morganforge/loom/internal/config"
	"github.com/morganforge/loom/internal/mcp"
	"github.com/morganforge/loom/internal/ollama"
	"github.com/morganforge/loom/internal/storage"
	"github.com/morganforge/loom/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the root Bubble Tea model: transcript viewport on top, input
// textarea below, status bar at the bottom. Turn execution lives in the
// agent package; this model renders its events.
type Model struct {
	orch    *agent.Orchestrator
	client  *ollama.Client
	servers *mcp.Manager
	store   *storage.Store
	cfg     *config.Config

	parser *commands.Parser

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	// transcript holds rendered blocks, one per message or notice.
	transcript []string

	// streamBuf accumulates tokens for the in-flight assistant message.
	// A plain string: the model is copied by value on every Update, which
	// a strings.Builder must never be.
	streamBuf string

	state          agent.State
	pendingConfirm *agent.ConfirmRequestMsg
	clearPending   bool
	statusNote     string
	quitting       bool
}

// New assembles the chat model. store may be nil when the session database
// could not be opened; session commands then report the error.
func New(orch *agent.Orchestrator, client *ollama.Client, servers *mcp.Manager, store *storage.Store, cfg *config.Config) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask anything. /help for commands."
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		orch:     orch,
		client:   client,
		servers:  servers,
		store:    store,
		cfg:      cfg,
		parser:   commands.NewParser(commands.NewRegistry()),
		textarea: ta,
		spinner:  sp,
		state:    agent.StateIdle,
	}
	m.transcript = append(m.transcript, m.welcomeBanner())
	return m
}

// Init starts the cursor blink and spinner and probes the model endpoint.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.checkEndpointCmd())
}

// busy reports whether input should be held back.
func (m Model) busy() bool {
	return m.state != agent.StateIdle
}

// appendBlock adds a rendered block to the transcript and scrolls to the
// bottom.
func (m *Model) appendBlock(block string) {
	if block == "" {
		return
	}
	m.transcript = append(m.transcript, block)
	m.syncViewport()
}

// resetConversation wipes the history and transcript back to the welcome
// banner. Callers must ensure no turn is running.
func (m *Model) resetConversation() {
	m.orch.Conversation().Clear()
	m.streamBuf = ""
	m.transcript = []string{m.welcomeBanner()}
	m.syncViewport()
}

func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	content := strings.Join(m.transcript, "\n\n")
	if m.streamBuf != "" {
		content += "\n\n" + m.renderStreaming()
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m Model) welcomeBanner() string {
	var b strings.Builder
	b.WriteString(styles.Banner.Render("loom") + "\n")
	b.WriteString(styles.MutedText.Render("local agent on " + m.cfg.Model.Host))
	b.WriteString("\n" + styles.MutedText.Render("model: "+m.orch.Model()+"  /help for commands"))
	return b.String()
}
