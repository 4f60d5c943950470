// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
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

// endpointCheckTimeout bounds the startup reachability probe of the model
// endpoint.
const endpointCheckTimeout = 5 * time.Second

// =============================================================================
// INTERNAL MESSAGES
// =============================================================================

// endpointCheckedMsg reports the startup reachability check of the model
// endpoint.
type endpointCheckedMsg struct {
	err error
}

// modelsLoadedMsg carries the /model listing fetched off the update loop.
type modelsLoadedMsg struct {
	models []string
	err    error
}

// mcpRefreshedMsg signals a finished /mcp refresh.
type mcpRefreshedMsg struct{}

// sessionSavedMsg reports a /save outcome.
type sessionSavedMsg struct {
	id  string
	err error
}

// sessionsListedMsg carries the /sessions listing.
type sessionsListedMsg struct {
	metas []storage.Meta
	err   error
}

// sessionLoadedMsg reports a /resume outcome.
type sessionLoadedMsg struct {
	id  string
	err error
}

// =============================================================================
// UPDATE
// =============================================================================

// Update is the Bubble Tea event loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	// Agent events.
	case agent.StateMsg:
		m.state = msg.State
		if msg.State == agent.StateIdle {
			m.pendingConfirm = nil
			if m.clearPending {
				m.clearPending = false
				m.resetConversation()
			}
		}
		return m, nil
	case agent.TokenMsg:
		m.streamBuf += msg.Token
		m.syncViewport()
		return m, nil
	case agent.ConfirmRequestMsg:
		m.pendingConfirm = &msg
		return m, nil
	case agent.ToolStartedMsg:
		m.appendBlock(styles.MutedText.Render("running " + msg.Call.Name + "..."))
		return m, nil
	case agent.ToolResultMsg:
		m.appendBlock(m.renderToolResult(msg.Message))
		return m, nil
	case agent.TurnCompleteMsg:
		m.streamBuf = ""
		m.appendBlock(m.renderAssistant(msg.Message.Text()))
		if msg.TokensPerSec > 0 {
			m.statusNote = fmt.Sprintf("%d tokens, %.1f tok/s", msg.CompletionTokens, msg.TokensPerSec)
		} else {
			m.statusNote = fmt.Sprintf("%d tokens", msg.CompletionTokens)
		}
		return m, nil
	case agent.TurnErrorMsg:
		m.streamBuf = ""
		m.pendingConfirm = nil
		m.appendBlock(styles.RenderError(turnErrorText(msg.Err, m.orch.Model())))
		return m, nil
	case agent.TurnCancelledMsg:
		m.streamBuf = ""
		m.pendingConfirm = nil
		m.appendBlock(styles.MutedText.Render("cancelled"))
		return m, nil

	// Slash command effects.
	case commands.ShowHelpMsg:
		m.appendBlock(m.renderHelp())
		return m, nil
	case commands.NewConversationMsg, commands.ClearConversationMsg:
		// Clearing invalidates the running turn and any pending confirmation.
		// A busy turn is cancelled first and the clear waits for its terminal
		// event, so a tool result that beats the cancel cannot land in the
		// fresh history.
		m.pendingConfirm = nil
		if m.busy() {
			m.orch.Cancel()
			m.clearPending = true
			return m, nil
		}
		m.resetConversation()
		return m, nil
	case commands.ModelSwitchMsg:
		return m.handleModelSwitch(msg)
	case commands.ShowHistoryMsg:
		m.appendBlock(m.renderHistory())
		return m, nil
	case commands.ShowStatusMsg:
		m.appendBlock(m.renderStatus())
		return m, nil
	case commands.ToggleAutoConfirmMsg:
		on := !m.orch.AutoConfirm()
		m.orch.SetAutoConfirm(on)
		if on {
			m.appendBlock(styles.RenderWarning("auto-confirm on: tools run without prompting"))
		} else {
			m.appendBlock(styles.RenderInfo("auto-confirm off"))
		}
		return m, nil
	case commands.MCPMsg:
		return m.handleMCP(msg)
	case commands.SaveSessionMsg:
		return m, m.saveSessionCmd()
	case commands.ListSessionsMsg:
		return m, m.listSessionsCmd()
	case commands.ResumeSessionMsg:
		return m, m.resumeSessionCmd(msg.ID)
	case commands.UsageErrorMsg:
		m.appendBlock(styles.RenderError("usage: " + msg.Usage))
		return m, nil

	// Async command results.
	case endpointCheckedMsg:
		if msg.err != nil {
			m.appendBlock(styles.RenderWarning(
				"cannot reach " + m.cfg.Model.Host + ": " + msg.err.Error() +
					"\nstart the server with: ollama serve"))
		}
		return m, nil
	case modelsLoadedMsg:
		if msg.err != nil {
			m.appendBlock(styles.RenderError(msg.err.Error()))
		} else {
			m.appendBlock(m.renderModelList(msg.models))
		}
		return m, nil
	case mcpRefreshedMsg:
		m.appendBlock(m.renderMCPStatus())
		return m, nil
	case sessionSavedMsg:
		if msg.err != nil {
			m.appendBlock(styles.RenderError("save failed: " + msg.err.Error()))
		} else {
			m.appendBlock(styles.RenderSuccess("saved session " + msg.id))
		}
		return m, nil
	case sessionsListedMsg:
		if msg.err != nil {
			m.appendBlock(styles.RenderError(msg.err.Error()))
		} else {
			m.appendBlock(m.renderSessionList(msg.metas))
		}
		return m, nil
	case sessionLoadedMsg:
		if msg.err != nil {
			m.appendBlock(styles.RenderError("resume failed: " + msg.err.Error()))
		} else {
			m.transcript = []string{m.welcomeBanner(), m.renderHistory()}
			m.syncViewport()
			m.appendBlock(styles.RenderSuccess("resumed session " + msg.id))
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE AND KEYS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	inputHeight := m.textarea.Height() + 2
	statusHeight := 1
	vpHeight := msg.Height - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(msg.Width - 4)

	style := glamour.WithAutoStyle()
	switch m.cfg.UI.Theme {
	case config.ThemeDark:
		style = glamour.WithStandardStyle("dark")
	case config.ThemeLight:
		style = glamour.WithStandardStyle("light")
	case config.ThemePlain:
		style = glamour.WithStandardStyle("notty")
	}
	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(msg.Width-4),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.syncViewport()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Confirmation mode captures y/a/n/esc before anything else.
	if m.pendingConfirm != nil {
		switch msg.String() {
		case "y", "Y":
			m.pendingConfirm = nil
			m.orch.Resolve(true)
			return m, nil
		case "a", "A":
			name := m.pendingConfirm.Call.Name
			m.pendingConfirm = nil
			m.orch.ResolveAlways(name)
			return m, nil
		case "n", "N":
			m.pendingConfirm = nil
			m.orch.Resolve(false)
			return m, nil
		case "esc", "ctrl+c":
			m.pendingConfirm = nil
			m.orch.Cancel()
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		if m.busy() {
			m.orch.Cancel()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.busy() {
			m.orch.Cancel()
		}
		return m, nil

	case "enter":
		return m.submit()
	}

	return m.updateComponents(msg)
}

// submit routes the textarea content: slash commands run immediately,
// anything else starts a turn. Input during a running turn is refused with
// a status note, never queued.
func (m Model) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}

	if commands.IsCommand(input) {
		result := m.parser.Parse(input)
		m.textarea.Reset()
		if result.Command == nil {
			m.appendBlock(styles.RenderError("unknown command " + result.CommandName))
			return m, nil
		}
		return m, result.Command.Handler(result.Args)
	}

	if m.busy() {
		m.statusNote = "busy: wait for the current turn or press esc"
		return m, nil
	}

	m.textarea.Reset()
	m.statusNote = ""
	m.appendBlock(m.renderUser(input))

	if err := m.orch.Run(input); err != nil {
		if errors.Is(err, agent.ErrBusy) {
			m.statusNote = "busy: wait for the current turn or press esc"
			return m, nil
		}
		m.appendBlock(styles.RenderError(err.Error()))
	}
	return m, nil
}

// =============================================================================
// COMMAND EXECUTION
// =============================================================================

func (m Model) handleModelSwitch(msg commands.ModelSwitchMsg) (tea.Model, tea.Cmd) {
	if msg.Model != "" {
		m.orch.SetModel(msg.Model)
		m.orch.Conversation().SetModel(msg.Model)
		m.appendBlock(styles.RenderSuccess("model set to " + msg.Model))
		return m, nil
	}
	client := m.client
	return m, func() tea.Msg {
		infos, err := client.ListModels(context.Background())
		if err != nil {
			return modelsLoadedMsg{err: err}
		}
		names := make([]string, 0, len(infos))
		for _, info := range infos {
			names = append(names, info.Name)
		}
		return modelsLoadedMsg{models: names}
	}
}

func (m Model) handleMCP(msg commands.MCPMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case "list":
		m.appendBlock(m.renderMCPStatus())
		return m, nil

	case "refresh":
		servers := m.servers
		return m, func() tea.Msg {
			servers.Refresh(context.Background())
			return mcpRefreshedMsg{}
		}

	case "add":
		cfg := mcp.Server{ID: msg.Args[0], URL: msg.Args[1], Enabled: true}
		if len(msg.Args) > 2 {
			cfg.AuthToken = msg.Args[2]
		}
		if err := m.servers.AddServer(cfg); err != nil {
			m.appendBlock(styles.RenderError(err.Error()))
			return m, nil
		}
		m.appendBlock(styles.RenderSuccess("added server " + cfg.ID))
		servers := m.servers
		return m, func() tea.Msg {
			servers.Refresh(context.Background())
			return mcpRefreshedMsg{}
		}

	case "remove":
		if err := m.servers.RemoveServer(msg.Args[0]); err != nil {
			m.appendBlock(styles.RenderError(err.Error()))
		} else {
			m.appendBlock(styles.RenderSuccess("removed server " + msg.Args[0]))
		}
		return m, nil

	case "enable", "disable":
		enabled := msg.Action == "enable"
		if err := m.servers.SetEnabled(msg.Args[0], enabled); err != nil {
			m.appendBlock(styles.RenderError(err.Error()))
		} else {
			m.appendBlock(styles.RenderSuccess(msg.Action + "d server " + msg.Args[0]))
		}
		return m, nil
	}
	return m, nil
}

// checkEndpointCmd probes the model endpoint once at startup so an
// unreachable server is reported before the first prompt fails.
func (m Model) checkEndpointCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), endpointCheckTimeout)
		defer cancel()
		return endpointCheckedMsg{err: client.CheckRunning(ctx)}
	}
}

// turnErrorText maps known endpoint failures to actionable messages.
func turnErrorText(err error, modelName string) string {
	switch {
	case ollama.IsNotRunning(err):
		return "cannot reach the model endpoint; start it with: ollama serve"
	case ollama.IsModelNotFound(err):
		return "model not found; pull it with: ollama pull " + modelName
	case ollama.IsTimeout(err):
		return "request timed out; the model may still be loading, try again"
	default:
		return err.Error()
	}
}

func (m Model) saveSessionCmd() tea.Cmd {
	if m.store == nil {
		return func() tea.Msg { return sessionSavedMsg{err: errors.New("session storage unavailable")} }
	}
	store := m.store
	conv := m.orch.Conversation()
	return func() tea.Msg {
		if err := store.Save(conv); err != nil {
			return sessionSavedMsg{err: err}
		}
		return sessionSavedMsg{id: conv.ID}
	}
}

func (m Model) listSessionsCmd() tea.Cmd {
	if m.store == nil {
		return func() tea.Msg { return sessionsListedMsg{err: errors.New("session storage unavailable")} }
	}
	store := m.store
	return func() tea.Msg {
		metas, err := store.List()
		return sessionsListedMsg{metas: metas, err: err}
	}
}

func (m Model) resumeSessionCmd(id string) tea.Cmd {
	if m.store == nil {
		return func() tea.Msg { return sessionLoadedMsg{err: errors.New("session storage unavailable")} }
	}
	if m.busy() {
		return func() tea.Msg { return sessionLoadedMsg{err: agent.ErrBusy} }
	}
	store := m.store
	orch := m.orch
	return func() tea.Msg {
		loaded, err := store.Load(id)
		if err != nil {
			return sessionLoadedMsg{id: id, err: err}
		}
		// Replay into the live conversation so the orchestrator keeps its
		// pointer.
		conv := orch.Conversation()
		conv.Clear()
		for _, msg := range loaded.Snapshot() {
			conv.Append(msg)
		}
		if loaded.GetModel() != "" {
			conv.SetModel(loaded.GetModel())
			orch.SetModel(loaded.GetModel())
		}
		return sessionLoadedMsg{id: id}
	}
}
