// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/loom/internal/agent"
	"github.com/morganforge/loom/internal/commands"
	"github.com/morganforge/loom/internal/config"
	"github.com/morganforge/loom/internal/mcp"
	"github.com/morganforge/loom/internal/model"
	"github.com/morganforge/loom/internal/ollama"
	"github.com/morganforge/loom/internal/tools"
)

// idleModel never answers; chat tests drive the UI with synthetic events
// instead of real turns.
type idleModel struct{}

func (idleModel) Send(ctx context.Context, modelName string, messages []ollama.Message, wireTools []ollama.Tool, onToken func(string)) (*ollama.Turn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := config.Default()
	orch := agent.New(idleModel{}, tools.NewRegistry(), mcp.NewManager(), model.NewConversation(),
		func(interface{}) {}, agent.Config{Model: cfg.Model.Name})
	client := ollama.NewClient()
	return New(orch, client, mcp.NewManager(), nil, cfg)
}

func resized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func TestView_BeforeAndAfterResize(t *testing.T) {
	m := newTestModel(t)
	if !strings.Contains(m.View(), "starting") {
		t.Error("pre-resize view missing placeholder")
	}

	m = resized(t, m)
	view := m.View()
	if !strings.Contains(view, "ready") {
		t.Errorf("status bar missing ready state:\n%s", view)
	}
	if !strings.Contains(view, "loom") {
		t.Error("welcome banner missing")
	}
}

func TestUpdate_StreamingTokensThenComplete(t *testing.T) {
	m := resized(t, newTestModel(t))

	// Each Update copies the model by value; the buffer must survive the
	// copies intact.
	next, _ := m.Update(agent.TokenMsg{Token: "hel"})
	m = next.(Model)
	next, _ = m.Update(agent.TokenMsg{Token: "lo"})
	m = next.(Model)
	if m.streamBuf != "hello" {
		t.Errorf("streamBuf = %q", m.streamBuf)
	}
	if !strings.Contains(m.viewport.View(), "hello") {
		t.Error("viewport missing streamed content")
	}

	next, _ = m.Update(agent.TurnCompleteMsg{
		Message:          model.NewAssistantMessage("hello"),
		CompletionTokens: 42,
		TokensPerSec:     17.3,
	})
	m = next.(Model)
	if m.streamBuf != "" {
		t.Error("stream buffer not reset on completion")
	}
	last := m.transcript[len(m.transcript)-1]
	if !strings.Contains(last, "hello") {
		t.Errorf("final block = %q", last)
	}
	if !strings.Contains(m.statusNote, "42 tokens") || !strings.Contains(m.statusNote, "tok/s") {
		t.Errorf("statusNote = %q", m.statusNote)
	}
}

func TestUpdate_ConfirmationKeys(t *testing.T) {
	m := resized(t, newTestModel(t))

	req := agent.ConfirmRequestMsg{
		Call:   model.ToolCallRequest{ID: "c1", Name: "write_file"},
		Origin: "local",
	}
	next, _ := m.Update(req)
	m = next.(Model)
	if m.pendingConfirm == nil {
		t.Fatal("confirmation request not captured")
	}
	if !strings.Contains(m.View(), "write_file") {
		t.Error("confirmation prompt missing tool name")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m = next.(Model)
	if m.pendingConfirm != nil {
		t.Error("y did not clear the pending confirmation")
	}

	// Decline path.
	next, _ = m.Update(req)
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	m = next.(Model)
	if m.pendingConfirm != nil {
		t.Error("n did not clear the pending confirmation")
	}

	// Always-allow path.
	next, _ = m.Update(req)
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = next.(Model)
	if m.pendingConfirm != nil {
		t.Error("a did not clear the pending confirmation")
	}
}

func TestUpdate_ClearDuringTurnWaitsForIdle(t *testing.T) {
	m := resized(t, newTestModel(t))
	conv := m.orch.Conversation()
	conv.Append(model.NewUserMessage("hi"))
	m.state = agent.StateAwaitingModel

	next, _ := m.Update(commands.ClearConversationMsg{})
	m = next.(Model)
	if conv.Len() == 0 {
		t.Fatal("clear ran while the turn was still active")
	}
	if !m.clearPending {
		t.Fatal("clear not deferred")
	}

	// A straggling tool result can land before the terminal event; the
	// deferred clear must wipe it too.
	conv.Append(model.NewToolResultMessage("c1", []model.Block{model.TextBlock("done")}, false))

	next, _ = m.Update(agent.StateMsg{State: agent.StateIdle})
	m = next.(Model)
	if conv.Len() != 0 {
		t.Errorf("conversation has %d messages after deferred clear", conv.Len())
	}
	if m.clearPending {
		t.Error("clearPending not reset")
	}
}

func TestUpdate_ClearWhileIdleIsImmediate(t *testing.T) {
	m := resized(t, newTestModel(t))
	conv := m.orch.Conversation()
	conv.Append(model.NewUserMessage("hi"))

	next, _ := m.Update(commands.ClearConversationMsg{})
	m = next.(Model)
	if conv.Len() != 0 {
		t.Errorf("conversation has %d messages after clear", conv.Len())
	}
	if m.clearPending {
		t.Error("idle clear should not defer")
	}
}

func TestUpdate_EndpointCheckFailureWarns(t *testing.T) {
	m := resized(t, newTestModel(t))

	next, _ := m.Update(endpointCheckedMsg{err: ollama.ErrNotRunning})
	m = next.(Model)
	last := m.transcript[len(m.transcript)-1]
	if !strings.Contains(last, "cannot reach") {
		t.Errorf("last block = %q", last)
	}

	// A healthy endpoint stays silent.
	before := len(m.transcript)
	next, _ = m.Update(endpointCheckedMsg{})
	m = next.(Model)
	if len(m.transcript) != before {
		t.Error("healthy endpoint check appended a block")
	}
}

func TestSubmit_UnknownCommand(t *testing.T) {
	m := resized(t, newTestModel(t))
	m.textarea.SetValue("/bogus")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	last := m.transcript[len(m.transcript)-1]
	if !strings.Contains(last, "unknown command") {
		t.Errorf("last block = %q", last)
	}
}

func TestSubmit_BusyRefusesInput(t *testing.T) {
	m := resized(t, newTestModel(t))
	m.state = agent.StateAwaitingModel
	m.textarea.SetValue("another question")

	before := len(m.transcript)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if len(m.transcript) != before {
		t.Error("busy submit still appended to transcript")
	}
	if !strings.Contains(m.statusNote, "busy") {
		t.Errorf("statusNote = %q", m.statusNote)
	}
}

func TestStatusView_TruncatedToWidth(t *testing.T) {
	m := resized(t, newTestModel(t))
	m.width = 20
	m.statusNote = strings.Repeat("x", 100)

	line := m.statusView()
	for _, row := range strings.Split(line, "\n") {
		if w := len([]rune(stripANSI(row))); w > 20 {
			t.Errorf("status row width %d exceeds terminal width: %q", w, row)
		}
	}
}

// stripANSI removes escape sequences for width assertions.
func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
