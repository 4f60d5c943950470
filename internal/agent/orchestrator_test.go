// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/morganforge/loom/internal/model"
	"github.com/morganforge/loom/internal/ollama"
	"github.com/morganforge/loom/internal/tools"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

// scriptedModel plays back a fixed sequence of turns, recording the wire
// history of every request.
type scriptedModel struct {
	mu     sync.Mutex
	script []scriptStep
	seen   [][]ollama.Message
}

type scriptStep struct {
	turn *ollama.Turn
	err  error
	// block parks the request until the context is cancelled.
	block bool
}

func (m *scriptedModel) Send(ctx context.Context, modelName string, messages []ollama.Message, wireTools []ollama.Tool, onToken func(string)) (*ollama.Turn, error) {
	m.mu.Lock()
	if len(m.script) == 0 {
		m.mu.Unlock()
		return &ollama.Turn{Content: "unscripted"}, nil
	}
	step := m.script[0]
	m.script = m.script[1:]
	m.seen = append(m.seen, messages)
	m.mu.Unlock()

	if step.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if step.err != nil {
		return nil, step.err
	}
	return step.turn, nil
}

func (m *scriptedModel) requests() [][]ollama.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen
}

func finalTurn(text string) scriptStep {
	return scriptStep{turn: &ollama.Turn{Content: text}}
}

func toolTurn(calls ...ollama.ToolCall) scriptStep {
	return scriptStep{turn: &ollama.Turn{ToolCalls: calls}}
}

func callFor(name string, args map[string]interface{}) ollama.ToolCall {
	return ollama.ToolCall{Function: ollama.ToolFunction{Name: name, Arguments: args}}
}

// newTestOrchestrator wires a scripted model to a fresh conversation and
// an event collector channel.
func newTestOrchestrator(script ...scriptStep) (*Orchestrator, *scriptedModel, <-chan interface{}) {
	client := &scriptedModel{script: script}
	events := make(chan interface{}, 256)
	conv := model.NewConversation()
	orch := New(client, tools.NewRegistry(), nil, conv, func(e interface{}) { events <- e }, Config{
		Model: "test-model",
	})
	return orch, client, events
}

// awaitEvent pulls events until match succeeds or the deadline passes.
func awaitEvent(t *testing.T, events <-chan interface{}, what string, match func(interface{}) bool) interface{} {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case e := <-events:
			if match(e) {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
			return nil
		}
	}
}

func isTerminal(e interface{}) bool {
	switch e.(type) {
	case TurnCompleteMsg, TurnErrorMsg, TurnCancelledMsg:
		return true
	}
	return false
}

// awaitTerminal returns the turn's terminal event and asserts no second
// one follows.
func awaitTerminal(t *testing.T, events <-chan interface{}) interface{} {
	t.Helper()
	terminal := awaitEvent(t, events, "terminal event", isTerminal)

	quiet := time.After(150 * time.Millisecond)
	for {
		select {
		case e := <-events:
			if isTerminal(e) {
				t.Fatalf("second terminal event after %T: %T", terminal, e)
			}
		case <-quiet:
			return terminal
		}
	}
}

// =============================================================================
// BASIC TURNS
// =============================================================================

func TestRun_FinalMessage(t *testing.T) {
	orch, _, events := newTestOrchestrator(finalTurn("hello there"))

	if err := orch.Run("hi"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	terminal := awaitTerminal(t, events)
	done, ok := terminal.(TurnCompleteMsg)
	if !ok {
		t.Fatalf("terminal event = %T, want TurnCompleteMsg", terminal)
	}
	if done.Message.Text() != "hello there" {
		t.Errorf("final text = %q", done.Message.Text())
	}

	if orch.State() != StateIdle {
		t.Errorf("state = %v, want idle", orch.State())
	}
	if n := orch.Conversation().Len(); n != 2 {
		t.Errorf("conversation has %d messages, want 2 (user, assistant)", n)
	}
}

func TestRun_BusyRejectsSecondTurn(t *testing.T) {
	orch, _, events := newTestOrchestrator(scriptStep{block: true})

	if err := orch.Run("first"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := orch.Run("second"); err != ErrBusy {
		t.Errorf("second Run() error = %v, want ErrBusy", err)
	}

	orch.Cancel()
	awaitTerminal(t, events)
}

func TestRun_ModelErrorIsTerminal(t *testing.T) {
	orch, _, events := newTestOrchestrator(scriptStep{err: ollama.ErrNotRunning})

	if err := orch.Run("hi"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	terminal := awaitTerminal(t, events)
	fail, ok := terminal.(TurnErrorMsg)
	if !ok {
		t.Fatalf("terminal event = %T, want TurnErrorMsg", terminal)
	}
	if fail.Err == nil {
		t.Error("TurnErrorMsg carries no error")
	}
	if orch.State() != StateIdle {
		t.Errorf("state = %v, want idle", orch.State())
	}
}

// =============================================================================
// TOOL CALL FLOW
// =============================================================================

func TestRun_ToolCallRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	os.WriteFile(path, []byte("remember the milk\n"), 0644)

	orch, client, events := newTestOrchestrator(
		toolTurn(callFor("read_file", map[string]interface{}{"path": path})),
		finalTurn("the note says to remember the milk"),
	)

	if err := orch.Run("what does my note say?"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	awaitTerminal(t, events)

	// Stored history: user input, tool result, final assistant message.
	// The assistant's tool-call request stays a wire artifact.
	snapshot := orch.Conversation().Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("conversation has %d messages, want 3", len(snapshot))
	}
	if snapshot[0].Role != model.RoleUser {
		t.Errorf("message 0 role = %v, want user", snapshot[0].Role)
	}
	res := snapshot[1].ToolResult()
	if res == nil {
		t.Fatal("message 1 carries no tool result")
	}
	if res.IsError {
		t.Errorf("tool result IsError = true: %q", snapshot[1].Text())
	}
	if res.CallID == "" {
		t.Error("tool result has no call ID")
	}
	if !strings.Contains(snapshot[1].Text(), "remember the milk") {
		t.Errorf("tool result text = %q", snapshot[1].Text())
	}
	if snapshot[2].Role != model.RoleAssistant {
		t.Errorf("message 2 role = %v, want assistant", snapshot[2].Role)
	}

	// The second request carries the tool-call exchange on the wire.
	reqs := client.requests()
	if len(reqs) != 2 {
		t.Fatalf("model saw %d requests, want 2", len(reqs))
	}
	second := reqs[1]
	var sawToolCall, sawToolResult bool
	for _, wm := range second {
		if wm.Role == "assistant" && wm.HasToolCalls() {
			sawToolCall = true
		}
		if wm.Role == "tool" {
			sawToolResult = true
		}
	}
	if !sawToolCall {
		t.Error("resubmitted wire is missing the assistant tool-call message")
	}
	if !sawToolResult {
		t.Error("resubmitted wire is missing the tool result message")
	}
}

func TestRun_BatchExecutesInEmissionOrder(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	os.WriteFile(a, []byte("first\n"), 0644)
	os.WriteFile(b, []byte("second\n"), 0644)

	orch, _, events := newTestOrchestrator(
		toolTurn(
			callFor("read_file", map[string]interface{}{"path": a}),
			callFor("read_file", map[string]interface{}{"path": b}),
		),
		finalTurn("done"),
	)

	if err := orch.Run("read both"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	awaitTerminal(t, events)

	snapshot := orch.Conversation().Snapshot()
	if len(snapshot) != 4 {
		t.Fatalf("conversation has %d messages, want 4", len(snapshot))
	}
	if !strings.Contains(snapshot[1].Text(), "first") {
		t.Errorf("result 1 = %q, want contents of a.txt", snapshot[1].Text())
	}
	if !strings.Contains(snapshot[2].Text(), "second") {
		t.Errorf("result 2 = %q, want contents of b.txt", snapshot[2].Text())
	}
}

func TestRun_UnknownToolRecordsErrorAndContinues(t *testing.T) {
	orch, _, events := newTestOrchestrator(
		toolTurn(callFor("summon_demon", nil)),
		finalTurn("sorry about that"),
	)

	if err := orch.Run("hi"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	terminal := awaitTerminal(t, events)
	if _, ok := terminal.(TurnCompleteMsg); !ok {
		t.Fatalf("terminal event = %T, want TurnCompleteMsg", terminal)
	}

	snapshot := orch.Conversation().Snapshot()
	res := snapshot[1].ToolResult()
	if res == nil || !res.IsError {
		t.Fatalf("message 1 = %+v, want error tool result", snapshot[1])
	}
	if !strings.Contains(snapshot[1].Text(), "unknown tool") {
		t.Errorf("result text = %q", snapshot[1].Text())
	}
}

func TestRun_InvalidArgumentsRecordedWithoutExecuting(t *testing.T) {
	orch, _, events := newTestOrchestrator(
		// read_file is auto-approved, so validation is the only gate.
		toolTurn(callFor("read_file", map[string]interface{}{"offset": float64(1)})),
		finalTurn("ok"),
	)
	orch.SetAutoConfirm(true)

	if err := orch.Run("hi"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	awaitTerminal(t, events)

	res := orch.Conversation().Snapshot()[1].ToolResult()
	if res == nil || !res.IsError {
		t.Fatal("missing-argument call did not record an error result")
	}
}

// =============================================================================
// CONFIRMATION GATING
// =============================================================================

func TestRun_DeclineRecordsErrorWithoutSideEffect(t *testing.T) {
	target := filepath.Join(t.TempDir(), "never.txt")

	orch, _, events := newTestOrchestrator(
		toolTurn(callFor("write_file", map[string]interface{}{
			"path":    target,
			"content": "forbidden",
		})),
		finalTurn("understood, not writing"),
	)

	if err := orch.Run("write the file"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	awaitEvent(t, events, "confirmation request", func(e interface{}) bool {
		_, ok := e.(ConfirmRequestMsg)
		return ok
	})
	orch.Resolve(false)

	terminal := awaitTerminal(t, events)
	if _, ok := terminal.(TurnCompleteMsg); !ok {
		t.Fatalf("terminal event = %T, want TurnCompleteMsg", terminal)
	}

	res := orch.Conversation().Snapshot()[1].ToolResult()
	if res == nil || !res.IsError {
		t.Fatal("declined call did not record an error result")
	}
	if text := orch.Conversation().Snapshot()[1].Text(); text != "execution declined by user" {
		t.Errorf("declined result text = %q", text)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("declined write_file still created the file")
	}
}

func TestRun_ApproveExecutes(t *testing.T) {
	target := filepath.Join(t.TempDir(), "ok.txt")

	orch, _, events := newTestOrchestrator(
		toolTurn(callFor("write_file", map[string]interface{}{
			"path":    target,
			"content": "approved",
		})),
		finalTurn("written"),
	)

	if err := orch.Run("write it"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	awaitEvent(t, events, "confirmation request", func(e interface{}) bool {
		_, ok := e.(ConfirmRequestMsg)
		return ok
	})
	orch.Resolve(true)
	awaitTerminal(t, events)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("approved write produced no file: %v", err)
	}
	if string(data) != "approved" {
		t.Errorf("file content = %q", string(data))
	}
}

func TestRun_AutoConfirmSkipsPrompt(t *testing.T) {
	target := filepath.Join(t.TempDir(), "auto.txt")

	orch, _, events := newTestOrchestrator(
		toolTurn(callFor("write_file", map[string]interface{}{
			"path":    target,
			"content": "no questions",
		})),
		finalTurn("done"),
	)
	orch.SetAutoConfirm(true)

	if err := orch.Run("write it"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	terminal := awaitTerminal(t, events)
	if _, ok := terminal.(TurnCompleteMsg); !ok {
		t.Fatalf("terminal event = %T, want TurnCompleteMsg", terminal)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("auto-confirmed write missing: %v", err)
	}
}

func TestRun_AlwaysAllowSkipsLaterPrompts(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.txt")
	second := filepath.Join(dir, "second.txt")

	orch, _, events := newTestOrchestrator(
		toolTurn(callFor("write_file", map[string]interface{}{
			"path":    first,
			"content": "one",
		})),
		finalTurn("written"),
		toolTurn(callFor("write_file", map[string]interface{}{
			"path":    second,
			"content": "two",
		})),
		finalTurn("written again"),
	)

	if err := orch.Run("write the first file"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	req := awaitEvent(t, events, "confirmation request", func(e interface{}) bool {
		_, ok := e.(ConfirmRequestMsg)
		return ok
	}).(ConfirmRequestMsg)
	orch.ResolveAlways(req.Call.Name)
	awaitTerminal(t, events)

	// The second turn must run the same tool without prompting.
	if err := orch.Run("write the second file"); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	deadline := time.After(3 * time.Second)
	for done := false; !done; {
		select {
		case e := <-events:
			if _, ok := e.(ConfirmRequestMsg); ok {
				t.Fatal("always-allowed tool prompted again")
			}
			done = isTerminal(e)
		case <-deadline:
			t.Fatal("timed out waiting for second turn")
		}
	}

	if _, err := os.Stat(second); err != nil {
		t.Errorf("second write missing: %v", err)
	}
}

// =============================================================================
// CANCELLATION
// =============================================================================

// lateModel returns a successful final turn only after its request context
// is cancelled, modelling a response that loses the race with cancel.
type lateModel struct{}

func (lateModel) Send(ctx context.Context, modelName string, messages []ollama.Message, wireTools []ollama.Tool, onToken func(string)) (*ollama.Turn, error) {
	<-ctx.Done()
	return &ollama.Turn{Content: "too late"}, nil
}

func TestCancel_LateSuccessfulResponseDiscarded(t *testing.T) {
	events := make(chan interface{}, 256)
	conv := model.NewConversation()
	orch := New(lateModel{}, tools.NewRegistry(), nil, conv,
		func(e interface{}) { events <- e }, Config{Model: "test-model"})

	if err := orch.Run("hi"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	orch.Cancel()

	terminal := awaitTerminal(t, events)
	if _, ok := terminal.(TurnCancelledMsg); !ok {
		t.Fatalf("terminal event = %T, want TurnCancelledMsg", terminal)
	}
	// The late answer must not be recorded.
	if n := conv.Len(); n != 1 {
		t.Errorf("conversation has %d messages, want 1", n)
	}
	for _, msg := range conv.Snapshot() {
		if msg.Role == model.RoleAssistant {
			t.Errorf("late assistant message recorded: %q", msg.Text())
		}
	}
}

func TestCancel_DuringModelRequest(t *testing.T) {
	orch, _, events := newTestOrchestrator(scriptStep{block: true})

	if err := orch.Run("hi"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	orch.Cancel()

	terminal := awaitTerminal(t, events)
	if _, ok := terminal.(TurnCancelledMsg); !ok {
		t.Fatalf("terminal event = %T, want TurnCancelledMsg", terminal)
	}
	if orch.State() != StateIdle {
		t.Errorf("state = %v, want idle", orch.State())
	}
	// Only the user message survives; no partial output is recorded.
	if n := orch.Conversation().Len(); n != 1 {
		t.Errorf("conversation has %d messages, want 1", n)
	}
}

func TestCancel_DuringConfirmation(t *testing.T) {
	target := filepath.Join(t.TempDir(), "never.txt")

	orch, _, events := newTestOrchestrator(
		toolTurn(callFor("write_file", map[string]interface{}{
			"path":    target,
			"content": "x",
		})),
	)

	if err := orch.Run("write it"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	awaitEvent(t, events, "confirmation request", func(e interface{}) bool {
		_, ok := e.(ConfirmRequestMsg)
		return ok
	})
	orch.Cancel()

	terminal := awaitTerminal(t, events)
	if _, ok := terminal.(TurnCancelledMsg); !ok {
		t.Fatalf("terminal event = %T, want TurnCancelledMsg", terminal)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("cancelled confirmation still executed the tool")
	}
	if n := orch.Conversation().Len(); n != 1 {
		t.Errorf("conversation has %d messages, want 1", n)
	}
}

func TestCancel_IsIdempotent(t *testing.T) {
	orch, _, events := newTestOrchestrator(scriptStep{block: true})

	if err := orch.Run("hi"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	orch.Cancel()
	orch.Cancel()
	orch.Cancel()

	terminal := awaitTerminal(t, events)
	if _, ok := terminal.(TurnCancelledMsg); !ok {
		t.Fatalf("terminal event = %T, want TurnCancelledMsg", terminal)
	}

	// Cancelling while idle is a no-op.
	orch.Cancel()
	if orch.State() != StateIdle {
		t.Errorf("state = %v, want idle", orch.State())
	}
}

// =============================================================================
// CANCEL CONTROLLER
// =============================================================================

func TestCancelController_BeginSupersedes(t *testing.T) {
	cc := NewCancelController()

	first := cc.Begin(context.Background())
	second := cc.Begin(context.Background())

	if first.Err() == nil {
		t.Error("first context survived a second Begin")
	}
	if second.Err() != nil {
		t.Error("second context cancelled prematurely")
	}

	cc.Cancel()
	if second.Err() == nil {
		t.Error("Cancel did not fire the active token")
	}
	cc.Cancel() // idempotent
}
