// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/morganforge/loom/internal/content"
	"github.com/morganforge/loom/internal/mcp"
	"github.com/morganforge/loom/internal/model"
	"github.com/morganforge/loom/internal/ollama"
	"github.com/morganforge/loom/internal/tools"
)

// =============================================================================
// ERRORS AND LIMITS
// =============================================================================

// ErrBusy is returned when Run is called while a turn is in flight. The
// caller surfaces a busy status instead of queueing input.
var ErrBusy = errors.New("a turn is already in progress")

// ErrTooManyIterations stops a turn whose model keeps requesting tools
// without converging on a final answer.
var ErrTooManyIterations = errors.New("turn exceeded the tool iteration limit")

// defaultMaxIterations bounds model round trips within one turn.
const defaultMaxIterations = 25

// =============================================================================
// MODEL CLIENT
// =============================================================================

// ModelClient is the model backend the orchestrator drives. Satisfied by
// *ollama.Client; tests substitute a scripted fake.
type ModelClient interface {
	Send(ctx context.Context, modelName string, messages []ollama.Message, wireTools []ollama.Tool, onToken func(string)) (*ollama.Turn, error)
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Config carries the orchestrator's tunables.
type Config struct {
	Model         string
	SystemPrompt  string
	AutoConfirm   bool
	MaxIterations int
}

// Orchestrator runs the agentic turn loop: send the conversation to the
// model, execute any requested tool calls (serialized, in emission order,
// gated by user confirmation), feed results back, and repeat until the
// model produces a final message. Exactly one terminal event ends every
// turn: TurnCompleteMsg, TurnErrorMsg, or TurnCancelledMsg.
type Orchestrator struct {
	client   ModelClient
	registry *tools.Registry
	servers  *mcp.Manager
	conv     *model.Conversation
	notify   func(interface{})
	cancel   *CancelController

	mu           sync.Mutex
	state        State
	pendingReply chan bool
	modelName    string
	autoConfirm  bool

	systemPrompt  string
	maxIterations int
}

// New creates an orchestrator in the Idle state. notify receives every
// event; servers may be nil for a local-only session.
func New(client ModelClient, registry *tools.Registry, servers *mcp.Manager, conv *model.Conversation, notify func(interface{}), cfg Config) *Orchestrator {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	return &Orchestrator{
		client:        client,
		registry:      registry,
		servers:       servers,
		conv:          conv,
		notify:        notify,
		cancel:        NewCancelController(),
		state:         StateIdle,
		modelName:     cfg.Model,
		autoConfirm:   cfg.AutoConfirm,
		systemPrompt:  cfg.SystemPrompt,
		maxIterations: maxIter,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Busy reports whether a turn is in flight.
func (o *Orchestrator) Busy() bool {
	return o.State() != StateIdle
}

// SetAutoConfirm toggles confirmation-free tool execution.
func (o *Orchestrator) SetAutoConfirm(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.autoConfirm = on
}

// AutoConfirm reports the confirmation-skip setting.
func (o *Orchestrator) AutoConfirm() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.autoConfirm
}

// SetModel switches the model used for subsequent turns.
func (o *Orchestrator) SetModel(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.modelName = name
}

// Model returns the active model name.
func (o *Orchestrator) Model() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.modelName
}

// Conversation exposes the backing store.
func (o *Orchestrator) Conversation() *model.Conversation {
	return o.conv
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

// Run starts a turn for one line of user input. The input is normalized
// (base64 image payloads become image blocks), appended to the
// conversation, and processed on a background goroutine. Returns ErrBusy
// if a turn is already in flight.
func (o *Orchestrator) Run(input string) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	o.state = StateAwaitingModel
	o.mu.Unlock()
	o.notify(StateMsg{State: StateAwaitingModel})

	userMsg := model.NewMessage(model.RoleUser, content.Normalize(input))
	o.conv.Append(userMsg)

	ctx := o.cancel.Begin(context.Background())
	go o.runTurn(ctx)
	return nil
}

// Cancel aborts the in-flight turn. Idempotent; a no-op when idle.
func (o *Orchestrator) Cancel() {
	o.cancel.Cancel()
}

// Resolve answers a pending confirmation request. Ignored when nothing is
// pending, so a stray keypress cannot misfire.
func (o *Orchestrator) Resolve(approved bool) {
	o.mu.Lock()
	ch := o.pendingReply
	o.pendingReply = nil
	o.mu.Unlock()
	if ch != nil {
		ch <- approved
	}
}

// ResolveAlways approves the pending confirmation and marks the named
// local tool as allowed for the rest of the session, so later calls run
// without prompting. Remote tools prompt every time; for them this is a
// plain approval.
func (o *Orchestrator) ResolveAlways(name string) {
	if o.registry.Get(name) != nil {
		o.registry.SetAlwaysAllow(name, true)
	}
	o.Resolve(true)
}

// runTurn drives the model/tool loop until a terminal event. Every exit
// path goes through exactly one finish helper.
func (o *Orchestrator) runTurn(ctx context.Context) {
	catalog := BuildCatalog(ctx, o.registry, o.servers)
	wireTools := catalog.WireTools()
	wire := o.buildWireHistory()

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		o.setState(StateAwaitingModel)

		turn, err := o.client.Send(ctx, o.Model(), wire, wireTools, func(token string) {
			o.notify(TokenMsg{Token: token})
		})
		if err != nil {
			if ollama.IsCancelled(err) || ctx.Err() != nil {
				o.finishCancelled()
				return
			}
			o.finishError(err)
			return
		}
		if ctx.Err() != nil {
			// Late result after cancellation: discard.
			o.finishCancelled()
			return
		}

		if turn.IsFinal() {
			msg := model.NewAssistantMessage(turn.Content)
			o.conv.Append(msg)
			o.finishComplete(TurnCompleteMsg{
				Message:          msg,
				PromptTokens:     turn.PromptTokens,
				CompletionTokens: turn.CompletionTokens,
				Duration:         turn.TotalDuration,
				TokensPerSec:     turn.TokensPerSecond(),
			})
			return
		}

		// The assistant's tool-call message is a wire artifact needed to
		// resubmit the exchange; it is not recorded in the conversation.
		wire = append(wire, ollama.NewAssistantMessageWithTools(turn.Content, turn.ToolCalls))

		calls := assignCallIDs(turn.ToolCalls)
		for _, call := range calls {
			resultMsg, ok := o.executeCall(ctx, catalog, call)
			if !ok {
				o.finishCancelled()
				return
			}
			o.conv.Append(resultMsg)
			wire = append(wire, toolResultWireMessage(resultMsg))
			o.notify(ToolResultMsg{Message: resultMsg})
		}
	}

	o.finishError(ErrTooManyIterations)
}

// executeCall runs one tool call through confirmation and execution.
// Returns ok=false when the turn was cancelled; the caller emits the
// terminal event. A declined call is a recorded error result, not a
// cancellation: the rest of the batch still runs.
func (o *Orchestrator) executeCall(ctx context.Context, catalog *Catalog, call model.ToolCallRequest) (model.Message, bool) {
	if ctx.Err() != nil {
		return model.Message{}, false
	}

	desc, known := catalog.Lookup(call.Name)
	if !known {
		return errorResultMessage(call.ID, "unknown tool: "+call.Name), true
	}

	if o.needsConfirmation(desc) {
		approved, ok := o.awaitConfirmation(ctx, desc, call)
		if !ok {
			return model.Message{}, false
		}
		if !approved {
			return errorResultMessage(call.ID, "execution declined by user"), true
		}
	}

	o.setState(StateExecutingTool)
	o.notify(ToolStartedMsg{Call: call})

	blocks, isError, err := o.invoke(ctx, desc, call.Arguments)
	if err != nil || ctx.Err() != nil {
		// Only cancellation surfaces as an error here; anything else was
		// already folded into an error result. The late result is dropped.
		return model.Message{}, false
	}
	return model.NewToolResultMessage(call.ID, blocks, isError), true
}

// awaitConfirmation parks the turn until the user answers or cancels.
func (o *Orchestrator) awaitConfirmation(ctx context.Context, desc Descriptor, call model.ToolCallRequest) (approved, ok bool) {
	reply := make(chan bool, 1)
	o.mu.Lock()
	o.pendingReply = reply
	o.state = StateAwaitingConfirmation
	o.mu.Unlock()
	o.notify(StateMsg{State: StateAwaitingConfirmation})

	origin := "local"
	if desc.Origin == OriginRemote {
		origin = desc.ServerID
	}
	o.notify(ConfirmRequestMsg{Call: call, Origin: origin})

	select {
	case <-ctx.Done():
		o.mu.Lock()
		o.pendingReply = nil
		o.mu.Unlock()
		return false, false
	case answer := <-reply:
		return answer, true
	}
}

// needsConfirmation applies the gating policy: auto-confirm skips all
// prompts, remote tools always prompt, local tools follow their registered
// permission level.
func (o *Orchestrator) needsConfirmation(desc Descriptor) bool {
	if o.AutoConfirm() {
		return false
	}
	if desc.Origin == OriginRemote {
		return true
	}
	return o.registry.NeedsConfirmation(desc.Name)
}

// invoke dispatches to the local registry or the remote server. Execution
// failures come back as error result blocks; a non-nil error means only
// that the call was cancelled.
func (o *Orchestrator) invoke(ctx context.Context, desc Descriptor, args map[string]interface{}) ([]model.Block, bool, error) {
	switch desc.Origin {
	case OriginRemote:
		res, err := o.servers.Invoke(ctx, desc.ServerID, desc.RemoteName, args)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, err
			}
			return []model.Block{model.TextBlock(err.Error())}, true, nil
		}
		blocks := make([]model.Block, 0, len(res.Content))
		for _, c := range res.Content {
			blocks = append(blocks, content.Normalize(c.Text))
		}
		if len(blocks) == 0 {
			blocks = append(blocks, model.TextBlock(""))
		}
		return blocks, res.IsError, nil

	default:
		res, err := o.registry.Invoke(ctx, desc.Name, args)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, err
			}
			// Unknown tool or argument mismatch: reported to the model,
			// nothing was executed.
			return []model.Block{model.TextBlock(err.Error())}, true, nil
		}
		return []model.Block{model.TextBlock(res.Output)}, res.IsError, nil
	}
}

// =============================================================================
// TERMINAL TRANSITIONS
// =============================================================================

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	changed := o.state != s
	o.state = s
	o.mu.Unlock()
	if changed {
		o.notify(StateMsg{State: s})
	}
}

func (o *Orchestrator) finish(event interface{}) {
	o.cancel.Clear()
	o.mu.Lock()
	o.state = StateIdle
	o.pendingReply = nil
	o.mu.Unlock()
	o.notify(event)
	o.notify(StateMsg{State: StateIdle})
}

func (o *Orchestrator) finishComplete(event TurnCompleteMsg) { o.finish(event) }
func (o *Orchestrator) finishCancelled()                     { o.finish(TurnCancelledMsg{}) }

func (o *Orchestrator) finishError(err error) {
	log.Printf("turn failed: %v", err)
	o.finish(TurnErrorMsg{Err: err})
}

// =============================================================================
// WIRE CONVERSION
// =============================================================================

// assignCallIDs gives every requested call a unique ID so its result can
// be correlated, preserving emission order.
func assignCallIDs(calls []ollama.ToolCall) []model.ToolCallRequest {
	out := make([]model.ToolCallRequest, len(calls))
	for i, tc := range calls {
		out[i] = model.ToolCallRequest{
			ID:        uuid.NewString(),
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return out
}

// buildWireHistory converts the stored conversation to the chat wire
// format, prepending the system prompt.
func (o *Orchestrator) buildWireHistory() []ollama.Message {
	snapshot := o.conv.Snapshot()
	wire := make([]ollama.Message, 0, len(snapshot)+1)
	if o.systemPrompt != "" {
		wire = append(wire, ollama.NewSystemMessage(o.systemPrompt))
	}
	for _, msg := range snapshot {
		switch msg.Role {
		case model.RoleUser:
			wm := ollama.NewUserMessage(msg.Text())
			wm.Images = encodeImages(msg)
			wire = append(wire, wm)
		case model.RoleAssistant:
			wire = append(wire, ollama.NewAssistantMessage(msg.Text()))
		case model.RoleSystem:
			wire = append(wire, ollama.NewSystemMessage(msg.Text()))
		case model.RoleTool:
			wire = append(wire, toolResultWireMessage(msg))
		}
	}
	return wire
}

// toolResultWireMessage flattens a stored tool result for the wire.
// Errors are prefixed so the model can distinguish failure text.
func toolResultWireMessage(msg model.Message) ollama.Message {
	text := msg.Text()
	if res := msg.ToolResult(); res != nil && res.IsError {
		text = "Error: " + text
	}
	wm := ollama.NewToolResultMessage(text)
	wm.Images = encodeImages(msg)
	return wm
}

// encodeImages renders a message's image blocks as base64 payloads.
func encodeImages(msg model.Message) []string {
	imgs := msg.Images()
	if len(imgs) == 0 {
		return nil
	}
	out := make([]string, 0, len(imgs))
	for _, b := range imgs {
		out = append(out, base64.StdEncoding.EncodeToString(b.Data))
	}
	return out
}

// errorResultMessage records a failure that happened before execution.
func errorResultMessage(callID, text string) model.Message {
	return model.NewToolResultMessage(callID, []model.Block{model.TextBlock(text)}, true)
}
