// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"time"

	"github.com/morganforge/loom/internal/model"
)

// =============================================================================
// ORCHESTRATOR STATES
// =============================================================================

// State is the orchestrator's position in the turn lifecycle.
type State int

const (
	// StateIdle means no turn is in flight; input is accepted.
	StateIdle State = iota

	// StateAwaitingModel means a model request is streaming.
	StateAwaitingModel

	// StateAwaitingConfirmation means a tool call is held pending the
	// user's approve/decline decision.
	StateAwaitingConfirmation

	// StateExecutingTool means a tool invocation is running.
	StateExecutingTool
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting model"
	case StateAwaitingConfirmation:
		return "awaiting confirmation"
	case StateExecutingTool:
		return "executing tool"
	default:
		return "unknown"
	}
}

// =============================================================================
// EVENTS
// =============================================================================

// Events are delivered through the orchestrator's notify sink. The TUI
// wires the sink to program.Send so each event arrives as a Bubble Tea
// message; tests collect them directly.

// StateMsg reports a state transition.
type StateMsg struct {
	State State
}

// TokenMsg carries one streamed token of assistant output.
type TokenMsg struct {
	Token string
}

// ConfirmRequestMsg asks the user to approve or decline one tool call.
// Answer via Orchestrator.Resolve.
type ConfirmRequestMsg struct {
	Call model.ToolCallRequest

	// Origin description for display ("local" or the server ID).
	Origin string
}

// ToolStartedMsg marks the start of one tool execution.
type ToolStartedMsg struct {
	Call model.ToolCallRequest
}

// ToolResultMsg carries the recorded result of one tool call.
type ToolResultMsg struct {
	Message model.Message
}

// TurnCompleteMsg is the terminal event of a successful turn.
type TurnCompleteMsg struct {
	Message model.Message

	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration

	// TokensPerSec is the generation rate, 0 when the backend reported no
	// eval duration.
	TokensPerSec float64
}

// TurnErrorMsg is the terminal event of a failed turn.
type TurnErrorMsg struct {
	Err error
}

// TurnCancelledMsg is the terminal event of a cancelled turn. Results from
// work that was in flight at cancellation time are discarded, never
// recorded.
type TurnCancelledMsg struct{}
