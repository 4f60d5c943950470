// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent coordinates the model, the local tool registry, and remote
// MCP servers into agentic turns.
//
// # Turn Lifecycle
//
// A turn moves through Idle, AwaitingModel, AwaitingConfirmation, and
// ExecutingTool. Tool calls run one at a time in the order the model
// emitted them; a declined call records an error result and the batch
// continues. Cancellation discards in-flight work and ends the turn with
// a single TurnCancelledMsg.
//
// # Event Delivery
//
// The orchestrator publishes events through a notify sink. The TUI passes
// program.Send so events surface as Bubble Tea messages; tests pass a
// collector.
package agent
