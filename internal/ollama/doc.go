// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// This package implements the model client for the local LLM endpoint:
// a cancellable streaming chat request carrying conversation history plus
// the merged tool catalog, yielding either a final assistant message or a
// sequence of requested tool calls.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - Message: Wire-level chat message with role, content, images, tool calls
//   - Turn: Outcome of one request (final text or tool calls)
//   - StreamReader: NDJSON streaming response reader
//   - ClientError: Typed error taxonomy (not running, timeout, cancelled, ...)
//
// # Usage
//
//	client := ollama.NewClient()
//	turn, err := client.Send(ctx, "qwen2.5-coder:14b", messages, tools, nil)
//	if ollama.IsCancelled(err) {
//	    // user aborted; end the turn with a neutral status
//	}
//
// Cancellation of the request context is observed at connection time and
// at every streamed chunk. A cancelled request returns ErrCancelled
// promptly rather than completing the full response.
package ollama
