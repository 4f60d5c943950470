// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message on the wire.
type Message struct {
	Role      string     `json:"role"`                 // "user", "assistant", "system", "tool"
	Content   string     `json:"content"`              // The message content
	Images    []string   `json:"images,omitempty"`     // Base64-encoded image payloads
	ToolCalls []ToolCall `json:"tool_calls,omitempty"` // Tool calls requested by assistant
}

// ToolCall represents a tool invocation from the model.
type ToolCall struct {
	Function ToolFunction `json:"function"`
}

// ToolFunction contains the function name and arguments.
type ToolFunction struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ChatRequest is the request body for /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Tools    []Tool    `json:"tools,omitempty"`
}

// Tool represents a tool definition for function calling.
type Tool struct {
	Type     string     `json:"type"` // Always "function"
	Function ToolSchema `json:"function"`
}

// ToolSchema defines a tool's interface.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters defines the parameters schema for a tool.
type ToolParameters struct {
	Type       string                  `json:"type"` // "object"
	Properties map[string]ToolProperty `json:"properties"`
	Required   []string                `json:"required,omitempty"`
}

// ToolProperty defines a single parameter property using JSON Schema.
type ToolProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is the response from /api/chat endpoint.
type ChatResponse struct {
	Model              string    `json:"model"`
	CreatedAt          time.Time `json:"created_at"`
	Message            Message   `json:"message"`
	Done               bool      `json:"done"`
	DoneReason         string    `json:"done_reason,omitempty"`
	TotalDuration      int64     `json:"total_duration,omitempty"`       // nanoseconds
	PromptEvalCount    int       `json:"prompt_eval_count,omitempty"`    // tokens in prompt
	PromptEvalDuration int64     `json:"prompt_eval_duration,omitempty"` // nanoseconds
	EvalCount          int       `json:"eval_count,omitempty"`           // tokens generated
	EvalDuration       int64     `json:"eval_duration,omitempty"`        // nanoseconds
}

// ModelInfo contains information about a locally available model.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
}

// ListModelsResponse is the response from /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk represents a single chunk from a streaming response.
type StreamChunk struct {
	// Content from this chunk
	Content string

	// Tool calls requested by the model
	ToolCalls []ToolCall

	// Final-chunk fields
	Done             bool
	DoneReason       string
	TotalDuration    time.Duration
	EvalDuration     time.Duration
	PromptTokens     int
	CompletionTokens int

	// Model information
	Model string

	// Error if any occurred during streaming
	Error error
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is the outcome of one model request: either a final assistant message
// (ToolCalls empty) or an ordered sequence of requested tool calls.
type Turn struct {
	// Content is the assistant text accumulated over the stream.
	Content string

	// ToolCalls holds requested tool invocations in emission order.
	ToolCalls []ToolCall

	// Stats from the final chunk.
	PromptTokens     int
	CompletionTokens int
	TotalDuration    time.Duration
	EvalDuration     time.Duration
}

// IsFinal reports whether the turn carries no tool-call requests.
func (t *Turn) IsFinal() bool {
	return len(t.ToolCalls) == 0
}

// TokensPerSecond calculates the generation speed for the turn.
func (t *Turn) TokensPerSecond() float64 {
	if t.EvalDuration == 0 {
		return 0
	}
	return float64(t.CompletionTokens) / t.EvalDuration.Seconds()
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// OllamaError represents an error payload from the Ollama API.
type OllamaError struct {
	Error string `json:"error"`
}

// =============================================================================
// HELPER METHODS
// =============================================================================

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// NewToolResultMessage creates a tool result message.
func NewToolResultMessage(content string) Message {
	return Message{Role: "tool", Content: content}
}

// NewAssistantMessageWithTools creates an assistant message with tool calls.
func NewAssistantMessageWithTools(content string, toolCalls []ToolCall) Message {
	return Message{
		Role:      "assistant",
		Content:   content,
		ToolCalls: toolCalls,
	}
}

// HasToolCalls returns true if the message contains tool calls.
func (m *Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
