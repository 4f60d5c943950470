// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}

// =============================================================================
// CONTENT BLOCKS
// =============================================================================

// BlockType discriminates the variants of a Block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockToolCall   BlockType = "tool_call"
	BlockToolResult BlockType = "tool_result"
)

// ToolCallRequest is a model-emitted request to invoke a named tool.
type ToolCallRequest struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// ToolResult carries the outcome of a tool invocation back to the model.
// CallID references the ToolCallRequest that produced it.
type ToolResult struct {
	CallID  string  `json:"call_id"`
	Content []Block `json:"content"`
	IsError bool    `json:"is_error,omitempty"`
}

// Block is one piece of message content. Exactly the fields matching Type
// are populated; the rest stay zero.
type Block struct {
	Type BlockType `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockImage. Data holds the raw decoded bytes, not base64.
	MIME string `json:"mime,omitempty"`
	Data []byte `json:"data,omitempty"`

	// BlockToolCall
	Call *ToolCallRequest `json:"call,omitempty"`

	// BlockToolResult
	Result *ToolResult `json:"result,omitempty"`
}

// TextBlock creates a text content block.
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// ImageBlock creates an image content block from decoded bytes.
func ImageBlock(mime string, data []byte) Block {
	return Block{Type: BlockImage, MIME: mime, Data: data}
}

// ToolCallBlock creates a tool-call request block.
func ToolCallBlock(call ToolCallRequest) Block {
	c := call
	return Block{Type: BlockToolCall, Call: &c}
}

// ToolResultBlock creates a tool-result block referencing a prior call.
func ToolResultBlock(callID string, content []Block, isError bool) Block {
	return Block{Type: BlockToolResult, Result: &ToolResult{
		CallID:  callID,
		Content: content,
		IsError: isError,
	}}
}

// PlainText flattens the block to text for wire transport and display.
// Images are represented by a short placeholder since the chat endpoint
// carries them out of band.
func (b Block) PlainText() string {
	switch b.Type {
	case BlockText:
		return b.Text
	case BlockImage:
		return "[image " + b.MIME + ", " + formatInt(len(b.Data)) + " bytes]"
	case BlockToolCall:
		if b.Call != nil {
			return "[tool call " + b.Call.Name + "]"
		}
		return "[tool call]"
	case BlockToolResult:
		if b.Result == nil {
			return ""
		}
		parts := make([]string, 0, len(b.Result.Content))
		for _, inner := range b.Result.Content {
			parts = append(parts, inner.PlainText())
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation. Once appended to a
// Conversation a message is never mutated.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Blocks    []Block   `json:"blocks"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, blocks ...Block) Message {
	return Message{
		ID:        generateID(),
		Role:      role,
		Timestamp: time.Now(),
		Blocks:    blocks,
	}
}

// NewUserMessage creates a new user message with a single text block.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, TextBlock(text))
}

// NewAssistantMessage creates a new assistant message with a single text block.
func NewAssistantMessage(text string) Message {
	return NewMessage(RoleAssistant, TextBlock(text))
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(text string) Message {
	return NewMessage(RoleSystem, TextBlock(text))
}

// NewToolResultMessage creates a tool message carrying one result block.
func NewToolResultMessage(callID string, content []Block, isError bool) Message {
	return NewMessage(RoleTool, ToolResultBlock(callID, content, isError))
}

// Text joins the plain-text rendering of all blocks.
func (m Message) Text() string {
	if len(m.Blocks) == 1 {
		return m.Blocks[0].PlainText()
	}
	parts := make([]string, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		if t := b.PlainText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolResult returns the first tool-result block, or nil.
func (m Message) ToolResult() *ToolResult {
	for _, b := range m.Blocks {
		if b.Type == BlockToolResult && b.Result != nil {
			return b.Result
		}
	}
	return nil
}

// Images returns all image blocks in the message, in order.
func (m Message) Images() []Block {
	var imgs []Block
	for _, b := range m.Blocks {
		if b.Type == BlockImage {
			imgs = append(imgs, b)
		}
		if b.Type == BlockToolResult && b.Result != nil {
			for _, inner := range b.Result.Content {
				if inner.Type == BlockImage {
					imgs = append(imgs, inner)
				}
			}
		}
	}
	return imgs
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return len(m.Blocks) == 0
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	content := m.Text()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// EstimateTokens gives a rough estimate of token count.
// Uses the approximation of ~4 characters per token.
func (m Message) EstimateTokens() int {
	return (len(m.Text()) + 3) / 4
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}

// formatInt formats an integer without using fmt.
func formatInt(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	if negative {
		return "-" + string(digits)
	}
	return string(digits)
}
