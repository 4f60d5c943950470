// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// MaxMessages is the maximum number of messages to keep in conversation history.
// When exceeded, old messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered, append-only turn history sent to the model on
// every request. Messages are never reordered or mutated after Append; the
// orchestrator is the single writer, but reads may come from other
// goroutines, so access is mutex-protected.
type Conversation struct {
	mu sync.RWMutex

	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages
	Messages []Message `json:"messages"`

	// Model used for this conversation
	Model string `json:"model"`
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        generateConversationID(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  make([]Message, 0),
	}
}

// NewConversationWithModel creates a new conversation with a specific model.
func NewConversationWithModel(model string) *Conversation {
	conv := NewConversation()
	conv.Model = model
	return conv
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of the history. Prior entries are never
// reordered or mutated.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitleLocked()
	c.pruneLocked()
}

// Snapshot returns a copy of the message history safe to read while the
// conversation keeps growing.
func (c *Conversation) Snapshot() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}

// Clear empties the history. Any pending confirmation tied to the old
// history is invalidated by the caller.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Messages = make([]Message, 0)
	c.Title = ""
	c.UpdatedAt = time.Now()
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Messages)
}

// LastMessage returns the most recent message and true, or false if empty.
func (c *Conversation) LastMessage() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// SetModel records the model used for this conversation.
func (c *Conversation) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Model = model
}

// GetModel returns the model used for this conversation.
func (c *Conversation) GetModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Model
}

// GetTitle returns the conversation title.
func (c *Conversation) GetTitle() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Title
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

// updateTitleLocked derives the title from the first user message.
func (c *Conversation) updateTitleLocked() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(50)
			return
		}
	}
}

// pruneLocked drops the oldest messages once MaxMessages is exceeded.
func (c *Conversation) pruneLocked() {
	if len(c.Messages) <= MaxMessages {
		return
	}
	excess := len(c.Messages) - MaxMessages
	c.Messages = append([]Message(nil), c.Messages[excess:]...)
}

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "conv_" + hex.EncodeToString(bytes)
}
