// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations, messages, and their content.
//
// # Key Types
//
//   - Conversation: Append-only turn history, the single source of truth
//     sent to the model on every request
//   - Message: Single message with role, ordered content blocks, timestamp
//   - Block: Tagged content variant (text, image, tool call, tool result)
//   - Role: Message role enumeration (user, assistant, system, tool)
//
// # Usage
//
// Create a new conversation and append a message:
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserMessage("Hello!"))
//	history := conv.Snapshot()
package model
