// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations in sqlite for the session
// commands. Saving replaces the stored snapshot wholesale; loading
// reconstructs the conversation with messages in original order.
package storage
