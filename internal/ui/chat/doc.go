// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the loom TUI.
//
// The view is a thin event renderer: turn execution lives in the agent
// package, which delivers events through program.Send. Keyboard handling
// covers three modes - normal input, a pending tool confirmation (y/n/esc),
// and a busy turn (esc cancels, new input is refused rather than queued).
package chat
