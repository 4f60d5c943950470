// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands implements the slash command system. Input starting
// with / is parsed against the registry; each handler emits a message the
// chat model acts on, keeping application state out of this package.
package commands
