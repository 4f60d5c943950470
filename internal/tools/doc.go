// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
//
// # Built-in Tools
//
//   - read_file: read file contents with line numbers and offset/limit
//   - write_file: atomically write file contents
//   - list_directory: list directory entries
//   - run_command: execute a shell command with timeout and output capture
//   - search_code: regex search across a directory tree
//
// # Invocation
//
// Registry.Invoke validates arguments against the tool's schema before
// execution; a mismatch fails with a ValidationError without touching the
// underlying action. Execution-level failures (including a command exiting
// non-zero) come back as a Result with IsError set so the model can react
// to the failure text.
package tools
