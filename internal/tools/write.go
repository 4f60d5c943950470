// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
package tools

import (
	"context"
	"strconv"

	"github.com/morganforge/loom/internal/util"
)

// maxWriteSize caps a single write at 10MB.
const maxWriteSize = 10 * 1024 * 1024

// =============================================================================
// WRITE FILE EXECUTOR
// =============================================================================

// WriteFileExecutor writes file contents atomically so a crash never leaves
// a half-written file behind.
type WriteFileExecutor struct{}

// Execute writes the content to the target path.
func (e *WriteFileExecutor) Execute(ctx context.Context, params map[string]interface{}) Result {
	path := getString(params, "path", "")
	content := getString(params, "content", "")

	if isSensitivePath(path) {
		return errorResult("refusing to write sensitive file: " + path)
	}
	if len(content) > maxWriteSize {
		return errorResult("content exceeds maximum write size of 10MB")
	}
	if ctx.Err() != nil {
		return errorResult("write interrupted: " + ctx.Err().Error())
	}

	if err := util.AtomicWriteFile(path, []byte(content), 0644); err != nil {
		return errorResult("cannot write " + path + ": " + err.Error())
	}

	return Result{Output: "wrote " + strconv.Itoa(len(content)) + " bytes to " + path}
}
