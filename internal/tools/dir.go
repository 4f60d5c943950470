// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
package tools

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// LIST DIRECTORY EXECUTOR
// =============================================================================

// ListDirectoryExecutor lists directory entries, directories first.
type ListDirectoryExecutor struct{}

// Execute lists the entries of the requested directory.
func (e *ListDirectoryExecutor) Execute(ctx context.Context, params map[string]interface{}) Result {
	path := getString(params, "path", ".")

	entries, err := os.ReadDir(path)
	if err != nil {
		return errorResult("cannot list " + path + ": " + err.Error())
	}
	if ctx.Err() != nil {
		return errorResult("listing interrupted: " + ctx.Err().Error())
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			sb.WriteString(entry.Name())
			sb.WriteString("/\n")
			continue
		}
		sb.WriteString(entry.Name())
		if info, err := entry.Info(); err == nil {
			sb.WriteString("  (")
			sb.WriteString(strconv.FormatInt(info.Size(), 10))
			sb.WriteString(" bytes)")
		}
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return Result{Output: path + " is empty"}
	}
	return Result{Output: sb.String()}
}
