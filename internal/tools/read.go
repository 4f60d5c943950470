// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
package tools

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
)

// maxReadLineLength guards against pathological single-line files.
const maxReadLineLength = 1024 * 1024

// =============================================================================
// READ FILE EXECUTOR
// =============================================================================

// ReadFileExecutor implements file reading with line numbers and an
// offset/limit window for large files.
type ReadFileExecutor struct{}

// Execute reads the requested file section.
func (e *ReadFileExecutor) Execute(ctx context.Context, params map[string]interface{}) Result {
	path := getString(params, "path", "")
	offset := getInt(params, "offset", 1)
	limit := getInt(params, "limit", 2000)

	if isSensitivePath(path) {
		return errorResult("refusing to read sensitive file: " + path)
	}
	if offset < 1 {
		offset = 1
	}
	if limit < 1 {
		limit = 2000
	}

	info, err := os.Stat(path)
	if err != nil {
		return errorResult("cannot read " + path + ": " + err.Error())
	}
	if info.IsDir() {
		return errorResult(path + " is a directory; use list_directory instead")
	}

	f, err := os.Open(path)
	if err != nil {
		return errorResult("cannot open " + path + ": " + err.Error())
	}
	defer f.Close()

	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxReadLineLength)

	lineNum := 0
	written := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return errorResult("read interrupted: " + ctx.Err().Error())
		}
		lineNum++
		if lineNum < offset {
			continue
		}
		if written >= limit {
			sb.WriteString("... (truncated at " + strconv.Itoa(limit) + " lines)\n")
			break
		}
		sb.WriteString(strconv.Itoa(lineNum))
		sb.WriteString("\t")
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
		written++
	}
	if err := scanner.Err(); err != nil {
		return errorResult("error reading " + path + ": " + err.Error())
	}
	if written == 0 && lineNum < offset {
		return errorResult("offset " + strconv.Itoa(offset) + " is past the end of " + path)
	}

	return Result{Output: sb.String()}
}
