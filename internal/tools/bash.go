// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
// bash.go implements shell command execution with output capture.
package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

const (
	// defaultCommandTimeout bounds a command that does not specify one.
	defaultCommandTimeout = 30 * time.Second

	// maxCommandTimeout caps user-requested timeouts.
	maxCommandTimeout = 10 * time.Minute

	// maxCommandOutput caps captured output at 100KB.
	maxCommandOutput = 100 * 1024
)

// =============================================================================
// RUN COMMAND EXECUTOR
// =============================================================================

// RunCommandExecutor executes shell commands with a timeout and captures
// combined output. A non-zero exit status is a well-formed tool result with
// IsError set and the captured output attached, not an execution error:
// the model reacts to the failure text and the turn continues.
type RunCommandExecutor struct{}

// Execute runs the command under the platform shell.
func (e *RunCommandExecutor) Execute(ctx context.Context, params map[string]interface{}) Result {
	command := getString(params, "command", "")
	timeout := time.Duration(getInt(params, "timeout", 30)) * time.Second
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	if timeout > maxCommandTimeout {
		timeout = maxCommandTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(runCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(runCtx, "sh", "-c", command)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := buf.String()
	if len(output) > maxCommandOutput {
		output = output[:maxCommandOutput] + "\n... (output truncated at 100KB)"
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		return errorResult("command timed out after " + timeout.String() + "\n" + output)
	case ctx.Err() != nil:
		return errorResult("command interrupted: " + ctx.Err().Error())
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Failed command, successful tool call: the exit status and
			// output go back to the model as an error-flagged result.
			return Result{
				Output:  "exit status " + strconv.Itoa(exitErr.ExitCode()) + "\n" + output,
				IsError: true,
			}
		}
		return errorResult("failed to run command: " + err.Error())
	}

	if output == "" {
		output = "(no output)"
	}
	return Result{Output: output}
}
