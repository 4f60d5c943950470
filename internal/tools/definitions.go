// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
package tools

import (
	"context"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// RISK LEVELS
// =============================================================================

// RiskLevel indicates how dangerous a tool operation is.
type RiskLevel int

const (
	// RiskLow - Read-only operations, no side effects
	RiskLow RiskLevel = iota

	// RiskMedium - May modify files but can be undone
	RiskMedium

	// RiskHigh - Modifies files, harder to undo
	RiskHigh

	// RiskCritical - System commands, potentially destructive
	RiskCritical
)

// String returns the string representation of a risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	case RiskCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// =============================================================================
// PERMISSION LEVELS
// =============================================================================

// PermissionLevel determines how tool execution is authorized.
type PermissionLevel int

const (
	// PermissionAuto - Always allowed without prompting.
	// Used for safe, read-only operations like file reads and searches.
	PermissionAuto PermissionLevel = iota

	// PermissionAsk - Prompt user for confirmation before execution.
	// Used for operations that modify files or execute system commands.
	PermissionAsk
)

// String returns the string representation of a permission level.
func (p PermissionLevel) String() string {
	switch p {
	case PermissionAuto:
		return "Auto"
	case PermissionAsk:
		return "Ask"
	default:
		return "Unknown"
	}
}

// =============================================================================
// TOOL DEFINITION
// =============================================================================

// Tool represents an executable local tool.
type Tool struct {
	// Name is the tool identifier (e.g., "read_file", "run_command")
	Name string

	// Description explains what the tool does, presented to the model
	Description string

	// Schema defines the tool's parameter contract
	Schema Schema

	// RiskLevel indicates how dangerous the tool is
	RiskLevel RiskLevel

	// Permission determines whether execution needs user confirmation
	Permission PermissionLevel

	// Executor handles the actual execution
	Executor ToolExecutor
}

// ShortDescription returns the first line of the description, suitable for
// LLM tool schemas.
func (t *Tool) ShortDescription() string {
	if idx := strings.Index(t.Description, "\n"); idx != -1 {
		return t.Description[:idx]
	}
	return t.Description
}

// Schema defines a tool's parameters.
type Schema struct {
	Parameters []Parameter
}

// Parameter defines a single tool parameter.
type Parameter struct {
	// Name of the parameter
	Name string

	// Type is the parameter type ("string", "number", "boolean", "array")
	Type string

	// Required indicates if the parameter must be provided
	Required bool

	// Description explains the parameter
	Description string

	// Default is the default value if not provided
	Default interface{}

	// Enum contains allowed values for string type (optional)
	Enum []string
}

// =============================================================================
// TOOL EXECUTOR INTERFACE
// =============================================================================

// ToolExecutor is the interface for individual tool execution.
// Each tool implements this to define its execution logic.
type ToolExecutor interface {
	Execute(ctx context.Context, params map[string]interface{}) Result
}

// Result holds the outcome of a tool execution. A failed action (for
// example a command exiting non-zero) is still a well-formed result with
// IsError set, so the model can react to the failure text.
type Result struct {
	// Output is the tool's output, including diagnostic text on failure
	Output string

	// IsError marks a tool-level failure
	IsError bool

	// Duration is how long execution took
	Duration time.Duration
}

// errorResult is a convenience constructor for failed executions.
func errorResult(msg string) Result {
	return Result{Output: msg, IsError: true}
}

// =============================================================================
// TOOL REGISTRY
// =============================================================================

// Registry holds all available local tools.
type Registry struct {
	tools map[string]*Tool

	// "Always allow" preferences set at runtime
	alwaysAllow map[string]bool
}

// NewRegistry creates a new tool registry with built-in tools.
func NewRegistry() *Registry {
	r := &Registry{
		tools:       make(map[string]*Tool),
		alwaysAllow: make(map[string]bool),
	}
	r.RegisterBuiltins()
	return r
}

// RegisterBuiltins registers all built-in tools.
func (r *Registry) RegisterBuiltins() {
	r.Register(ReadFileTool)
	r.Register(WriteFileTool)
	r.Register(ListDirectoryTool)
	r.Register(RunCommandTool)
	r.Register(SearchCodeTool)
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool *Tool) {
	r.tools[tool.Name] = tool
}

// Get retrieves a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []*Tool {
	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// =============================================================================
// PERMISSION MANAGEMENT
// =============================================================================

// GetPermission returns the effective permission level for a tool.
func (r *Registry) GetPermission(toolName string) PermissionLevel {
	if r.alwaysAllow[toolName] {
		return PermissionAuto
	}
	if tool := r.Get(toolName); tool != nil {
		return tool.Permission
	}
	return PermissionAsk
}

// SetAlwaysAllow marks a tool as always allowed for this session.
func (r *Registry) SetAlwaysAllow(toolName string, always bool) {
	r.alwaysAllow[toolName] = always
}

// NeedsConfirmation returns true if the tool needs user confirmation.
func (r *Registry) NeedsConfirmation(toolName string) bool {
	return r.GetPermission(toolName) == PermissionAsk
}

// =============================================================================
// BUILT-IN TOOL DEFINITIONS
// =============================================================================

// ReadFileTool reads file contents.
var ReadFileTool = &Tool{
	Name: "read_file",
	Description: `Read the contents of a file from the local filesystem.
Returns the file contents with line numbers. For large files, use offset and
limit to read a specific section. Sensitive files (credentials, SSH keys,
.env files) are blocked.`,
	Schema: Schema{
		Parameters: []Parameter{
			{
				Name:        "path",
				Type:        "string",
				Required:    true,
				Description: "Path to the file to read",
			},
			{
				Name:        "offset",
				Type:        "number",
				Required:    false,
				Description: "Line number to start reading from (1-indexed). Default: 1",
				Default:     1,
			},
			{
				Name:        "limit",
				Type:        "number",
				Required:    false,
				Description: "Maximum number of lines to read. Default: 2000",
				Default:     2000,
			},
		},
	},
	RiskLevel:  RiskLow,
	Permission: PermissionAuto,
	Executor:   &ReadFileExecutor{},
}

// WriteFileTool writes content to a file.
var WriteFileTool = &Tool{
	Name: "write_file",
	Description: `Write content to a file, replacing any existing content.
Parent directories are created automatically. Sensitive paths are blocked.`,
	Schema: Schema{
		Parameters: []Parameter{
			{
				Name:        "path",
				Type:        "string",
				Required:    true,
				Description: "Path to the file to write",
			},
			{
				Name:        "content",
				Type:        "string",
				Required:    true,
				Description: "The complete content to write to the file",
			},
		},
	},
	RiskLevel:  RiskHigh,
	Permission: PermissionAsk,
	Executor:   &WriteFileExecutor{},
}

// ListDirectoryTool lists directory entries.
var ListDirectoryTool = &Tool{
	Name: "list_directory",
	Description: `List the entries of a directory. Directories are suffixed
with a slash; file sizes are included.`,
	Schema: Schema{
		Parameters: []Parameter{
			{
				Name:        "path",
				Type:        "string",
				Required:    true,
				Description: "Path to the directory to list",
			},
		},
	},
	RiskLevel:  RiskLow,
	Permission: PermissionAuto,
	Executor:   &ListDirectoryExecutor{},
}

// RunCommandTool executes shell commands.
var RunCommandTool = &Tool{
	Name: "run_command",
	Description: `Execute a shell command and capture its output. A non-zero
exit status is reported in the result text together with the captured
output, so failures can be reacted to. Commands time out after 30 seconds
by default.`,
	Schema: Schema{
		Parameters: []Parameter{
			{
				Name:        "command",
				Type:        "string",
				Required:    true,
				Description: "The shell command to execute",
			},
			{
				Name:        "timeout",
				Type:        "number",
				Required:    false,
				Description: "Timeout in seconds (default: 30, max: 600)",
				Default:     30,
			},
		},
	},
	RiskLevel:  RiskCritical,
	Permission: PermissionAsk,
	Executor:   &RunCommandExecutor{},
}

// SearchCodeTool searches file contents with a regular expression.
var SearchCodeTool = &Tool{
	Name: "search_code",
	Description: `Search for a regular expression pattern inside files under a
directory. Returns matching lines as file:line:content. Binary files and
common build directories are skipped.`,
	Schema: Schema{
		Parameters: []Parameter{
			{
				Name:        "pattern",
				Type:        "string",
				Required:    true,
				Description: "Regular expression to search for",
			},
			{
				Name:        "path",
				Type:        "string",
				Required:    false,
				Description: "Directory to search in. Defaults to the current directory",
			},
			{
				Name:        "glob",
				Type:        "string",
				Required:    false,
				Description: "Filename glob to filter which files are searched, e.g. '*.go'",
			},
		},
	},
	RiskLevel:  RiskLow,
	Permission: PermissionAuto,
	Executor:   &SearchCodeExecutor{},
}
