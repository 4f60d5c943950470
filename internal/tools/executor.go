// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
package tools

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrUnknownTool is returned when invoking a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ValidationError reports a schema mismatch for one argument. Arguments are
// validated before execution, so a validation failure never touches the
// underlying action.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid argument " + e.Param + ": " + e.Message
}

// IsInvalidArguments checks if an error is an argument validation failure.
func IsInvalidArguments(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// =============================================================================
// INVOCATION
// =============================================================================

// Invoke validates arguments against the tool's schema and executes it.
// An unknown tool or a schema mismatch returns an error without executing
// anything; execution-level failures come back as a Result with IsError set.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (Result, error) {
	tool := r.Get(name)
	if tool == nil {
		return Result{}, ErrUnknownTool
	}

	if err := ValidateToolArgs(&tool.Schema, args); err != nil {
		return Result{}, err
	}

	start := time.Now()
	result := tool.Executor.Execute(ctx, args)
	result.Duration = time.Since(start)
	return result, nil
}

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

// ValidateToolArgs validates tool arguments against a schema before
// execution. It performs required-parameter checking, type validation, and
// bounds checking for numeric values.
func ValidateToolArgs(schema *Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	for _, param := range schema.Parameters {
		val, exists := args[param.Name]

		if param.Required && (!exists || val == nil) {
			return &ValidationError{
				Param:   param.Name,
				Message: "missing required argument",
			}
		}

		// Skip validation for optional parameters that aren't provided
		if !exists || val == nil {
			continue
		}

		if err := validateArgType(param, val); err != nil {
			return err
		}

		if param.Type == "number" {
			if err := validateNumericBounds(param, val); err != nil {
				return err
			}
		}

		if len(param.Enum) > 0 {
			if err := validateEnum(param, val); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateArgType validates the type of an argument. JSON-decoded numbers
// arrive as float64, but integer Go values are accepted too.
func validateArgType(param Parameter, val interface{}) error {
	switch param.Type {
	case "string":
		if _, ok := val.(string); !ok {
			return &ValidationError{Param: param.Name, Message: "expected string type"}
		}
	case "number":
		switch val.(type) {
		case int, int32, int64, float32, float64:
			// OK
		default:
			return &ValidationError{Param: param.Name, Message: "expected number type"}
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return &ValidationError{Param: param.Name, Message: "expected boolean type"}
		}
	case "array":
		if _, ok := val.([]interface{}); !ok {
			return &ValidationError{Param: param.Name, Message: "expected array type"}
		}
	case "object":
		if _, ok := val.(map[string]interface{}); !ok {
			return &ValidationError{Param: param.Name, Message: "expected object type"}
		}
	}
	return nil
}

// validateNumericBounds checks if a numeric value is within sane bounds.
func validateNumericBounds(param Parameter, val interface{}) error {
	var numVal float64

	switch v := val.(type) {
	case int:
		numVal = float64(v)
	case int32:
		numVal = float64(v)
	case int64:
		numVal = float64(v)
	case float32:
		numVal = float64(v)
	case float64:
		numVal = v
	default:
		return nil // Already validated type
	}

	const maxReasonableValue = 1e15
	if numVal > maxReasonableValue || numVal < -maxReasonableValue {
		return &ValidationError{
			Param:   param.Name,
			Message: "numeric value out of reasonable bounds",
		}
	}

	return nil
}

// validateEnum checks a string value against the allowed set.
func validateEnum(param Parameter, val interface{}) error {
	str, ok := val.(string)
	if !ok {
		return nil
	}
	for _, allowed := range param.Enum {
		if str == allowed {
			return nil
		}
	}
	return &ValidationError{Param: param.Name, Message: "value not in allowed set"}
}

// =============================================================================
// PARAMETER HELPERS
// =============================================================================

// getString extracts a string parameter with a default value.
func getString(params map[string]interface{}, name, defaultVal string) string {
	if val, ok := params[name]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// getInt extracts an integer parameter with a default value. JSON numbers
// decode as float64.
func getInt(params map[string]interface{}, name string, defaultVal int) int {
	if val, ok := params[name]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultVal
}
