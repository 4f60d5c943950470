// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
// ollama.go converts tool definitions to the model's function-calling schema.
package tools

import (
	"github.com/morganforge/loom/internal/ollama"
)

// ToOllamaTool converts one tool definition into the JSON-schema form the
// chat endpoint expects.
func ToOllamaTool(t *Tool) ollama.Tool {
	properties := make(map[string]ollama.ToolProperty, len(t.Schema.Parameters))
	var required []string

	for _, param := range t.Schema.Parameters {
		properties[param.Name] = ollama.ToolProperty{
			Type:        param.Type,
			Description: param.Description,
			Enum:        param.Enum,
			Default:     param.Default,
		}
		if param.Required {
			required = append(required, param.Name)
		}
	}

	return ollama.Tool{
		Type: "function",
		Function: ollama.ToolSchema{
			Name:        t.Name,
			Description: t.ShortDescription(),
			Parameters: ollama.ToolParameters{
				Type:       "object",
				Properties: properties,
				Required:   required,
			},
		},
	}
}

// ToOllamaTools converts the registry's tools for presentation to the model.
func (r *Registry) ToOllamaTools() []ollama.Tool {
	tools := r.List()
	out := make([]ollama.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ToOllamaTool(t))
	}
	return out
}
