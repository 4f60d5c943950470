// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"unicode"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult is the outcome of parsing one line of user input.
type ParseResult struct {
	// IsCommand is true when the input starts with /.
	IsCommand bool

	// Command is the matched command, nil if unknown.
	Command *Command

	// CommandName is the raw command token (e.g., "/help").
	CommandName string

	// Args are the parsed arguments.
	Args []string

	// RawInput is the original input string.
	RawInput string
}

// =============================================================================
// PARSER
// =============================================================================

// Parser resolves slash commands against a registry.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser over the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Registry exposes the backing registry, for help rendering.
func (p *Parser) Registry() *Registry {
	return p.registry
}

// Parse classifies user input. IsCommand is false for plain chat text.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)
	result := ParseResult{RawInput: input}

	if !strings.HasPrefix(input, "/") {
		return result
	}
	result.IsCommand = true

	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return result
	}
	result.CommandName = parts[0]
	result.Args = parts[1:]
	result.Command = p.registry.Get(result.CommandName)
	return result
}

// IsCommand reports whether the input looks like a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// =============================================================================
// TOKENIZING
// =============================================================================

// splitCommandLine splits a command line into tokens, respecting single
// and double quotes so arguments may contain spaces.
func splitCommandLine(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingle, inDouble bool

	for i := 0; i < len(input); i++ {
		char := rune(input[i])

		switch {
		case char == '\'' && !inDouble:
			inSingle = !inSingle

		case char == '"' && !inSingle:
			inDouble = !inDouble

		case char == '\\' && i+1 < len(input) && (inSingle || inDouble):
			next := rune(input[i+1])
			if next == '"' || next == '\'' || next == '\\' {
				current.WriteRune(next)
				i++
			} else {
				current.WriteRune(char)
			}

		case unicode.IsSpace(char) && !inSingle && !inDouble:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
