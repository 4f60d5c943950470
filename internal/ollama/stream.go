// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
// Chunks are forwarded as they arrive; accumulation is the caller's job.
type StreamReader struct {
	reader *bufio.Reader
	// model remembers the name from earlier chunks so late chunks that omit
	// it still carry one.
	model string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled. The
// context is checked before every chunk so cancellation never waits on a
// full response.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single NDJSON line from the stream.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Try to process the last line even on EOF
		if len(line) == 0 {
			return nil, err
		}
	}

	// Skip empty lines
	if len(line) == 0 {
		return nil, nil
	}

	var response struct {
		Model     string    `json:"model"`
		CreatedAt time.Time `json:"created_at"`
		Message   struct {
			Role      string     `json:"role"`
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		Done               bool   `json:"done"`
		DoneReason         string `json:"done_reason,omitempty"`
		TotalDuration      int64  `json:"total_duration,omitempty"`
		PromptEvalCount    int    `json:"prompt_eval_count,omitempty"`
		PromptEvalDuration int64  `json:"prompt_eval_duration,omitempty"`
		EvalCount          int    `json:"eval_count,omitempty"`
		EvalDuration       int64  `json:"eval_duration,omitempty"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		// Skip malformed lines
		return nil, nil
	}

	if response.Model != "" {
		s.model = response.Model
	}

	chunk := &StreamChunk{
		Content:    response.Message.Content,
		ToolCalls:  response.Message.ToolCalls,
		Done:       response.Done,
		Model:      s.model,
		DoneReason: response.DoneReason,
	}

	if response.Done {
		chunk.TotalDuration = time.Duration(response.TotalDuration)
		chunk.EvalDuration = time.Duration(response.EvalDuration)
		chunk.PromptTokens = response.PromptEvalCount
		chunk.CompletionTokens = response.EvalCount
	}

	return chunk, nil
}
