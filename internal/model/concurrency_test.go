// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Concurrent access tests for Conversation. The orchestrator appends from
// its turn goroutine while the UI reads snapshots on the render path, so
// every accessor must be safe under contention.
package model

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// CONVERSATION CONCURRENCY TESTS
// =============================================================================

// TestConversation_ConcurrentAppendAndSnapshot tests that appends racing
// with snapshot reads do not panic and never produce a torn message.
func TestConversation_ConcurrentAppendAndSnapshot(t *testing.T) {
	conv := NewConversation()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			conv.Append(NewUserMessage(fmt.Sprintf("message %d", n)))
		}(i)
		go func() {
			defer wg.Done()
			for _, msg := range conv.Snapshot() {
				require.NotEmpty(t, msg.Role)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 50, conv.Len())
}

// TestConversation_SnapshotMutationDoesNotLeak tests that mutating a snapshot
// does not leak back into the conversation.
func TestConversation_SnapshotMutationDoesNotLeak(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("original"))

	snap := conv.Snapshot()
	snap[0] = NewUserMessage("mutated")

	fresh := conv.Snapshot()
	require.Equal(t, "original", fresh[0].Text())
}

// TestConversation_ConcurrentClearAndLen tests Clear racing with readers.
func TestConversation_ConcurrentClearAndLen(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < 10; i++ {
		conv.Append(NewUserMessage("seed"))
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			conv.Clear()
		}()
		go func() {
			defer wg.Done()
			_ = conv.Len()
		}()
		go func() {
			defer wg.Done()
			_, _ = conv.LastMessage()
		}()
	}
	wg.Wait()

	require.Zero(t, conv.Len())
}

// TestConversation_ConcurrentModelAccess tests SetModel/GetModel under
// contention; the /model command can race an in-flight turn.
func TestConversation_ConcurrentModelAccess(t *testing.T) {
	conv := NewConversationWithModel("first")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			conv.SetModel("second")
		}()
		go func() {
			defer wg.Done()
			got := conv.GetModel()
			require.Contains(t, []string{"first", "second"}, got)
		}()
	}
	wg.Wait()
}
