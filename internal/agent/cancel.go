// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"sync"
)

// =============================================================================
// CANCELLATION CONTROLLER
// =============================================================================

// CancelController owns the cancel token for the in-flight turn. It is
// accessed from both the UI update loop and turn goroutines, so every
// operation takes the mutex. Must be held as a pointer: copying the mutex
// through value semantics would defeat the locking.
type CancelController struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// NewCancelController creates an empty controller.
func NewCancelController() *CancelController {
	return &CancelController{}
}

// Begin derives a cancellable context for a new turn, cancelling any
// previous token first so stale work cannot outlive its turn.
func (c *CancelController) Begin(parent context.Context) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancelFunc = cancel
	return ctx
}

// Cancel fires the current token. Idempotent: repeated calls and calls
// with no turn in flight are no-ops.
func (c *CancelController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelFunc != nil {
		c.cancelFunc()
		c.cancelFunc = nil
	}
}

// Clear releases the token at turn end. The context is cancelled as well
// to free its resources.
func (c *CancelController) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelFunc != nil {
		c.cancelFunc()
		c.cancelFunc = nil
	}
}
