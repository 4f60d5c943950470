// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mcp

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// discoveryInterval bounds how often passive tool discovery re-runs.
// Explicit Refresh calls bypass the limiter.
const discoveryInterval = 30 * time.Second

// =============================================================================
// SERVER CONFIGURATION AND STATUS
// =============================================================================

// Server describes one remote MCP server, from config or a runtime command.
type Server struct {
	ID        string
	URL       string
	Enabled   bool
	AuthToken string
}

// Status reports the health of one managed server.
type Status struct {
	Server    Server
	Reachable bool
	ToolCount int
	LastError string
	CheckedAt time.Time
}

// RemoteTool pairs a tool definition with the server that hosts it.
type RemoteTool struct {
	ServerID string
	Def      ToolDefinition
}

// serverState is the manager's per-server bookkeeping. invokeMu serializes
// invocations so one server handles at most one in-flight call.
type serverState struct {
	cfg         Server
	client      *Client
	initialized bool
	reachable   bool
	tools       []ToolDefinition
	lastErr     error
	checkedAt   time.Time

	invokeMu sync.Mutex
}

// =============================================================================
// MANAGER
// =============================================================================

// ErrServerNotFound is returned when addressing an unknown server ID.
var ErrServerNotFound = errors.New("mcp server not found")

// ErrServerExists is returned when adding a duplicate server ID.
var ErrServerExists = errors.New("mcp server already exists")

// Manager owns the connections to all configured MCP servers. Discovery is
// refreshed at a bounded interval or on explicit request, never every turn.
// One unreachable server only excludes its own tools: the rest of the
// catalog keeps working.
type Manager struct {
	mu      sync.Mutex
	servers map[string]*serverState

	// limiter gates passive discovery refreshes.
	limiter *rate.Limiter
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		servers: make(map[string]*serverState),
		limiter: rate.NewLimiter(rate.Every(discoveryInterval), 1),
	}
}

// AddServer registers a server. Connection is lazy: the first discovery
// pass performs the handshake.
func (m *Manager) AddServer(cfg Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.servers[cfg.ID]; exists {
		return ErrServerExists
	}
	m.servers[cfg.ID] = &serverState{
		cfg:    cfg,
		client: NewClient(cfg.ID, cfg.URL, cfg.AuthToken),
	}
	return nil
}

// RemoveServer tears down a server and drops its tools from the catalog.
func (m *Manager) RemoveServer(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.servers[id]; !exists {
		return ErrServerNotFound
	}
	delete(m.servers, id)
	return nil
}

// SetEnabled toggles a server without removing its configuration.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, exists := m.servers[id]
	if !exists {
		return ErrServerNotFound
	}
	st.cfg.Enabled = enabled
	if !enabled {
		st.reachable = false
		st.tools = nil
	}
	return nil
}

// Count returns the number of configured servers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.servers)
}

// =============================================================================
// DISCOVERY
// =============================================================================

// Refresh re-discovers tools on every enabled server, bypassing the
// discovery interval. Failures are recorded per server, not returned:
// fail soft, one bad server must not block the others.
func (m *Manager) Refresh(ctx context.Context) {
	m.refresh(ctx)
}

// maybeRefresh runs discovery only if the bounded interval has elapsed.
func (m *Manager) maybeRefresh(ctx context.Context) {
	if !m.limiter.Allow() {
		return
	}
	m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) {
	for _, st := range m.snapshotStates() {
		if !st.cfg.Enabled {
			continue
		}
		m.refreshServer(ctx, st)
	}
}

// refreshServer performs the handshake (once) and a tools/list round trip
// for one server, updating its health record.
func (m *Manager) refreshServer(ctx context.Context, st *serverState) {
	if ctx.Err() != nil {
		return
	}

	if !st.initialized {
		if err := st.client.Initialize(ctx); err != nil {
			m.recordFailure(st, err)
			return
		}
		m.mu.Lock()
		st.initialized = true
		m.mu.Unlock()
	}

	tools, err := st.client.ListTools(ctx)
	if err != nil {
		m.recordFailure(st, err)
		return
	}

	m.mu.Lock()
	st.reachable = true
	st.tools = tools
	st.lastErr = nil
	st.checkedAt = time.Now()
	m.mu.Unlock()
}

func (m *Manager) recordFailure(st *serverState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st.reachable = false
	st.tools = nil
	st.lastErr = err
	st.checkedAt = time.Now()
	// A failed handshake is retried on the next refresh.
	st.initialized = false
	log.Printf("mcp %s: %v", st.cfg.ID, err)
}

// =============================================================================
// CATALOG AND INVOCATION
// =============================================================================

// Tools returns the merged tool list across enabled reachable servers,
// refreshing discovery if the bounded interval has elapsed. Unreachable
// servers contribute nothing for the turn.
func (m *Manager) Tools(ctx context.Context) []RemoteTool {
	m.maybeRefresh(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	var merged []RemoteTool
	for _, st := range m.servers {
		if !st.cfg.Enabled || !st.reachable {
			continue
		}
		for _, def := range st.tools {
			merged = append(merged, RemoteTool{ServerID: st.cfg.ID, Def: def})
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].ServerID != merged[j].ServerID {
			return merged[i].ServerID < merged[j].ServerID
		}
		return merged[i].Def.Name < merged[j].Def.Name
	})
	return merged
}

// Invoke forwards a tool call to the named server. Invocations against one
// server are serialized; the turn-level ordering guarantee comes from the
// orchestrator, this is the per-server backstop.
func (m *Manager) Invoke(ctx context.Context, serverID, toolName string, args map[string]interface{}) (*ToolCallResult, error) {
	m.mu.Lock()
	st, exists := m.servers[serverID]
	m.mu.Unlock()

	if !exists {
		return nil, ErrServerNotFound
	}

	st.invokeMu.Lock()
	defer st.invokeMu.Unlock()

	result, err := st.client.CallTool(ctx, toolName, args)
	if err != nil {
		if IsServerError(err) {
			m.recordFailure(st, err)
		}
		return nil, err
	}
	return result, nil
}

// Statuses reports the health of every configured server, sorted by ID.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.servers))
	for _, st := range m.servers {
		status := Status{
			Server:    st.cfg,
			Reachable: st.reachable,
			ToolCount: len(st.tools),
			CheckedAt: st.checkedAt,
		}
		if st.lastErr != nil {
			status.LastError = st.lastErr.Error()
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Server.ID < out[j].Server.ID })
	return out
}

// snapshotStates copies the state pointers so refresh can run without
// holding the manager lock across network calls.
func (m *Manager) snapshotStates() []*serverState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*serverState, 0, len(m.servers))
	for _, st := range m.servers {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].cfg.ID < out[j].cfg.ID })
	return out
}
