// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"encoding/json"

	"github.com/morganforge/loom/internal/mcp"
	"github.com/morganforge/loom/internal/ollama"
	"github.com/morganforge/loom/internal/tools"
)

// remoteNameSep joins a server ID and a remote tool name into one wire
// name, so tools with the same name on different servers never collide.
const remoteNameSep = "__"

// =============================================================================
// TOOL CATALOG
// =============================================================================

// Origin says where a catalog entry executes.
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// Descriptor is one entry in the turn's tool catalog: the wire-visible
// name plus enough routing information to dispatch an invocation.
type Descriptor struct {
	Name       string // name presented to the model
	Origin     Origin
	ServerID   string // remote only
	RemoteName string // remote only: name on the server
	Wire       ollama.Tool
}

// Catalog is the merged tool surface for one turn: built-in local tools
// plus the tools of every reachable MCP server. Built once per turn so the
// model sees a stable catalog for its duration.
type Catalog struct {
	registry *tools.Registry
	servers  *mcp.Manager
	byName   map[string]Descriptor
	order    []Descriptor
}

// BuildCatalog assembles the catalog. servers may be nil for a local-only
// session.
func BuildCatalog(ctx context.Context, registry *tools.Registry, servers *mcp.Manager) *Catalog {
	c := &Catalog{
		registry: registry,
		servers:  servers,
		byName:   make(map[string]Descriptor),
	}

	for _, t := range registry.List() {
		d := Descriptor{
			Name:   t.Name,
			Origin: OriginLocal,
			Wire:   tools.ToOllamaTool(t),
		}
		c.add(d)
	}

	if servers != nil {
		for _, rt := range servers.Tools(ctx) {
			name := rt.ServerID + remoteNameSep + rt.Def.Name
			d := Descriptor{
				Name:       name,
				Origin:     OriginRemote,
				ServerID:   rt.ServerID,
				RemoteName: rt.Def.Name,
				Wire:       remoteWireTool(name, rt.Def),
			}
			c.add(d)
		}
	}
	return c
}

func (c *Catalog) add(d Descriptor) {
	if _, exists := c.byName[d.Name]; exists {
		return
	}
	c.byName[d.Name] = d
	c.order = append(c.order, d)
}

// WireTools returns the catalog in the model's function-calling format.
func (c *Catalog) WireTools() []ollama.Tool {
	out := make([]ollama.Tool, 0, len(c.order))
	for _, d := range c.order {
		out = append(out, d.Wire)
	}
	return out
}

// Lookup resolves a model-emitted tool name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.order)
}

// remoteWireTool converts an MCP tool definition to the model's schema
// format. A schema that cannot be decoded degrades to an empty object so
// the tool stays callable.
func remoteWireTool(wireName string, def mcp.ToolDefinition) ollama.Tool {
	params := ollama.ToolParameters{Type: "object"}
	if len(def.InputSchema) > 0 {
		if err := json.Unmarshal(def.InputSchema, &params); err != nil {
			params = ollama.ToolParameters{Type: "object"}
		}
	}
	if params.Type == "" {
		params.Type = "object"
	}
	return ollama.Tool{
		Type: "function",
		Function: ollama.ToolSchema{
			Name:        wireName,
			Description: def.Description,
			Parameters:  params,
		},
	}
}
