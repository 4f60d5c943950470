// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mcp implements the client side of the Model Context Protocol:
// JSON-RPC 2.0 over HTTP POST against remote tool servers.
//
// # Components
//
//   - Client: one server connection (initialize, tools/list, tools/call)
//   - Manager: the server fleet, with bounded discovery refresh and a
//     merged tool catalog across enabled reachable servers
//
// # Failure Model
//
// A server that cannot be reached is marked unreachable and excluded from
// the catalog until a later refresh succeeds. Other servers and local tools
// are unaffected. Round trips honor context cancellation.
package mcp
