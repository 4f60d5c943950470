// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists the loom configuration.
//
// The config lives at ~/.loom/config.toml with owner-only permissions.
// Missing files and missing fields fall back to built-in defaults, so a
// fresh install runs without any configuration step.
package config
