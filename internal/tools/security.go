// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
// security.go holds the sensitive-path guard shared by the file tools.
package tools

import (
	"path/filepath"
	"strings"
)

// sensitivePathPatterns are file patterns that contain credentials or
// secrets. Reads and writes touching them are refused with a tool error.
var sensitivePathPatterns = []string{
	// Environment files with secrets
	".env",

	// SSH keys and configuration
	"id_rsa",
	"id_ed25519",
	"id_ecdsa",
	".ssh/",

	// Cloud provider credentials
	".aws/credentials",
	".kube/config",

	// Git credentials
	".git-credentials",
	".netrc",

	// Certificate and key files
	".pem",
	".key",

	// System credential stores
	"/etc/shadow",
	"/etc/sudoers",
}

// isSensitivePath reports whether a path matches a known credential or
// secret location.
func isSensitivePath(path string) bool {
	normalized := filepath.ToSlash(strings.ToLower(path))

	for _, pattern := range sensitivePathPatterns {
		if strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}
