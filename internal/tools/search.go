// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the local tool system: built-in tools with
// parameter contracts, schema validation, and execution.
package tools

import (
	"bufio"
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	// maxSearchMatches bounds result size before truncation.
	maxSearchMatches = 50

	// maxSearchFileSize skips files too large to be source code.
	maxSearchFileSize = 2 * 1024 * 1024
)

// skippedDirs are directories never worth searching.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"target":       true,
	"dist":         true,
	"build":        true,
	".cache":       true,
}

// =============================================================================
// SEARCH CODE EXECUTOR
// =============================================================================

// SearchCodeExecutor searches file contents with a regular expression,
// walking the tree and reporting matches as file:line:content.
type SearchCodeExecutor struct{}

// Execute performs the search.
func (e *SearchCodeExecutor) Execute(ctx context.Context, params map[string]interface{}) Result {
	pattern := getString(params, "pattern", "")
	root := getString(params, "path", ".")
	glob := getString(params, "glob", "")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return errorResult("invalid pattern: " + err.Error())
	}

	var sb strings.Builder
	matches := 0
	truncated := false

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if glob != "" {
			if ok, _ := filepath.Match(glob, d.Name()); !ok {
				return nil
			}
		}
		if info, err := d.Info(); err != nil || info.Size() > maxSearchFileSize {
			return nil
		}

		found, err := searchFile(path, re, &sb, &matches)
		if err != nil {
			return nil // Skip unreadable files
		}
		if found && matches >= maxSearchMatches {
			truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		if ctx.Err() != nil {
			return errorResult("search interrupted: " + ctx.Err().Error())
		}
		return errorResult("search failed: " + walkErr.Error())
	}

	if matches == 0 {
		return Result{Output: "no matches for " + pattern}
	}
	if truncated {
		sb.WriteString("... (truncated at " + strconv.Itoa(maxSearchMatches) + " matches)\n")
	}
	return Result{Output: sb.String()}
}

// searchFile scans one file for matches, skipping binary content.
func searchFile(path string, re *regexp.Regexp, sb *strings.Builder, matches *int) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// Binary sniff on the first block
	head := make([]byte, 512)
	n, _ := f.Read(head)
	if bytes.IndexByte(head[:n], 0) != -1 {
		return false, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return false, err
	}

	found := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxReadLineLength)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		found = true
		*matches++
		sb.WriteString(path)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(lineNum))
		sb.WriteString(":")
		sb.WriteString(line)
		sb.WriteString("\n")
		if *matches >= maxSearchMatches {
			break
		}
	}
	return found, nil
}
