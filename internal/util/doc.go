// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for loom.
//
// AtomicWriteFile writes a file crash-safely: data lands in a temp file in
// the target directory, is fsynced, then renamed over the destination. The
// config writer and the write_file tool both go through it so a crash can
// never leave a half-written file behind.
package util
