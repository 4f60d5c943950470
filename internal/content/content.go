// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package content classifies opaque tool-result payloads into typed
// content blocks. Remote tools return strings; some of those strings are
// base64-encoded images that should reach the model (and the screen) as
// typed image content rather than a wall of base64.
package content

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/morganforge/loom/internal/model"
)

// minImagePayload filters out short strings that happen to decode as valid
// base64 but cannot be a real image.
const minImagePayload = 32

// =============================================================================
// IMAGE SIGNATURES
// =============================================================================

// signature maps a decoded byte prefix to a MIME type. Ordered most specific
// first so WebP (RIFF....WEBP) wins over a bare RIFF match.
type signature struct {
	mime   string
	prefix []byte
	// offset/second allows a two-part match (RIFF container check for WebP).
	second       []byte
	secondOffset int
}

var imageSignatures = []signature{
	{mime: "image/png", prefix: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{mime: "image/webp", prefix: []byte("RIFF"), second: []byte("WEBP"), secondOffset: 8},
	{mime: "image/gif", prefix: []byte("GIF87a")},
	{mime: "image/gif", prefix: []byte("GIF89a")},
	{mime: "image/jpeg", prefix: []byte{0xFF, 0xD8, 0xFF}},
}

// SniffImage returns the MIME type for a known image byte prefix, or "".
func SniffImage(data []byte) string {
	for _, sig := range imageSignatures {
		if !bytes.HasPrefix(data, sig.prefix) {
			continue
		}
		if sig.second != nil {
			end := sig.secondOffset + len(sig.second)
			if len(data) < end || !bytes.Equal(data[sig.secondOffset:end], sig.second) {
				continue
			}
		}
		return sig.mime
	}
	return ""
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize classifies a raw tool-result payload. If raw is valid base64
// whose decoded prefix matches a known image signature the result is an
// image block carrying the decoded bytes; everything else, including
// malformed base64, passes through unchanged as text. Never fails.
func Normalize(raw string) model.Block {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < minImagePayload {
		return model.TextBlock(raw)
	}

	data, err := decodeBase64(trimmed)
	if err != nil {
		return model.TextBlock(raw)
	}

	mime := SniffImage(data)
	if mime == "" {
		return model.TextBlock(raw)
	}
	return model.ImageBlock(mime, data)
}

// decodeBase64 accepts both standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}

	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
