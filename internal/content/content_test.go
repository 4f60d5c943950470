// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package content classifies opaque tool-result payloads into typed
// content blocks.
package content

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/morganforge/loom/internal/model"
)

// syntheticPNG builds a byte sequence with a valid PNG signature plus filler
// so it clears the minimum payload size.
func syntheticPNG() []byte {
	data := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	for i := 0; i < 40; i++ {
		data = append(data, byte(i))
	}
	return data
}

func TestNormalize_PNGRoundTrip(t *testing.T) {
	raw := syntheticPNG()
	encoded := base64.StdEncoding.EncodeToString(raw)

	block := Normalize(encoded)

	if block.Type != model.BlockImage {
		t.Fatalf("Type = %q, want %q", block.Type, model.BlockImage)
	}
	if block.MIME != "image/png" {
		t.Errorf("MIME = %q, want image/png", block.MIME)
	}
	if !bytes.Equal(block.Data, raw) {
		t.Error("decoded bytes differ from original")
	}
}

func TestNormalize_PlainTextUnchanged(t *testing.T) {
	inputs := []string{
		"just a regular tool result",
		"file1.txt\nfile2.txt\nfile3.txt",
		"error: no such file or directory",
		"", // empty stays text
	}

	for _, in := range inputs {
		block := Normalize(in)
		if block.Type != model.BlockText {
			t.Errorf("Normalize(%q).Type = %q, want text", in, block.Type)
		}
		if block.Text != in {
			t.Errorf("Normalize(%q) mutated text to %q", in, block.Text)
		}
	}
}

func TestNormalize_MalformedBase64FallsBack(t *testing.T) {
	// Long enough to attempt decoding, but not valid base64.
	in := "this is definitely not base64!!! ### $$$ and it is long enough"

	block := Normalize(in)
	if block.Type != model.BlockText {
		t.Fatalf("Type = %q, want text", block.Type)
	}
	if block.Text != in {
		t.Errorf("text mutated: %q", block.Text)
	}
}

func TestNormalize_ValidBase64NonImage(t *testing.T) {
	// Valid base64, decodes to plain bytes with no image signature.
	encoded := base64.StdEncoding.EncodeToString([]byte("hello world, this is a long plain payload"))

	block := Normalize(encoded)
	if block.Type != model.BlockText {
		t.Errorf("Type = %q, want text for non-image payload", block.Type)
	}
}

func TestSniffImage(t *testing.T) {
	webp := append([]byte("RIFF"), 0, 0, 0, 0)
	webp = append(webp, []byte("WEBP")...)

	riffOnly := append([]byte("RIFF"), 0, 0, 0, 0)
	riffOnly = append(riffOnly, []byte("WAVE")...)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0}, "image/png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"gif87a", []byte("GIF87a....."), "image/gif"},
		{"gif89a", []byte("GIF89a....."), "image/gif"},
		{"webp", webp, "image/webp"},
		{"riff but not webp", riffOnly, ""},
		{"unknown", []byte("plain bytes"), ""},
		{"empty", nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SniffImage(tc.data); got != tc.want {
				t.Errorf("SniffImage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalize_URLSafeAlphabet(t *testing.T) {
	raw := syntheticPNG()
	encoded := base64.RawURLEncoding.EncodeToString(raw)

	block := Normalize(encoded)
	if block.Type != model.BlockImage {
		t.Fatalf("Type = %q, want image for URL-safe base64", block.Type)
	}
	if !bytes.Equal(block.Data, raw) {
		t.Error("decoded bytes differ from original")
	}
}
