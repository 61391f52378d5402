package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestBOMReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
		wantBOM  BOM
	}{
		{
			name:     "utf-8 BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("POS,DRIVER")...),
			expected: "POS,DRIVER",
			wantBOM:  BOMUTF8,
		},
		{
			name:     "utf-16le BOM",
			input:    []byte{0xFF, 0xFE, 'A', 0x00},
			expected: "A\x00",
			wantBOM:  BOMUTF16LE,
		},
		{
			name:     "utf-16be BOM",
			input:    []byte{0xFE, 0xFF, 0x00, 'A'},
			expected: "\x00A",
			wantBOM:  BOMUTF16BE,
		},
		{
			name:     "no BOM",
			input:    []byte("POS,DRIVER"),
			expected: "POS,DRIVER",
			wantBOM:  BOMNone,
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
			wantBOM:  BOMNone,
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
			wantBOM:  BOMUTF8,
		},
		{
			name:     "shorter than a BOM",
			input:    []byte("ab"),
			expected: "ab",
			wantBOM:  BOMNone,
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
			wantBOM:  BOMNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBOMReader(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
			if reader.BOM() != tt.wantBOM {
				t.Errorf("BOM() = %v, want %v", reader.BOM(), tt.wantBOM)
			}
		})
	}
}

func TestBOMReader_OneByteReads(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("NO;LAP\n14;1\n")...)
	reader := NewBOMReader(iotest.OneByteReader(bytes.NewReader(input)))

	result, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != "NO;LAP\n14;1\n" {
		t.Errorf("got %q", string(result))
	}
	if reader.BOM() != BOMUTF8 {
		t.Errorf("BOM() = %v, want utf-8", reader.BOM())
	}
}

func TestSizeLimitReader(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limit   int64
		wantErr bool
	}{
		{name: "under limit", input: "hello", limit: 10},
		{name: "at limit", input: "hello", limit: 5},
		{name: "over limit", input: "hello!", limit: 5, wantErr: true},
		{name: "limit disabled", input: strings.Repeat("x", 4096), limit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewSizeLimitReader(strings.NewReader(tt.input), tt.limit)
			_, err := io.ReadAll(reader)
			if tt.wantErr {
				if !errors.Is(err, ErrFileTooLarge) {
					t.Fatalf("err = %v, want ErrFileTooLarge", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if reader.BytesRead != int64(len(tt.input)) {
				t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(tt.input))
			}
		})
	}
}
