package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "file too large maps correctly",
			err:         fmt.Errorf("read body: %w", ErrFileTooLarge),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
		{
			name:        "no delimiter maps correctly",
			err:         ErrNoDelimiter,
			wantCode:    "FILE002",
			wantMessage: "No delimiter splits this file into columns",
		},
		{
			name:        "binary file maps correctly",
			err:         ErrNotText,
			wantCode:    "FILE002",
			wantMessage: "File is not a text export",
		},
		{
			name:        "encoding error maps correctly",
			err:         ErrEncoding,
			wantCode:    "FILE003",
			wantMessage: "File contains characters that could not be decoded",
		},
		{
			name:        "empty file maps correctly",
			err:         ErrEmptyFile,
			wantCode:    "FILE005",
			wantMessage: "The file is empty",
		},
		{
			name:        "metadata file maps correctly",
			err:         ErrMetadataFile,
			wantCode:    "FILE006",
			wantMessage: "File is operating-system metadata, not timing data",
		},
		{
			name:        "bare unparseable falls back to generic parse error",
			err:         ErrUnparseableFile,
			wantCode:    "FILE002",
			wantMessage: "File could not be parsed",
		},
		{
			name:        "alias conflict maps correctly",
			err:         fmt.Errorf("%w: \"POS\" maps to both POSITION and NUMBER", ErrAliasConflict),
			wantCode:    "MAP001",
			wantMessage: "Column alias table is inconsistent",
		},
		{
			name:        "unknown encoding maps correctly",
			err:         fmt.Errorf("%w: %q", ErrUnknownEncoding, "klingon"),
			wantCode:    "MAP003",
			wantMessage: "Unknown encoding name",
		},
		{
			name:        "busy maps correctly",
			err:         errors.New("too many concurrent normalizations"),
			wantCode:    "NRM001",
			wantMessage: "System is busy processing other files",
		},
		{
			name:        "deadline maps before generic timeout",
			err:         context.DeadlineExceeded,
			wantCode:    "NRM003",
			wantMessage: "Request timed out",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB001",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("i/o timeout"),
			wantCode:    "DB002",
			wantMessage: "Operation timed out",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("EMPTY FILE"),
			wantCode:    "FILE005",
			wantMessage: "The file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrEmptyFile)

	expected := "The file is empty (Code: FILE005). Upload a CSV file with a header and data rows"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrNoDelimiter,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("normalize laps.csv: %w", ErrEncoding)
		userErr := NewUserError(techErr)

		if userErr.Error() != "File contains characters that could not be decoded" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, ErrUnparseableFile) {
			t.Error("Unwrap() should return original error")
		}
	})
}
