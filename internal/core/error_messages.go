// Package core provides the business logic for telemetry normalization.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: exceeds the configured size limit
//	FILE002 - Not a CSV: no delimiter splits the file, or content is binary
//	FILE003 - Encoding error: no candidate encoding decodes the file
//	FILE004 - No file: request carried no file
//	FILE005 - Empty file: no non-empty lines
//	FILE006 - Metadata file: OS metadata or resource fork, skipped
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Alias conflict: a vendor profile assigns one alias to two fields
//	MAP002 - Unknown vendor profile
//	MAP003 - Unknown encoding name in configuration
//
// # Normalization Errors (NRM001-NRM099)
//
//	NRM001 - Busy: too many concurrent normalizations
//	NRM002 - Request cancelled
//	NRM003 - Request timed out
//
// # Request Errors (VAL001-VAL099)
//
//	VAL001 - Invalid import ID
//	VAL002 - Invalid limit
//
// # History Errors (DB001-DB099)
//
//	DB001 - Connection refused
//	DB002 - Timeout
//	DB003 - History disabled: no database configured
//	DB004 - Import not found
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check application logs for
// the original technical error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the export into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "No delimiter splits this file into columns",
			Action:  "Export the timing data as CSV separated by comma, semicolon, tab or pipe",
			Code:    "FILE002",
		},
	},
	{
		pattern: "not a delimited text file",
		msg: UserMessage{
			Message: "File is not a text export",
			Action:  "Upload the CSV export rather than a spreadsheet or archive",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains characters that could not be decoded",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Send the CSV in the request body or as the \"file\" form field",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Upload a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "os metadata file",
		msg: UserMessage{
			Message: "File is operating-system metadata, not timing data",
			Action:  "No action needed; the file was skipped",
			Code:    "FILE006",
		},
	},
	{
		pattern: "unparseable file",
		msg: UserMessage{
			Message: "File could not be parsed",
			Action:  "Check that the file is a CSV export with a header row",
			Code:    "FILE002",
		},
	},

	// =========================================================================
	// Mapping Errors (MAP001-MAP003)
	// =========================================================================
	{
		pattern: "alias conflict",
		msg: UserMessage{
			Message: "Column alias table is inconsistent",
			Action:  "Fix the vendor profile so each alias maps to one field",
			Code:    "MAP001",
		},
	},
	{
		pattern: "unknown field",
		msg: UserMessage{
			Message: "Column alias targets a field that does not exist",
			Action:  "Fix the vendor profile so each alias maps to a canonical field",
			Code:    "MAP001",
		},
	},
	{
		pattern: "unknown vendor profile",
		msg: UserMessage{
			Message: "Unknown vendor profile",
			Action:  "Use one of the profiles listed by /api/vendors",
			Code:    "MAP002",
		},
	},
	{
		pattern: "unknown encoding",
		msg: UserMessage{
			Message: "Unknown encoding name",
			Action:  "Use IANA names such as utf-8 or windows-1252",
			Code:    "MAP003",
		},
	},

	// =========================================================================
	// Normalization Errors (NRM001-NRM003)
	// =========================================================================
	{
		pattern: "too many concurrent normalizations",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "NRM001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "NRM002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "NRM003",
		},
	},

	// =========================================================================
	// Request Errors (VAL001-VAL002)
	// =========================================================================
	{
		pattern: "invalid import id",
		msg: UserMessage{
			Message: "Import ID is not valid",
			Action:  "Use the id returned by /api/normalize",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid limit",
		msg: UserMessage{
			Message: "Limit must be a positive number",
			Action:  "Pass limit between 1 and 500",
			Code:    "VAL002",
		},
	},

	// =========================================================================
	// History Errors (DB001-DB004)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB002",
		},
	},
	{
		pattern: "history disabled",
		msg: UserMessage{
			Message: "Import history is not enabled",
			Action:  "Configure DATABASE_URL to keep import history",
			Code:    "DB003",
		},
	},
	{
		pattern: "import not found",
		msg: UserMessage{
			Message: "Import not found",
			Action:  "Check the import id",
			Code:    "DB004",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback with code ERR000 is returned.
//
// Example:
//
//	msg := MapError(ErrEmptyFile)
//	// msg.Code == "FILE005"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
