package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// When users encounter errors, they can quote the code to support staff
// for faster diagnosis. Codes are grouped by category:
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Dataset not found: No dataset has this ID
//	        Action: Check the dataset ID or import the workbook again
//	        Patterns: "dataset not found"
//
//	DB002 - Connection refused: Unable to connect to database
//	        Action: Please try again in a few moments
//	        Patterns: "connection refused"
//
//	DB003 - Connection reset: Database connection was interrupted
//	        Action: Please try again
//	        Patterns: "connection reset", "conn closed"
//
//	DB004 - Invalid ID: The dataset ID is malformed
//	        Action: Dataset IDs are UUIDs such as 0b6f...-...
//	        Patterns: "invalid uuid"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: Workbook exceeds the upload limit
//	          Action: Remove unused sheets or split the workbook
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Invalid workbook: File is not a readable .xlsx workbook
//	          Action: Save the file as Excel Workbook (.xlsx) and retry
//	          Patterns: "read workbook", "not a valid zip"
//
//	FILE003 - No file: No file was selected
//	          Action: Please select an .xlsx file to import
//	          Patterns: "no file provided"
//
//	FILE004 - Unsupported type: Only .xlsx workbooks are accepted
//	          Action: Convert the file to .xlsx
//	          Patterns: "unsupported file type"
//
// # Sheet Errors (SHEET001-SHEET099)
//
//	SHEET001 - Invalid column: Column reference is not a number >= 1 or letters A-Z
//	           Action: Use a column number such as 28 or letters such as AB
//	           Patterns: "invalid column"
//
//	SHEET002 - Table not found: The table is not declared in the catalog
//	           Action: Check GET /api/tables for available tables
//	           Patterns: "table not found"
//
//	SHEET003 - Invalid data: Table data is not an array of records or an object
//	           Action: Send each table as a JSON array or a JSON object
//	           Patterns: "table data must be"
//
// # Filter Errors (FLT001-FLT099)
//
//	FLT001 - Invalid filter request: The filter request body could not be read
//	         Action: Send JSON with records, query and filters
//	         Patterns: "invalid filter"
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - System busy: Too many exports in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent exports"
//
//	EXP002 - Export failed: The workbook could not be written
//	         Action: Please try again or contact support
//	         Patterns: "serialize", "write xlsx"
//
//	EXP003 - Export timed out: The workbook took too long to build
//	         Action: Export fewer rows or try again later
//	         Patterns: "context deadline exceeded", "timeout"
//
// # Catalog Errors (CAT001-CAT099)
//
//	CAT001 - Invalid catalog: The table catalog failed validation
//	         Action: Fix the catalog file; the log lists every problem
//	         Patterns: "invalid catalog"
//
//	CAT002 - Catalog unavailable: The table catalog could not be read
//	         Action: Check CATALOG_PATH
//	         Patterns: "load catalog"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled: The request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so more specific patterns come before general ones.

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

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is ordered: the first match wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database (DB001-DB004)
	// =========================================================================
	{
		pattern: "dataset not found",
		msg: UserMessage{
			Message: "Dataset not found",
			Action:  "Check the dataset ID or import the workbook again",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "conn closed",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "invalid uuid",
		msg: UserMessage{
			Message: "The dataset ID is malformed",
			Action:  "Dataset IDs are UUIDs as returned by the import",
			Code:    "DB004",
		},
	},

	// =========================================================================
	// File (FILE001-FILE004)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "Workbook exceeds the upload size limit",
			Action:  "Remove unused sheets or split the workbook",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Workbook exceeds the upload size limit",
			Action:  "Remove unused sheets or split the workbook",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only .xlsx workbooks are accepted",
			Action:  "Convert the file to .xlsx",
			Code:    "FILE004",
		},
	},
	{
		pattern: "read workbook",
		msg: UserMessage{
			Message: "File is not a readable .xlsx workbook",
			Action:  "Save the file as Excel Workbook (.xlsx) and retry",
			Code:    "FILE002",
		},
	},
	{
		pattern: "not a valid zip",
		msg: UserMessage{
			Message: "File is not a readable .xlsx workbook",
			Action:  "Save the file as Excel Workbook (.xlsx) and retry",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an .xlsx file to import",
			Code:    "FILE003",
		},
	},

	// =========================================================================
	// Sheet (SHEET001-SHEET003)
	// =========================================================================
	{
		pattern: "invalid column",
		msg: UserMessage{
			Message: "Column reference is not valid",
			Action:  "Use a column number such as 28 or letters such as AB",
			Code:    "SHEET001",
		},
	},
	{
		pattern: "table not found",
		msg: UserMessage{
			Message: "Table not found",
			Action:  "Check the table list for available tables",
			Code:    "SHEET002",
		},
	},
	{
		pattern: "table data must be",
		msg: UserMessage{
			Message: "Table data must be a list of records or a single object",
			Action:  "Send each table as a JSON array or a JSON object",
			Code:    "SHEET003",
		},
	},

	// =========================================================================
	// Filter (FLT001)
	// =========================================================================
	{
		pattern: "invalid filter",
		msg: UserMessage{
			Message: "The filter request could not be read",
			Action:  "Send JSON with records, query and filters",
			Code:    "FLT001",
		},
	},

	// =========================================================================
	// Export (EXP001-EXP003)
	// =========================================================================
	{
		pattern: "too many concurrent exports",
		msg: UserMessage{
			Message: "System is busy building other exports",
			Action:  "Please wait a moment and try again",
			Code:    "EXP001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Export fewer rows or try again later",
			Code:    "EXP003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Export fewer rows or try again later",
			Code:    "EXP003",
		},
	},
	{
		pattern: "serialize",
		msg: UserMessage{
			Message: "The workbook could not be written",
			Action:  "Please try again or contact support",
			Code:    "EXP002",
		},
	},
	{
		pattern: "write xlsx",
		msg: UserMessage{
			Message: "The workbook could not be written",
			Action:  "Please try again or contact support",
			Code:    "EXP002",
		},
	},

	// =========================================================================
	// Catalog (CAT001-CAT002)
	// =========================================================================
	{
		pattern: "invalid catalog",
		msg: UserMessage{
			Message: "The table catalog is invalid",
			Action:  "Fix the catalog file; the server log lists every problem",
			Code:    "CAT001",
		},
	},
	{
		pattern: "load catalog",
		msg: UserMessage{
			Message: "The table catalog could not be read",
			Action:  "Check CATALOG_PATH",
			Code:    "CAT002",
		},
	},

	// =========================================================================
	// Request (REQ001)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the generic ERR000 message is returned.
//
// Example:
//
//	err := fmt.Errorf("dataset %s: %w", id, store.ErrDatasetNotFound)
//	msg := MapError(err)
//	// msg.Code == "DB001"
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

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
