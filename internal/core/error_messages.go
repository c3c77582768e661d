// Package core provides the table processing pipeline.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Request Errors (REQ001)
//
//	REQ001 - Invalid request: A request body failed validation
//
// # Load Errors (LOAD001-LOAD099)
//
//	LOAD001 - Invalid CSV: File is not valid delimited text
//	LOAD002 - Invalid spreadsheet: File is not a readable .xlsx workbook
//	LOAD003 - Empty file: The uploaded file has no rows
//	LOAD004 - Unsupported type: Only .csv and .xlsx are accepted
//	LOAD005 - Missing sheet: The requested worksheet does not exist
//
// # Region Errors (REG001-REG099)
//
//	REG001 - Row range: Manual start/end rows are outside the table
//	REG002 - Detection failed: No data-start row was found (warning)
//	REG003 - Unknown policy: The region mode is not recognized
//	REG004 - Unknown method: The detection method is not recognized
//
// # Date Errors (DATE001-DATE099)
//
//	DATE001 - Invalid range: Start date is after end date
//	DATE002 - Not temporal: The filter column does not hold timestamps
//	DATE003 - Invalid date: A date could not be parsed
//	DATE004 - No timestamps: The column has no timestamp values
//
// # Column and Analysis Errors (COL001-COL099)
//
//	COL001 - Column not found: The column does not exist in the table
//	COL002 - Not numeric: The operation needs a numeric column
//	COL003 - Division by zero: Divide needs a non-zero value
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the upload size limit
//	FILE002 - No file: No file was selected
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: The session expired or never existed
//	SES002 - System busy: Too many files are being loaded
//	SES003 - Request cancelled
//	SES004 - Request timeout
//
// # Export Errors (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to database
//	DB002 - Table exists: The target database table already exists
//	DB003 - Export disabled: No database is configured
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
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

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// Request
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request is missing fields or has invalid values",
			Action:  "Check the highlighted fields and try again",
			Code:    "REQ001",
		},
	},

	// Load
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not valid delimited text",
			Action:  "Check quoting and delimiters, then upload again",
			Code:    "LOAD001",
		},
	},
	{
		pattern: "invalid spreadsheet",
		msg: UserMessage{
			Message: "File is not a readable Excel workbook",
			Action:  "Save the file as .xlsx and upload again",
			Code:    "LOAD002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with a header row and data",
			Code:    "LOAD003",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Unsupported file type",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "LOAD004",
		},
	},
	{
		pattern: "read sheet",
		msg: UserMessage{
			Message: "The worksheet could not be read",
			Action:  "Check the sheet name",
			Code:    "LOAD005",
		},
	},

	// Region
	{
		pattern: "row range",
		msg: UserMessage{
			Message: "Selected rows are outside the table",
			Action:  "Choose a start row no greater than the end row, both within the table",
			Code:    "REG001",
		},
	},
	{
		pattern: "could not detect data start",
		msg: UserMessage{
			Message: "Could not detect where the data starts",
			Action:  "Try another detection method, adjust the skip words, or select rows manually",
			Code:    "REG002",
		},
	},
	{
		pattern: "region policy",
		msg: UserMessage{
			Message: "Unknown row selection mode",
			Action:  "Use all, manual or auto",
			Code:    "REG003",
		},
	},
	{
		pattern: "unknown detection method",
		msg: UserMessage{
			Message: "Unknown detection method",
			Action:  "Use date-pattern, numeric-pattern, after-blank or non-header",
			Code:    "REG004",
		},
	},

	// Dates
	{
		pattern: "invalid date range",
		msg: UserMessage{
			Message: "Start date is after end date",
			Action:  "Pick a start date on or before the end date",
			Code:    "DATE001",
		},
	},
	{
		pattern: "not a timestamp column",
		msg: UserMessage{
			Message: "The selected column does not hold dates",
			Action:  "Convert the column to timestamps first",
			Code:    "DATE002",
		},
	},
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD",
			Code:    "DATE003",
		},
	},
	{
		pattern: "no timestamps",
		msg: UserMessage{
			Message: "The column has no dates",
			Action:  "Convert a column that contains dates",
			Code:    "DATE004",
		},
	},

	// Columns and analysis
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "Column not found",
			Action:  "Pick a column from the current table",
			Code:    "COL001",
		},
	},
	{
		pattern: "not numeric",
		msg: UserMessage{
			Message: "Mathematical operations only work on numeric columns",
			Action:  "Pick a numeric column",
			Code:    "COL002",
		},
	},
	{
		pattern: "division by zero",
		msg: UserMessage{
			Message: "Cannot divide by zero",
			Action:  "Enter a non-zero value",
			Code:    "COL003",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or Excel file to upload",
			Code:    "FILE002",
		},
	},

	// Sessions
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Session not found",
			Action:  "The session may have expired. Please upload the file again",
			Code:    "SES001",
		},
	},
	{
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "SES002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SES003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "SES004",
		},
	},

	// Database export
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "The database table already exists",
			Action:  "Choose another table name",
			Code:    "DB002",
		},
	},
	{
		pattern: "database export disabled",
		msg: UserMessage{
			Message: "Database export is not configured",
			Action:  "Set DATABASE_URL and restart the server",
			Code:    "DB003",
		},
	},

	// Rate limiting
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
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
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
