package core

// error_messages.go maps technical errors to messages a user can act on.
//
// Every message carries a short code that users can quote when asking for
// help. Codes are grouped by the stage that produced them:
//
//	FMT001  - Unsupported file format          ("unsupported file format")
//	LOAD001 - File could not be parsed         ("load failed")
//	LOAD002 - Row wider than the header        ("wrong number of fields")
//	LOAD003 - Broken quoting                   ("bare \" in non-quoted-field", "extraneous")
//	LOAD004 - Not a valid workbook             ("zip: not a valid zip file")
//	COL001  - Requested column does not exist  ("column not found")
//	FILL001 - Numeric column has no values     ("numeric column has no values")
//	HIST001 - Nothing to plot                  ("no numeric columns found")
//	FILE001 - Request body too large           ("request body too large")
//	FILE002 - Request is not a multipart form  ("invalid upload form")
//	FILE003 - Too many files in one batch      ("too many files")
//	FILE004 - No file in the request           ("no file provided")
//	FILE005 - File has no header               ("empty file")
//	UPL002  - Too many batches running         ("too many concurrent uploads")
//	UPL004  - Request cancelled                ("context canceled")
//	UPL005  - Request timed out                ("context deadline exceeded")
//	OPT001  - Invalid processing option        ("invalid option")
//	PUB001  - Publish sink not configured      ("publish sink not configured")
//	PUB002  - Publish failed                   ("publish to")
//	RATE001 - Rate limited                     ("rate limit")
//	ERR000  - Anything else; check the logs
//
// Typed errors are mapped first, so file and column names inside the text
// never pick the code. Anything else is matched against the pattern table
// case-insensitively with strings.Contains; the first match wins, so more
// specific patterns come first.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Format and load errors
	// =========================================================================
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FMT001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "wrong number of fields",
		msg: UserMessage{
			Message: "A row has more fields than the header",
			Action:  "Check for stray commas or unquoted values in the reported line",
			Code:    "LOAD002",
		},
	},
	{
		pattern: "bare \" in non-quoted-field",
		msg: UserMessage{
			Message: "The file contains a broken quoted value",
			Action:  "Quote fields that contain double quotes",
			Code:    "LOAD003",
		},
	},
	{
		pattern: "extraneous",
		msg: UserMessage{
			Message: "The file contains a broken quoted value",
			Action:  "Quote fields that contain double quotes",
			Code:    "LOAD003",
		},
	},
	{
		pattern: "not a valid zip file",
		msg: UserMessage{
			Message: "The file is not a valid Excel workbook",
			Action:  "Re-save the file as .xlsx from your spreadsheet program",
			Code:    "LOAD004",
		},
	},
	{
		pattern: "load failed",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check that the file is a well-formed CSV or Excel workbook",
			Code:    "LOAD001",
		},
	},

	// =========================================================================
	// Processing errors
	// =========================================================================
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "A selected column does not exist in this file",
			Action:  "Pick columns from the list shown in the preview",
			Code:    "COL001",
		},
	},
	{
		pattern: "numeric column has no values",
		msg: UserMessage{
			Message: "A numeric column has no values to average",
			Action:  "The column was left empty",
			Code:    "FILL001",
		},
	},
	{
		pattern: "no numeric columns found",
		msg: UserMessage{
			Message: "No numeric columns found for visualization",
			Action:  "Select at least one numeric column to see a histogram",
			Code:    "HIST001",
		},
	},
	{
		pattern: "invalid option",
		msg: UserMessage{
			Message: "One of the processing options is invalid",
			Action:  "Check the conversion target and column list",
			Code:    "OPT001",
		},
	},

	// =========================================================================
	// Request errors
	// =========================================================================
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Upload exceeds the maximum size limit",
			Action:  "Upload fewer or smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid upload form",
		msg: UserMessage{
			Message: "The upload could not be read",
			Action:  "Submit the files as a multipart form",
			Code:    "FILE002",
		},
	},
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "Too many files in one upload",
			Action:  "Split the files across several uploads",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or Excel file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try fewer files or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Publish sink
	// =========================================================================
	{
		pattern: "publish sink not configured",
		msg: UserMessage{
			Message: "Publishing is not enabled on this server",
			Action:  "Leave the publish table empty or ask an operator to set DATABASE_URL",
			Code:    "PUB001",
		},
	},
	{
		pattern: "publish to",
		msg: UserMessage{
			Message: "The table could not be written to the database",
			Action:  "Check the table name and try again",
			Code:    "PUB002",
		},
	},

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
// If no pattern matches, a generic fallback with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}
	return matchPattern(err.Error())
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		unsupported *UnsupportedFormatError
		notFound    *ColumnNotFoundError
		publish     *PublishError
		load        *LoadError
	)
	switch {
	case errors.As(err, &unsupported):
		return messageFor("FMT001"), true
	case errors.As(err, &notFound):
		return messageFor("COL001"), true
	case errors.As(err, &publish):
		return messageFor("PUB002"), true
	case errors.As(err, &load):
		// The cause carries no file name; fall back to the generic load code.
		if load.Err == nil {
			return messageFor("LOAD001"), true
		}
		if msg := matchPattern(load.Err.Error()); msg.Code != defaultMessage.Code {
			return msg, true
		}
		return messageFor("LOAD001"), true
	case errors.Is(err, ErrEmptyNumericColumn):
		return messageFor("FILL001"), true
	case errors.Is(err, ErrNoNumericColumn):
		return messageFor("HIST001"), true
	case errors.Is(err, ErrPublishDisabled):
		return messageFor("PUB001"), true
	case errors.Is(err, ErrTooManyBatches):
		return messageFor("UPL002"), true
	case errors.Is(err, context.Canceled):
		return messageFor("UPL004"), true
	case errors.Is(err, context.DeadlineExceeded):
		return messageFor("UPL005"), true
	}
	return UserMessage{}, false
}

func matchPattern(text string) UserMessage {
	errStr := strings.ToLower(text)
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// messageFor returns the message registered for code.
func messageFor(code string) UserMessage {
	for _, ep := range errorPatterns {
		if ep.msg.Code == code {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
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

// UserError pairs a technical error with its user-facing message.
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

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
