package core

// error_messages.go maps technical errors to user messages with codes.
//
// Error Codes Reference
//
// Errors shown to users carry a code they can quote to support. Known
// sentinel errors are matched with errors.Is first; anything else falls back
// to case-insensitive substring patterns on the error text.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Invalid file: The file is not a competency framework CSV
//	         Action: Check the delimiter and encoding, and that one row has isframework set
//	IMP002 - Scale configuration: A scale configuration is not valid JSON
//	         Action: Export the framework again or fix the scaleconfiguration column
//	IMP003 - Cycle: Competencies reference each other as parents
//	         Action: Fix the parentidnumber values named in the error
//	IMP004 - Multiple frameworks: More than one row is marked as a framework
//	         Action: Keep a single row with isframework set
//	IMP005 - Duplicate idnumber: Two competencies share an idnumber
//	         Action: Give every competency a unique idnumber
//	IMP006 - Rule migration: A rule refers to a competency that was not imported
//	         Action: Check the ruleconfig ids against the exportid column
//	IMP007 - Import failed: The framework was only partly saved
//	         Action: Remove the partial framework and import again
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: Import session not found
//	SES002 - System busy: Too many imports in progress
//	SES003 - Request cancelled
//	SES004 - Request timeout
//
// # Request Errors
//
//	FRM001 - Framework not found
//	MAP001 - Unknown mapping field
//	FILE001 - File too large
//	FILE002 - No file
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate value        Patterns: "duplicate key", "unique constraint", "already exists"
//	DB002 - Missing reference      Patterns: "foreign key"
//	DB003 - Connection refused     Patterns: "connection refused"
//	DB004 - Database busy          Patterns: "deadlock", "database is locked"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should look up the technical
// error in the logs by request id.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
	Status  int    `json:"status"`  // HTTP status for the web layer
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is checked in order, so wrapping errors must come before
// the errors they may wrap.
var sentinelMessages = []sentinelMessage{
	{competency.ErrMalformedScaleConfig, UserMessage{
		Message: "A scale configuration is not valid",
		Action:  "Export the framework again or fix the scaleconfiguration column",
		Code:    "IMP002",
		Status:  http.StatusUnprocessableEntity,
	}},
	{competency.ErrCyclicReference, UserMessage{
		Message: "Competencies reference each other as parents",
		Action:  "Fix the parentidnumber values named in the error",
		Code:    "IMP003",
		Status:  http.StatusUnprocessableEntity,
	}},
	{competency.ErrMultipleFrameworks, UserMessage{
		Message: "More than one row is marked as a framework",
		Action:  "Keep a single row with isframework set",
		Code:    "IMP004",
		Status:  http.StatusUnprocessableEntity,
	}},
	{competency.ErrDuplicateIDNumber, UserMessage{
		Message: "Two competencies share an idnumber",
		Action:  "Give every competency a unique idnumber",
		Code:    "IMP005",
		Status:  http.StatusUnprocessableEntity,
	}},
	{competency.ErrRuleMigration, UserMessage{
		Message: "A rule refers to a competency that was not imported",
		Action:  "Check the ruleconfig ids against the exportid column",
		Code:    "IMP006",
		Status:  http.StatusUnprocessableEntity,
	}},
	{competency.ErrImportFailed, UserMessage{
		Message: "The framework was only partly saved",
		Action:  "Remove the partial framework and import again",
		Code:    "IMP007",
		Status:  http.StatusInternalServerError,
	}},
	{competency.ErrInvalidImportFile, UserMessage{
		Message: "The file is not a competency framework CSV",
		Action:  "Check the delimiter and encoding, and that one row has isframework set",
		Code:    "IMP001",
		Status:  http.StatusBadRequest,
	}},
	{ErrSessionNotFound, UserMessage{
		Message: "Import session not found",
		Action:  "The session may have expired. Please upload the file again",
		Code:    "SES001",
		Status:  http.StatusNotFound,
	}},
	{ErrTooManyImports, UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "SES002",
		Status:  http.StatusServiceUnavailable,
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "SES003",
		Status:  http.StatusRequestTimeout,
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "SES004",
		Status:  http.StatusGatewayTimeout,
	}},
	{competency.ErrUnknownFramework, UserMessage{
		Message: "Framework not found",
		Action:  "Check the framework id",
		Code:    "FRM001",
		Status:  http.StatusNotFound,
	}},
	{competency.ErrUnknownMapping, UserMessage{
		Message: "The column mapping names an unknown field",
		Action:  "Use the field names listed by /api/headers",
		Code:    "MAP001",
		Status:  http.StatusBadRequest,
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum size",
		Action:  "Split the framework into smaller files",
		Code:    "FILE001",
		Status:  http.StatusRequestEntityTooLarge,
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to import",
		Code:    "FILE002",
		Status:  http.StatusBadRequest,
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var dbDuplicate = UserMessage{
	Message: "A record with this value already exists",
	Action:  "Check for a framework or competency with the same idnumber",
	Code:    "DB001",
	Status:  http.StatusConflict,
}

// errorPatterns are matched case-insensitively with strings.Contains; the
// first match wins.
var errorPatterns = []errorPattern{
	{"duplicate key", dbDuplicate},
	{"unique constraint", dbDuplicate},
	{"already exists", dbDuplicate},
	{"foreign key", UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Import the parent framework first",
		Code:    "DB002",
		Status:  http.StatusConflict,
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB003",
		Status:  http.StatusServiceUnavailable,
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB004",
		Status:  http.StatusServiceUnavailable,
	}},
	{"database is locked", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB004",
		Status:  http.StatusServiceUnavailable,
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("row 4: %w", competency.ErrCyclicReference))
//	// msg.Code == "IMP003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message. Error returns the
// user message; Unwrap returns the technical error for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
