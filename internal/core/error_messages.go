package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Sentinel errors are matched with errors.Is first; anything
// else falls through to case-insensitive substring patterns.
//
//	DICT001 entry not found          DICT002 term too long
//	DICT003 empty source             DICT004 missing user
//	DICT005 missing project/language
//	DB001   connection refused       DB002   connection reset
//	DB003   timeout                  DB004   deadlock
//	FILE001 file too large           FILE002 unknown format
//	FILE003 invalid file content     FILE004 no file provided
//	UPL001  too many uploads         UPL002  upload cancelled
//	UPL003  upload timed out         RATE001 rate limited
//	ERR000  anything else

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/glossary/internal/format"
)

var (
	// ErrNotFound is returned when an entry does not exist in the scope.
	ErrNotFound = errors.New("dictionary entry not found")
	// ErrTooLong is returned when a term exceeds MaxTermLength.
	ErrTooLong = fmt.Errorf("term longer than %d characters", MaxTermLength)
	// ErrEmptySource is returned when creating or editing with no source.
	ErrEmptySource = errors.New("source term is empty")
	// ErrNoActor is returned when a mutation has no authenticated user.
	ErrNoActor = errors.New("no authenticated user")
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnknownFormat is returned when an upload's format is not supported.
	ErrUnknownFormat = format.ErrUnknownFormat
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrNotFound, UserMessage{"Dictionary entry not found", "Reload the glossary and try again", "DICT001"}},
	{ErrTooLong, UserMessage{"Term is too long", fmt.Sprintf("Keep source and target under %d characters", MaxTermLength+1), "DICT002"}},
	{ErrEmptySource, UserMessage{"Source term is empty", "Enter the source term", "DICT003"}},
	{ErrNoActor, UserMessage{"You are not signed in", "Sign in and repeat the operation", "DICT004"}},
	{ErrInvalidScope, UserMessage{"Project or language is missing", "Choose a project and a language", "DICT005"}},
	{ErrFileTooLarge, UserMessage{"File exceeds maximum size limit", "Split the glossary into smaller files", "FILE001"}},
	{ErrUnknownFormat, UserMessage{"Unsupported file format", "Upload a CSV, JSON, YAML or PO file", "FILE002"}},
	{ErrTooManyUploads, UserMessage{"Too many uploads in progress", "Wait a moment and try again", "UPL001"}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched in order; specific patterns come first.
var errorPatterns = []errorPattern{
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB001"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB002"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB004"}},
	{"context canceled", UserMessage{"Upload was cancelled", "Start the upload again if needed", "UPL002"}},
	{"context deadline exceeded", UserMessage{"Upload took too long", "Try uploading a smaller file", "UPL003"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB003"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma, semicolon or tab separated", "FILE003"}},
	{"invalid json", UserMessage{"File is not valid JSON", "Check the file for syntax errors", "FILE003"}},
	{"invalid yaml", UserMessage{"File is not valid YAML", "Check the file for syntax errors", "FILE003"}},
	{"invalid po", UserMessage{"File is not a valid gettext catalogue", "Check the file for syntax errors", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Select a glossary file to upload", "FILE004"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
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
