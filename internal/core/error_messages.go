package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// When users encounter errors, they can quote the error code to support
// staff for faster diagnosis. Codes are grouped by category:
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Matcher profile: The matcher profile for individuals is missing or unknown
//	         Action: Set GMV_XCM_PROFILE_INDIVIDUALS to default, email or name_birth
//	CFG002 - Structure: The target database is missing a required structure
//	         Action: Check the run log for the missing type or option list
//	CFG003 - Invalid configuration: The configuration is invalid
//	         Action: Check the environment variables listed in the error
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Folder not found: The import folder does not exist
//	         Action: Check the folder name below the base folder
//	SRC002 - Invalid folder: The folder name is not allowed
//	         Action: Use the plain name of a folder below the base folder
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Run in progress: Another import is running
//	         Action: Wait for it to finish and try again
//	RUN002 - Run not found: No run with this id exists
//	         Action: List the runs to find the right id
//	RUN003 - Cancelled: The import was cancelled before it finished
//	         Action: Start the import again
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to the target database
//	DB002 - Connection reset: The database connection was interrupted
//	DB003 - Timeout: The database did not answer in time
//	DB004 - Access denied: The database rejected the credentials
//	DB005 - Ambiguous identity: An external id is tracked for several contacts
//	DB006 - Unknown field: The target database lacks a field the import writes
//
// ERR000 is the fallback for everything else.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/gmvsync/internal/reconcile"
	"github.com/JonMunkholm/gmvsync/internal/store"
)

// UserMessage contains user-friendly error information.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorRule matches an error by sentinel, by text, or by both.
type errorRule struct {
	target  error
	pattern string
	msg     UserMessage
}

func (r errorRule) matches(err error, text string) bool {
	if r.target != nil && !errors.Is(err, r.target) {
		return false
	}
	return r.pattern == "" || strings.Contains(text, r.pattern)
}

// errorRules are checked in order; the first match wins.
var errorRules = []errorRule{
	{reconcile.ErrStructural, "matcher profile", UserMessage{
		Message: "The matcher profile for individuals is missing or unknown",
		Action:  "Set GMV_XCM_PROFILE_INDIVIDUALS to default, email or name_birth",
		Code:    "CFG001",
	}},
	{nil, "gmv_xcm_profile_individuals", UserMessage{
		Message: "The matcher profile for individuals is missing or unknown",
		Action:  "Set GMV_XCM_PROFILE_INDIVIDUALS to default, email or name_birth",
		Code:    "CFG001",
	}},
	{reconcile.ErrStructural, "", UserMessage{
		Message: "The target database is missing a required structure",
		Action:  "Check the run log for the missing type or option list",
		Code:    "CFG002",
	}},
	{nil, "config validation", UserMessage{
		Message: "The configuration is invalid",
		Action:  "Check the environment variables listed in the error",
		Code:    "CFG003",
	}},
	{reconcile.ErrFolderNotFound, "", UserMessage{
		Message: "The import folder does not exist",
		Action:  "Check the folder name below the base folder",
		Code:    "SRC001",
	}},
	{ErrInvalidFolder, "", UserMessage{
		Message: "The folder name is not allowed",
		Action:  "Use the plain name of a folder below the base folder",
		Code:    "SRC002",
	}},
	{ErrRunInProgress, "", UserMessage{
		Message: "Another import is running",
		Action:  "Wait for it to finish and try again",
		Code:    "RUN001",
	}},
	{ErrRunNotFound, "", UserMessage{
		Message: "No run with this id exists",
		Action:  "List the runs to find the right id",
		Code:    "RUN002",
	}},
	{context.Canceled, "", UserMessage{
		Message: "The import was cancelled before it finished",
		Action:  "Start the import again",
		Code:    "RUN003",
	}},
	{nil, "connection refused", UserMessage{
		Message: "Unable to connect to the target database",
		Action:  "Check DATABASE_URL and that the database is running",
		Code:    "DB001",
	}},
	{nil, "connection reset", UserMessage{
		Message: "The database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB002",
	}},
	{context.DeadlineExceeded, "", UserMessage{
		Message: "The database did not answer in time",
		Action:  "Try again later",
		Code:    "DB003",
	}},
	{nil, "timeout", UserMessage{
		Message: "The database did not answer in time",
		Action:  "Try again later",
		Code:    "DB003",
	}},
	{nil, "access denied", UserMessage{
		Message: "The database rejected the credentials",
		Action:  "Check the user and password in DATABASE_URL",
		Code:    "DB004",
	}},
	{nil, "authentication failed", UserMessage{
		Message: "The database rejected the credentials",
		Action:  "Check the user and password in DATABASE_URL",
		Code:    "DB004",
	}},
	{store.ErrAmbiguous, "", UserMessage{
		Message: "An external id is tracked for several contacts",
		Action:  "Merge the duplicate contacts and run the import again",
		Code:    "DB005",
	}},
	{store.ErrUnknownField, "", UserMessage{
		Message: "The target database lacks a field the import writes",
		Action:  "Install the GMV custom fields in the target database",
		Code:    "DB006",
	}},
}

// defaultMessage is returned when no specific rule matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the run log or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage if err is nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	text := strings.ToLower(err.Error())
	for _, r := range errorRules {
		if r.matches(err, text) {
			return r.msg
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
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
