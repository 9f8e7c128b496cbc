package core

// error_messages.go maps technical errors to messages a user can act on.
//
// Every message carries a code users can quote when asking for help:
//
//	FILE001  file exceeds the upload size limit
//	FILE002  CSV could not be read
//	FILE003  file content does not match its extension
//	FILE004  no file in the request
//	FILE005  file has no header row
//	FILE006  extension other than .csv or .xlsx
//	FILE007  more files than one upload allows
//	FORM001  email address is not valid
//	COL001   selected column does not exist
//	CNV001   conversion target other than CSV or Excel
//	SES001   session expired or never existed
//	SES002   file id not part of the session
//	SES003   download requested before any export
//	JOB001   every pipeline slot is busy
//	JOB002   request cancelled
//	JOB003   request timed out
//	RATE001  client exceeded its request rate
//	AUTH001  API request without a key
//	AUTH002  API key not recognized
//	ERR000   anything else; check the logs for the technical error
//
// Sentinel errors are matched first with errors.Is. Errors that only exist as
// text (net/http, multipart) fall back to case-insensitive substring patterns,
// where the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sweeper/internal/dataset"
	"github.com/JonMunkholm/sweeper/internal/export"
	"github.com/JonMunkholm/sweeper/internal/ingest"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller parts",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Check for unbalanced quotes and save the file as comma-separated UTF-8",
		Code:    "FILE002",
	}
	msgMalformed = UserMessage{
		Message: "File could not be read",
		Action:  "Make sure the file content matches its extension and every row fits the header",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Choose one or more .csv or .xlsx files",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a file with a header row",
		Code:    "FILE005",
	}
	msgUnsupported = UserMessage{
		Message: "Unsupported file type",
		Action:  "Only .csv and .xlsx files are accepted",
		Code:    "FILE006",
	}
	msgTooManyFiles = UserMessage{
		Message: "Too many files in one upload",
		Action:  "Upload fewer files at a time",
		Code:    "FILE007",
	}
	msgInvalidEmail = UserMessage{
		Message: "Email address is not valid",
		Action:  "Correct the email or leave it empty",
		Code:    "FORM001",
	}
	msgUnknownColumn = UserMessage{
		Message: "Selected column does not exist",
		Action:  "Pick columns from the list shown for this file",
		Code:    "COL001",
	}
	msgUnknownTarget = UserMessage{
		Message: "Unknown conversion target",
		Action:  "Choose CSV or Excel",
		Code:    "CNV001",
	}
	msgSessionNotFound = UserMessage{
		Message: "Session not found",
		Action:  "The session may have expired. Upload your files again",
		Code:    "SES001",
	}
	msgFileNotFound = UserMessage{
		Message: "File not found in this session",
		Action:  "Go back to the session page and pick a listed file",
		Code:    "SES002",
	}
	msgNoArtifact = UserMessage{
		Message: "Nothing to download yet",
		Action:  "Choose a conversion target and process the file first",
		Code:    "SES003",
	}
	msgTooManyJobs = UserMessage{
		Message: "System is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "JOB001",
	}
	msgCanceled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "JOB002",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or fewer files per request",
		Code:    "JOB003",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
	msgMissingAPIKey = UserMessage{
		Message: "API key required",
		Action:  "Send your key in the X-API-Key header",
		Code:    "AUTH001",
	}
	msgInvalidAPIKey = UserMessage{
		Message: "API key not accepted",
		Action:  "Check the key with your administrator",
		Code:    "AUTH002",
	}
)

type errorSentinel struct {
	err error
	msg UserMessage
}

// errorSentinels is checked in order. CSV reader errors also match
// ErrMalformedFile, so ErrInvalidCSV comes first.
var errorSentinels = []errorSentinel{
	{ingest.ErrInvalidCSV, msgInvalidCSV},
	{ingest.ErrMalformedFile, msgMalformed},
	{ingest.ErrUnsupportedFormat, msgUnsupported},
	{ingest.ErrFileTooLarge, msgFileTooLarge},
	{ingest.ErrEmptyFile, msgEmptyFile},
	{dataset.ErrUnknownColumn, msgUnknownColumn},
	{export.ErrUnknownTarget, msgUnknownTarget},
	{ErrSessionNotFound, msgSessionNotFound},
	{ErrFileNotFound, msgFileNotFound},
	{ErrNoArtifact, msgNoArtifact},
	{ErrTooManyJobs, msgTooManyJobs},
	{context.Canceled, msgCanceled},
	{context.DeadlineExceeded, msgDeadline},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"request body too large", msgFileTooLarge},
	{"file too large", msgFileTooLarge},
	{"no file provided", msgNoFile},
	{"no such file", msgNoFile},
	{"too many files", msgTooManyFiles},
	{"invalid email", msgInvalidEmail},
	{"rate limit", msgRateLimited},
	{"missing api key", msgMissingAPIKey},
	{"invalid api key", msgInvalidAPIKey},
	{"context canceled", msgCanceled},
	{"context deadline exceeded", msgDeadline},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range errorSentinels {
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

// FormatUserError renders "Message (Code: XXX). Action".
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
