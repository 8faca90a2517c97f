package core

import "errors"

// Error codes carried by room_error replies.
const (
	ErrCodeRoomExists   = "ROOM_EXISTS"
	ErrCodeRoomNotFound = "ROOM_NOT_FOUND"
	ErrCodeRoomFull     = "ROOM_FULL"
	ErrCodeBadRoomID    = "BAD_ROOM_ID"

	// Protocol-level codes, produced by the transport before a command reaches the hub.
	ErrCodeBadPayload   = "BAD_PAYLOAD"
	ErrCodeUnknownEvent = "UNKNOWN_EVENT"
	ErrCodeRateLimited  = "RATE_LIMITED"

	ErrCodeServerError = "SERVER_ERROR"
)

var (
	ErrRoomExists   = coreError(ErrCodeRoomExists, "Room already exists.")
	ErrRoomNotFound = coreError(ErrCodeRoomNotFound, "Room not found.")
	ErrRoomFull     = coreError(ErrCodeRoomFull, "Room is full.")
	ErrBadRoomID    = coreError(ErrCodeBadRoomID, "Room codes must be 4-8 alphanumeric characters.")
	ErrServer       = coreError(ErrCodeServerError, "An unexpected server error occurred.")
	ErrBadPayload   = coreError(ErrCodeBadPayload, "Invalid JSON payload.")
	ErrRateLimited  = coreError(ErrCodeRateLimited, "Too many messages, slow down.")

	errHubStopped = errors.New("hub stopped")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is matches any CoreError with the same code.
func (e *CoreError) Is(target error) bool {
	other, ok := target.(*CoreError)
	return ok && other.Code == e.Code
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// NewError builds a CoreError for codes that have no package-level sentinel.
func NewError(code, msg string) *CoreError {
	return coreError(code, msg)
}
