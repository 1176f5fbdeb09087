// Package apperr defines the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds. Match with errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrNotFound           = errors.New("not found")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrUpload             = errors.New("upload error")
	ErrInternal           = errors.New("internal error")
)

// Error carries a kind, a client-safe message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) error         { return New(ErrValidation, message) }
func Conflict(message string) error           { return New(ErrConflict, message) }
func Unauthenticated(message string) error    { return New(ErrUnauthenticated, message) }
func InvalidCredentials(message string) error { return New(ErrInvalidCredentials, message) }
func InvalidToken(message string) error       { return New(ErrInvalidToken, message) }
func TokenExpired(message string) error       { return New(ErrTokenExpired, message) }
func NotFound(message string) error           { return New(ErrNotFound, message) }
func TooManyAttempts(message string) error    { return New(ErrTooManyAttempts, message) }

func Upload(message string, err error) error   { return Wrap(ErrUpload, message, err) }
func Internal(message string, err error) error { return Wrap(ErrInternal, message, err) }

type kindInfo struct {
	kind    error
	status  int
	code    string
	message string
}

var kinds = []kindInfo{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request"},
	{ErrConflict, http.StatusConflict, "CONFLICT", "Resource already exists"},
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED", "Unauthorized request"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid user credentials"},
	{ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token"},
	{ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token is expired or used"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	{ErrTooManyAttempts, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many attempts, try again later"},
	{ErrUpload, http.StatusInternalServerError, "UPLOAD_ERROR", "File upload failed"},
}

var internalInfo = kindInfo{ErrInternal, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong"}

func lookup(err error) kindInfo {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k
		}
	}
	return internalInfo
}

// Describe maps err to an HTTP status, a stable code and a message that is
// safe to show to clients. Errors outside the taxonomy become INTERNAL_ERROR
// with a generic message.
func Describe(err error) (status int, code, message string) {
	info := lookup(err)
	message = info.message
	var e *Error
	if info.kind != ErrInternal && errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	return info.status, info.code, message
}

// Code returns the stable code for err, "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	return lookup(err).code
}
