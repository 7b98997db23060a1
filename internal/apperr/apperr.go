// Package apperr defines the machine-readable business errors surfaced to
// clients. Each error carries a stable code and an HTTP status; handlers write
// them as {"code": ..., "message": ...}.
package apperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches on the code so that WithMessage copies still compare equal to
// their base error.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	clone := *e
	clone.Message = msg
	return &clone
}

var (
	// 400
	ErrInvalidRequest      = &Error{Status: http.StatusBadRequest, Code: "C001", Message: "invalid request"}
	ErrAlreadyAnswered     = &Error{Status: http.StatusBadRequest, Code: "C002", Message: "you already answered this question"}
	ErrUserExists          = &Error{Status: http.StatusBadRequest, Code: "C003", Message: "a user with this email already exists"}
	ErrInvalidPassword     = &Error{Status: http.StatusBadRequest, Code: "C004", Message: "password does not match"}
	ErrAlreadyParticipated = &Error{Status: http.StatusBadRequest, Code: "G001", Message: "you already participated in this game"}

	// 401 / 403
	ErrUnauthorized = &Error{Status: http.StatusUnauthorized, Code: "A001", Message: "authentication required"}
	ErrForbidden    = &Error{Status: http.StatusForbidden, Code: "C006", Message: "you do not have access to this resource"}

	// 404
	ErrUserNotFound     = &Error{Status: http.StatusNotFound, Code: "C005", Message: "user not found"}
	ErrQuestionNotFound = &Error{Status: http.StatusNotFound, Code: "Q001", Message: "question not found"}
	ErrGameNotFound     = &Error{Status: http.StatusNotFound, Code: "G002", Message: "no active game found"}
	ErrScheduleNotFound = &Error{Status: http.StatusNotFound, Code: "S001", Message: "schedule not found"}

	// 500
	ErrInternal = &Error{Status: http.StatusInternalServerError, Code: "E999", Message: "internal server error"}
)
