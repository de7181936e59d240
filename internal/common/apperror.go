package common

import (
	"errors"
	"fmt"
)

// Code classifies an AppError for presentation.
type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeNetwork     Code = "NETWORK_ERROR"
	CodeApplication Code = "APPLICATION_ERROR"
	CodeReplay      Code = "REPLAY_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodeInternal    Code = "INTERNAL_ERROR"
)

// AppError is the structured {code, message} result surfaced to callers.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError wrapping err.
func NewAppError(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}
