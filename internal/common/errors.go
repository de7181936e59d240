// Package common defines shared sentinel errors and the coded application
// error returned to the use-case layer. Callers should use errors.Is to match
// the sentinels and errors.As to extract an *AppError.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Sync errors.
	ErrReplayInProgress = errors.New("replay already in progress")
	ErrSyncRejected     = errors.New("sync rejected by server")
	ErrNotFailed        = errors.New("entity is not in failed state")

	// Store errors.
	ErrInvalidTableName = errors.New("invalid table name")
)
