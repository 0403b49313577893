package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrDuplicateRequest   = errors.New("request already queued or processed")
	ErrScheduleNotFuture  = errors.New("scheduled time must be in the future")
	ErrStatusClaimHeld    = errors.New("status record claim is held by another caller")
	ErrUserDenied         = errors.New("user is not allowed")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid query execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrNotLeader          = errors.New("scheduler leadership is held by another instance")
)
