package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidLineRange = errors.New("invalid line range")
	ErrMissingFilePath  = errors.New("file path is required")
	ErrUnknownOutcome   = errors.New("unknown search outcome")
)
