package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
	ErrValidation         = errors.New("VALIDATION_ERROR")
	ErrDesignNotFound     = errors.New("DESIGN_NOT_FOUND")
	ErrProductNotFound    = errors.New("PRODUCT_NOT_FOUND")
	ErrJobNotFound        = errors.New("JOB_NOT_FOUND")
	ErrSyncFailed         = errors.New("SYNC_FAILED")
	ErrSyncInProgress     = errors.New("SYNC_IN_PROGRESS")
	ErrUnknownSequence    = errors.New("UNKNOWN_SEQUENCE")
	ErrSequenceContention = errors.New("SEQUENCE_CONTENTION")
)
