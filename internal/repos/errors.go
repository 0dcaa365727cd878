package repos

import "errors"

var (
	// ErrDuplicateGenerationJob means a live generation already exists for
	// the (query fingerprint, job) pair.
	ErrDuplicateGenerationJob = errors.New("duplicate generation job")
	// ErrUserAtLimit means the user already has the maximum number of
	// in-flight generations.
	ErrUserAtLimit = errors.New("user at generation limit")
)
