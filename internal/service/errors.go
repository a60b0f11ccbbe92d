package service

import (
	"errors"
	"fmt"
)

var (
	// ErrTooManyActiveJobs is returned when the admission ceiling is reached.
	ErrTooManyActiveJobs = fmt.Errorf("too many active jobs: at most %d jobs may be pending or running", MaxActiveJobs)

	ErrJobNotFound      = errors.New("research job not found")
	ErrPromptNotFound   = errors.New("prompt template not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrStockNotFound    = errors.New("stock not found")

	// ErrInvalidTransition is returned when an operation is requested from a
	// status it is not valid in.
	ErrInvalidTransition = errors.New("operation not allowed in current job status")

	// ErrDeleteNonTerminal guards deletion of pending or running jobs.
	ErrDeleteNonTerminal = errors.New("job must be cancelled or finished before deletion")

	ErrUnknownProvider = errors.New("unknown research provider")

	// ErrInvalidScheduleSpec wraps cron-expression and timezone validation
	// failures on schedule writes.
	ErrInvalidScheduleSpec = errors.New("invalid schedule specification")
)
