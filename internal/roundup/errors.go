package roundup

import "errors"

var (
	// ErrRequestNotFound is returned by a Ledger when no record matches.
	ErrRequestNotFound = errors.New("round-up request not found")
	// ErrRequestExists is returned by Save when the week already has a record that is not FAILED.
	ErrRequestExists = errors.New("round-up request already exists")
	// ErrDispatchRejected means the worker pool refused the job; the record was marked FAILED.
	ErrDispatchRejected = errors.New("round-up could not be scheduled")
	// ErrInvalidWeek is returned for week dates that are not a Monday.
	ErrInvalidWeek = errors.New("weekCommencing must be a Monday in YYYY-MM-DD format")
)
