package models

import "errors"

// Domain errors that can be returned by repositories
var (
	// ErrDuplicateSubmission indicates a correlation record already exists
	// for the (mode, submission) pair
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrNotFound indicates the requested entity was not found
	ErrNotFound = errors.New("not found")
)
