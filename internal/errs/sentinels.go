// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrHasDependents indicates a school still has alunos or turmas attached.
	ErrHasDependents = errors.New("school has dependent records")
)
