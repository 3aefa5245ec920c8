package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a dataset partition does not exist.
	ErrNotFound = errors.New("dataset not found")

	// ErrLockNotHeld is returned when a mutation is attempted without a
	// token covering the dataset.
	ErrLockNotHeld = errors.New("dataset lock not held")

	// ErrSubjectOwned is returned when a replacement graph claims subjects
	// that belong to another dataset.
	ErrSubjectOwned = errors.New("subject owned by another dataset")
)
