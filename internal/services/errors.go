package services

import "errors"

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVirtualTransaction rejects attempts to store a derived recurring
	// occurrence as if it were a real transaction.
	ErrVirtualTransaction = errors.New("recurring occurrences are derived and cannot be saved")

	// ErrDeleteVirtual rejects deleting a single recurring occurrence.
	ErrDeleteVirtual = errors.New("this transaction comes from a recurring rule; delete or edit the rule instead")
)
