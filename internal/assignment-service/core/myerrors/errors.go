package myerrors

import "errors"

var (
	ErrActiveAssignmentExists = errors.New("an active assignment already exists for this order")
	ErrAssignmentNotFound     = errors.New("assignment not found")
	ErrNotCandidate           = errors.New("driver is not a candidate of this assignment")
	ErrInvalidDecision        = errors.New("decision must be ACCEPTED or REJECTED")
	ErrCannotCancel           = errors.New("assignment is not cancellable in its current state")
	ErrOrderNotFound          = errors.New("order not found")
	ErrDirectoryUnavailable   = errors.New("driver directory is unavailable")
	ErrOrderServiceDown       = errors.New("order service is unavailable")
	ErrDriverNotConnected     = errors.New("driver is not connected")

	ErrDBConnClosedMsg = errors.New("internal error, please try again later")
)
