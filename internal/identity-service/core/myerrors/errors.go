package myerrors

import "errors"

var (
	ErrIdentityNotFound  = errors.New("driver identity not found")
	ErrInvalidResult     = errors.New("invalid registration result")
	ErrInvalidRequest    = errors.New("invalid registration request")
	ErrDuplicateUsername = errors.New("username is already registered")

	ErrDBConnClosedMsg = errors.New("internal error, please try again later")
)
