package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates the normalized email is already registered.
	ErrDuplicateEmail = errors.New("repository: email already registered")
	// ErrInvalidArgument indicates the store rejected the write.
	ErrInvalidArgument = errors.New("repository: invalid argument")
)
