package core

import "errors"

// Errors
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrNilArgument     = errors.New("nil argument")
	ErrDuplicateID     = errors.New("duplicate identifier")
	ErrNotRegistered   = errors.New("strategy not registered")
)
