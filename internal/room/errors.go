package room

import "errors"

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchFull     = errors.New("match is full")
)
