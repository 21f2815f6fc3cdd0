package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidTime     = errors.New("invalid time")
	ErrNotArchived     = errors.New("task is not archived")
)
