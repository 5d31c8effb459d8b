package store

import "errors"

var (
	ErrNotFound            = errors.New("store: not found")
	ErrDuplicateKey        = errors.New("store: duplicate key")
	ErrInsufficientBalance = errors.New("store: balance would go negative")
	ErrConflict            = errors.New("store: concurrent state change")
	ErrTransient           = errors.New("store: transient failure")
)
