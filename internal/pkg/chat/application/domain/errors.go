package chat

import "errors"

// Domain-level errors. Use cases wrap these with context; controllers map them
// to HTTP statuses with errors.Is.
var (
	ErrValidation = errors.New("chat: validation failed")
	ErrNotFound   = errors.New("chat: not found")
	ErrDuplicate  = errors.New("chat: duplicate message")
)
