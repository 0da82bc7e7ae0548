package cli

import "errors"

var (
	ErrUsage          = errors.New("cli: usage")
	ErrUnknownCommand = errors.New("cli: unknown command")
	ErrUnknownStorage = errors.New("cli: unknown storage backend")
	ErrNotLoggedIn    = errors.New("cli: not logged in")
	ErrInvalidID      = errors.New("cli: invalid product id")
)
