package internal

import "errors"

var (
	ErrTimeout = errors.New("operation timed out")
	ErrClosed  = errors.New("poller is closed")
)
