package nioerrors

import "errors"

var (
	ErrAlreadyRegistered = errors.New("file descriptor already registered")
	ErrInvalidTimeout    = errors.New("timeout must not be negative")
	ErrSelectorClosed    = errors.New("selector is closed")
	ErrSelectorBusy      = errors.New("a wait cycle is already running on this selector")
	ErrMonitorClosed     = errors.New("monitor is closed") // its handle was deregistered
)
