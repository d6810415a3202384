package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrFormNotFound is returned when the document has no element with the
	// configured form id.
	ErrFormNotFound = errors.New("tui: form not found")
)
