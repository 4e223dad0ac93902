package models

import "errors"

// Sentinel errors shared by the chat service and the realtime gateway so
// both surfaces report the same error taxonomy.
var (
	// ErrForbidden marks a caller that is not allowed to touch the
	// conversation (not a participant, or the mutual-follow gate failed).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks an unknown conversation id.
	ErrNotFound = errors.New("not found")
)
