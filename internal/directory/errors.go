package directory

import "errors"

var (
	// ErrMemberNotFound is returned when a client is not a member of a group.
	ErrMemberNotFound = errors.New("group member not found")
	// ErrDisabled is returned when the directory is not configured.
	ErrDisabled = errors.New("directory is disabled")
)
