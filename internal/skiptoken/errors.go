package skiptoken

import "errors"

var (
	// ErrTokenNotFound is returned when no token exists for a code.
	ErrTokenNotFound = errors.New("skip token not found")
	// ErrTokenConsumed is returned when a token has already been used.
	ErrTokenConsumed = errors.New("skip token already consumed")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("skip token expired")
	// ErrInvalidCode is returned when a code fails format validation.
	ErrInvalidCode = errors.New("invalid skip token code")
)
