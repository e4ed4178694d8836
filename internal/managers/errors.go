package managers

import "errors"

var (
	// ErrInvalidToken covers every failure of the expiring token codec: wrong key, tampering,
	// malformed payload and expiry all collapse into this one error.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrExpiredToken is returned by the claims codec for a correctly signed but expired token.
	ErrExpiredToken = errors.New("token is expired")

	// ErrInvalidSignature is returned by the claims codec for any other verification failure.
	ErrInvalidSignature = errors.New("token signature is invalid")
)
