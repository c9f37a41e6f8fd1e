package auth

import "errors"

// Token validation errors. The API maps ErrExpiredToken to its own message
// and every other error to a generic "Invalid token".
var (
	ErrMissingToken     = errors.New("authentication token is missing")
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrWrongTokenType is returned for a well-signed token whose type claim
	// is not AccessTokenType.
	ErrWrongTokenType = errors.New("wrong token type")
)
