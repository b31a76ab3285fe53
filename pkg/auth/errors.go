// Package auth supplies bearer tokens to hld clients.
package auth

import "errors"

// Sentinel errors returned by token sources.
var (
	// ErrMissingToken indicates no token was configured.
	ErrMissingToken = errors.New("missing authentication token")

	// ErrInvalidToken indicates the token is malformed or has an invalid signature.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("token has expired")

	// ErrUnsupportedAlgorithm indicates the token uses a signing algorithm the
	// source cannot verify.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)
