package siws

import "errors"

// Public, stable errors for callers. Expired is deliberately distinct from
// invalid so clients can trigger automatic re-authentication.
var (
	ErrInvalidAddress         = errors.New("siws: invalid wallet address")
	ErrInvalidIssuedAt        = errors.New("siws: invalid issued-at timestamp")
	ErrInvalidSignatureFormat = errors.New("siws: invalid signature encoding")
	ErrInvalidSignature       = errors.New("siws: signature verification failed")
	ErrExpired                = errors.New("siws: signature expired")
)
