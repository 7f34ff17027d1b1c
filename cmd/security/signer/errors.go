package signer

import "errors"

// Public, stable errors for callers.
var (
	ErrKeypairMissing = errors.New("signer: backend keypair missing")
	ErrKeypairInvalid = errors.New("signer: backend keypair invalid")
)
