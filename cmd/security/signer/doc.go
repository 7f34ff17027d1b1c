// Package signer issues claim tokens: short-lived, single-purpose capability
// assertions over (drop, claimer, score, timestamp).
//
// It is the single source of truth for backend claim signing.
//
// Design goals:
// - The keypair loads once at startup and is read-only afterwards; concurrent
//   issuance needs no coordination.
// - A token is meaningless on its own: the program re-derives the identical
//   message and checks the signature against its pinned backend public key
//   within a freshness window measured from Timestamp.
// - Fail-fast: constructing a Signer without the secret is an error, never a
//   silent bypass.
//
// Environment:
// - FAIRDROP_BACKEND_KEYPAIR: base58-encoded 64-byte ed25519 secret key.
package signer
