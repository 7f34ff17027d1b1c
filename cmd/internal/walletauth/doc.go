// Package walletauth is the client half of sign-in-with-Solana: a per-wallet
// session state machine with a cached proof, automatic re-sign on
// server-reported expiry, and discard of signatures that finish after the
// active wallet has changed.
package walletauth
