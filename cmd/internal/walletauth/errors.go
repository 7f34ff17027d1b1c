package walletauth

import "errors"

var (
	// ErrNoWallet is returned when an operation needs a connected wallet.
	ErrNoWallet = errors.New("walletauth: no wallet connected")

	// ErrWalletChanged is returned when a signature arrives for a wallet
	// that is no longer the active one. The result is discarded.
	ErrWalletChanged = errors.New("walletauth: wallet changed during signing")
)
