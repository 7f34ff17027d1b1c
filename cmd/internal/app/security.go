package app

import (
	"errors"
	"fmt"

	"fairdrop/cmd/security/signer"
)

// ValidateSecurityConfig enforces FairDrop's security policy at startup.
//
// Fail-fast is intentional: a server that boots without the backend keypair
// cannot issue claim tokens, and discovering that on the first request instead
// of at deploy time is unacceptable. Enforcement is end-to-end by loading the
// same module that signs tokens (security/signer).
func ValidateSecurityConfig(cfg Config) error {
	if _, err := signer.NewFromEnv(); err != nil {
		switch {
		case errors.Is(err, signer.ErrKeypairMissing):
			return fmt.Errorf("security policy: %s is not set", signer.KeypairEnvKey)
		case errors.Is(err, signer.ErrKeypairInvalid):
			return fmt.Errorf("security policy: %s is not a base58 64-byte ed25519 secret key", signer.KeypairEnvKey)
		default:
			return err
		}
	}

	if cfg.ProgramID == "" {
		return errors.New("security policy: FAIRDROP_PROGRAM_ID is not set")
	}

	return nil
}
