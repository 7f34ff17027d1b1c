package slug

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const (
	// SlugLen is the length of a generated URL-safe slug.
	SlugLen = 12

	// slugRandomBytes base64url-encodes to exactly SlugLen characters.
	slugRandomBytes = 9

	// maxGenerateAttempts bounds collision retries. With 72 random bits a
	// collision means something is wrong, not that we should loop forever.
	maxGenerateAttempts = 5
)

// ErrGenerateExhausted is returned when every generation attempt collided.
var ErrGenerateExhausted = errors.New("slug: could not generate a unique slug")

// Service creates and resolves slug bindings on top of a Store.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("slug: nil store")
	}
	return &Service{store: store}, nil
}

// Generate returns a fresh random URL-safe slug.
func Generate() (string, error) {
	b := make([]byte, slugRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:SlugLen], nil
}

// Create generates a unique slug for the drop and persists the bidirectional
// mapping. Ownership of the drop must already be verified by the caller.
func (s *Service) Create(ctx context.Context, dropAddress, creator string) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		candidate, err := Generate()
		if err != nil {
			return "", err
		}

		_, err = s.store.Resolve(ctx, candidate)
		switch {
		case err == nil:
			continue // taken, try again
		case !errors.Is(err, ErrNotFound):
			return "", err
		}

		err = s.store.Save(ctx, Mapping{Slug: candidate, DropAddress: dropAddress, Creator: creator})
		switch {
		case err == nil:
			return candidate, nil
		case errors.Is(err, ErrExists):
			continue // lost a race, try again
		default:
			return "", err
		}
	}
	return "", ErrGenerateExhausted
}

// Verify reports whether slug is bound to exactly the given drop address.
// Unknown slugs verify false without error; the caller treats both the same.
func (s *Service) Verify(ctx context.Context, slugValue, dropAddress string) (bool, error) {
	addr, err := s.store.Resolve(ctx, slugValue)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return addr == dropAddress, nil
}

// SlugsByCreator returns address → slug for the drops the creator owns.
// Mappings recorded for another creator are filtered out, never exposed.
func (s *Service) SlugsByCreator(ctx context.Context, dropAddresses []string, creator string) (map[string]string, error) {
	if len(dropAddresses) == 0 {
		return map[string]string{}, nil
	}

	mappings, err := s.store.LookupByDrops(ctx, dropAddresses)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(mappings))
	for addr, m := range mappings {
		if m.Creator == creator {
			out[addr] = m.Slug
		}
	}
	return out, nil
}
