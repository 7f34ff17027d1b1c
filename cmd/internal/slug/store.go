// Package slug maps shareable claim-link slugs to drop addresses.
//
// The mapping is bidirectional: slug → drop address for claim-link
// resolution, and drop address → {slug, creator} so a creator can list slugs
// without re-deriving them. The slug also acts as a capability: claim-token
// issuance refuses requests whose slug does not bind to the presented drop.
package slug

import (
	"context"
	"errors"
)

// Store errors.
var (
	ErrNotFound = errors.New("slug: not found")
	ErrExists   = errors.New("slug: already exists")
)

// Mapping is one slug binding.
type Mapping struct {
	Slug        string `json:"slug"`
	DropAddress string `json:"dropAddress"`
	Creator     string `json:"creator"`
}

// Store persists slug bindings.
//
// Requirements:
//   - Save writes both directions atomically enough that a resolvable slug
//     always has a meta record (single round trip per backend).
//   - Resolve returns ErrNotFound for unknown slugs.
//   - LookupByDrops returns only addresses that have a mapping; missing
//     addresses are simply absent from the result.
type Store interface {
	Save(ctx context.Context, m Mapping) error
	Resolve(ctx context.Context, slug string) (string, error)
	LookupByDrops(ctx context.Context, dropAddresses []string) (map[string]Mapping, error)
	Close() error
}
