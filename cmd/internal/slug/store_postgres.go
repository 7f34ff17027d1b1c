package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL for deployments that already
// run one and do not want a second datastore.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Expected schema:
//
//	CREATE TABLE <schema>.drop_slugs (
//	    slug         text PRIMARY KEY,
//	    drop_address text NOT NULL UNIQUE,
//	    creator      text NOT NULL,
//	    created_at   timestamptz NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "fairdrop").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("slug: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("slug: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("slug: nil db pool")
	}
	st := &PostgresStore{pool: pool, schema: "fairdrop"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

var pgIdentRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func isValidPGIdent(s string) bool { return pgIdentRe.MatchString(s) }

func (s *PostgresStore) table() string {
	return fmt.Sprintf("%q.drop_slugs", s.schema)
}

// Save inserts the mapping; a duplicate slug or drop address is ErrExists.
func (s *PostgresStore) Save(ctx context.Context, m Mapping) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (slug, drop_address, creator)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, s.table()), m.Slug, m.DropAddress, m.Creator)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// Resolve returns the drop address bound to slug.
func (s *PostgresStore) Resolve(ctx context.Context, slug string) (string, error) {
	var addr string
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT drop_address FROM %s WHERE slug = $1
	`, s.table()), slug).Scan(&addr)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return addr, nil
}

// LookupByDrops returns the known mappings for the given drop addresses.
func (s *PostgresStore) LookupByDrops(ctx context.Context, dropAddresses []string) (map[string]Mapping, error) {
	if len(dropAddresses) == 0 {
		return map[string]Mapping{}, nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT slug, drop_address, creator
		FROM %s
		WHERE drop_address = ANY($1)
	`, s.table()), dropAddresses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Mapping, len(dropAddresses))
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.Slug, &m.DropAddress, &m.Creator); err != nil {
			return nil, err
		}
		out[m.DropAddress] = m
	}
	return out, rows.Err()
}
