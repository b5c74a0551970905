package digeststore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veriledger/veriledger/pkg/journal"
	"go.uber.org/zap"
)

// PostgresStore persists digests to a PostgreSQL database. It implements
// the Store interface.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// EnsureSchema creates the digests table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_digests (
			strand_id   TEXT        NOT NULL,
			sequence_no BIGINT      NOT NULL,
			digest      BYTEA       NOT NULL,
			saved_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (strand_id, sequence_no)
		)`)
	if err != nil {
		return fmt.Errorf("create ledger_digests table: %w", err)
	}
	return nil
}

// Save implements Store. Saving the same tip address again overwrites the
// stored digest bytes.
func (s *PostgresStore) Save(ctx context.Context, d journal.Digest) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_digests (strand_id, sequence_no, digest)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (strand_id, sequence_no) DO UPDATE SET digest = EXCLUDED.digest, saved_at = now()`,
		d.TipAddress.StrandID, d.TipAddress.SequenceNo, []byte(d.Digest),
	)
	if err != nil {
		return fmt.Errorf("insert digest: %w", err)
	}

	s.logger.Debug("digest saved",
		zap.String("strand_id", d.TipAddress.StrandID),
		zap.Int64("sequence_no", d.TipAddress.SequenceNo),
	)
	return nil
}

// Latest implements Store.
func (s *PostgresStore) Latest(ctx context.Context) (journal.Digest, error) {
	var d journal.Digest
	var digest []byte
	err := s.pool.QueryRow(ctx,
		`SELECT strand_id, sequence_no, digest FROM ledger_digests
		 ORDER BY sequence_no DESC LIMIT 1`,
	).Scan(&d.TipAddress.StrandID, &d.TipAddress.SequenceNo, &digest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return journal.Digest{}, ErrNoDigests
		}
		return journal.Digest{}, fmt.Errorf("query latest digest: %w", err)
	}
	d.Digest = digest
	return d, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context) ([]journal.Digest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT strand_id, sequence_no, digest FROM ledger_digests
		 ORDER BY sequence_no ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query digests: %w", err)
	}
	defer rows.Close()

	var all []journal.Digest
	for rows.Next() {
		var d journal.Digest
		var digest []byte
		if err := rows.Scan(&d.TipAddress.StrandID, &d.TipAddress.SequenceNo, &digest); err != nil {
			return nil, fmt.Errorf("scan digest row: %w", err)
		}
		d.Digest = digest
		all = append(all, d)
	}
	return all, rows.Err()
}
