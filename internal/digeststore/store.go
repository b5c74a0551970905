// Package digeststore persists ledger digests obtained out-of-band so that
// revision proofs can later be checked against a digest the client saved
// itself rather than one the service presents at verification time.
//
// Three implementations of the Store interface are provided:
//   - MemoryStore: in-process, for testing and development.
//   - FileStore: a JSON file, for the CLI.
//   - PostgresStore: durable, for the verification service.
package digeststore

import (
	"context"
	"errors"

	"github.com/veriledger/veriledger/pkg/journal"
)

// ErrNoDigests is returned by Latest when the store is empty.
var ErrNoDigests = errors.New("no digests saved")

// Store is the interface for trusted digest persistence. Saving the same
// tip address twice overwrites the earlier digest; digests are immutable
// facts, so a re-save of identical data is a no-op in effect.
type Store interface {
	// Save persists a digest, keyed by its tip address.
	Save(ctx context.Context, d journal.Digest) error

	// Latest returns the digest with the highest tip sequence number.
	Latest(ctx context.Context) (journal.Digest, error)

	// List returns all saved digests ordered by tip sequence number.
	List(ctx context.Context) ([]journal.Digest, error)
}
