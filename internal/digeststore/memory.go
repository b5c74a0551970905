package digeststore

import (
	"context"
	"sort"
	"sync"

	"github.com/veriledger/veriledger/pkg/journal"
)

// MemoryStore is an in-memory, thread-safe Store implementation. It is
// primarily useful for testing and for single-process deployments that do
// not require persistence across restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	digests map[string]journal.Digest // keyed by tip address string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{digests: make(map[string]journal.Digest)}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, d journal.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests[d.TipAddress.String()] = d
	return nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(ctx context.Context) (journal.Digest, error) {
	all, err := s.List(ctx)
	if err != nil {
		return journal.Digest{}, err
	}
	if len(all) == 0 {
		return journal.Digest{}, ErrNoDigests
	}
	return all[len(all)-1], nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]journal.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]journal.Digest, 0, len(s.digests))
	for _, d := range s.digests {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].TipAddress.SequenceNo < all[j].TipAddress.SequenceNo
	})
	return all, nil
}
