package digeststore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/veriledger/veriledger/pkg/journal"
)

// FileStore persists digests to a single JSON file. It is used by the CLI,
// which keeps its digests under the user's config directory.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore writing to the given path. The file and
// its parent directory are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() ([]journal.Digest, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read digest file %s: %w", s.path, err)
	}
	var all []journal.Digest
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse digest file %s: %w", s.path, err)
	}
	return all, nil
}

func (s *FileStore) save(all []journal.Digest) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create digest dir: %w", err)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal digests: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write digest file %s: %w", s.path, err)
	}
	return nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, d journal.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range all {
		if existing.TipAddress.Equal(d.TipAddress) {
			all[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].TipAddress.SequenceNo < all[j].TipAddress.SequenceNo
	})
	return s.save(all)
}

// Latest implements Store.
func (s *FileStore) Latest(ctx context.Context) (journal.Digest, error) {
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
func (s *FileStore) List(_ context.Context) ([]journal.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}
