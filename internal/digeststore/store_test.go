package digeststore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/veriledger/veriledger/internal/digeststore"
	"github.com/veriledger/veriledger/pkg/journal"
	"github.com/veriledger/veriledger/pkg/ledgerhash"
)

func makeDigest(strandID string, seq int64, payload string) journal.Digest {
	return journal.Digest{
		Digest: ledgerhash.Sum([]byte(payload)),
		TipAddress: journal.BlockAddress{
			StrandID:   strandID,
			SequenceNo: seq,
		},
	}
}

func runStoreTests(t *testing.T, newStore func(t *testing.T) digeststore.Store) {
	ctx := context.Background()

	t.Run("empty store has no latest", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Latest(ctx); !errors.Is(err, digeststore.ErrNoDigests) {
			t.Errorf("Latest on empty store: got %v, want ErrNoDigests", err)
		}
	})

	t.Run("empty store lists nothing", func(t *testing.T) {
		store := newStore(t)
		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("List on empty store returned %d digests", len(all))
		}
	})

	t.Run("latest returns highest sequence number", func(t *testing.T) {
		store := newStore(t)
		for _, d := range []journal.Digest{
			makeDigest("strand-1", 30, "c"),
			makeDigest("strand-1", 10, "a"),
			makeDigest("strand-1", 20, "b"),
		} {
			if err := store.Save(ctx, d); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}

		latest, err := store.Latest(ctx)
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if latest.TipAddress.SequenceNo != 30 {
			t.Errorf("Latest sequence: got %d, want 30", latest.TipAddress.SequenceNo)
		}
	})

	t.Run("list is ordered by sequence number", func(t *testing.T) {
		store := newStore(t)
		for _, d := range []journal.Digest{
			makeDigest("strand-1", 5, "e"),
			makeDigest("strand-1", 1, "f"),
			makeDigest("strand-1", 3, "g"),
		} {
			if err := store.Save(ctx, d); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}

		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("List returned %d digests, want 3", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i-1].TipAddress.SequenceNo > all[i].TipAddress.SequenceNo {
				t.Errorf("List out of order at %d: %d > %d",
					i, all[i-1].TipAddress.SequenceNo, all[i].TipAddress.SequenceNo)
			}
		}
	})

	t.Run("resaving a tip address overwrites", func(t *testing.T) {
		store := newStore(t)
		if err := store.Save(ctx, makeDigest("strand-1", 7, "old")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		updated := makeDigest("strand-1", 7, "new")
		if err := store.Save(ctx, updated); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("List returned %d digests after overwrite, want 1", len(all))
		}
		if !all[0].Digest.Equal(updated.Digest) {
			t.Error("overwritten digest was not returned")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) digeststore.Store {
		return digeststore.NewMemoryStore()
	})
}

func TestFileStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) digeststore.Store {
		return digeststore.NewFileStore(filepath.Join(t.TempDir(), "digests.json"))
	})
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "digests.json")

	first := digeststore.NewFileStore(path)
	saved := makeDigest("strand-1", 42, "persisted")
	if err := first.Save(ctx, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := digeststore.NewFileStore(path)
	latest, err := second.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if !latest.Digest.Equal(saved.Digest) {
		t.Error("reloaded digest does not match saved digest")
	}
	if !latest.TipAddress.Equal(saved.TipAddress) {
		t.Error("reloaded tip address does not match saved tip address")
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digests.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	store := digeststore.NewFileStore(path)
	if _, err := store.List(context.Background()); err == nil {
		t.Error("List accepted a corrupt digest file")
	}
}
