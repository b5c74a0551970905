package verify_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/veriledger/veriledger/pkg/journal"
	"github.com/veriledger/veriledger/pkg/ledgerhash"
	"github.com/veriledger/veriledger/pkg/verify"
)

var txTime = time.Date(2025, 11, 3, 14, 30, 0, 0, time.UTC)

// makeRevision builds a revision whose declared hash is computed the same
// way the ledger computes it.
func makeRevision(t *testing.T, id string, version int64, data string) journal.Revision {
	t.Helper()

	metadata := journal.RevisionMetadata{
		ID:      id,
		Version: version,
		TxTime:  txTime,
		TxID:    "FnQeJBAicTX0Ah32ZnVtSX",
	}

	metadataHash, err := ledgerhash.HashValue(metadata)
	if err != nil {
		t.Fatal(err)
	}
	var payload any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatal(err)
	}
	dataHash, err := ledgerhash.HashValue(payload)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := ledgerhash.Combine(metadataHash, dataHash)
	if err != nil {
		t.Fatal(err)
	}

	return journal.Revision{
		BlockAddress: &journal.BlockAddress{StrandID: "JdxjkR9bSYB5jMHWcI464T", SequenceNo: version},
		Metadata:     &metadata,
		Hash:         hash,
		Data:         json.RawMessage(data),
	}
}

// makeBlock assembles a block whose entries hash list, entries hash, and
// block hash all satisfy the invariants BlockHash recomputes.
func makeBlock(t *testing.T, seqNo int64, prevBlockHash ledgerhash.Hash, revisions []journal.Revision) journal.Block {
	t.Helper()

	txInfo := journal.TransactionInfo{
		Statements: []journal.StatementInfo{{
			Statement:       "INSERT INTO VehicleRegistration ?",
			StartTime:       txTime,
			StatementDigest: ledgerhash.Sum([]byte("statement")),
		}},
	}
	txInfoHash, err := ledgerhash.HashValue(txInfo)
	if err != nil {
		t.Fatal(err)
	}

	entriesHashList := []ledgerhash.Hash{txInfoHash}
	if len(revisions) > 0 {
		revisionHashes := make([]ledgerhash.Hash, len(revisions))
		for i, rev := range revisions {
			revisionHashes[i] = rev.Hash
		}
		revisionsRoot, err := ledgerhash.MerkleRoot(revisionHashes)
		if err != nil {
			t.Fatal(err)
		}
		entriesHashList = append(entriesHashList, revisionsRoot)
	}
	// An internal-only system entry, present as a bare hash.
	entriesHashList = append(entriesHashList, ledgerhash.Sum([]byte("system-entry")))

	entriesHash, err := ledgerhash.MerkleRoot(entriesHashList)
	if err != nil {
		t.Fatal(err)
	}
	blockHash, err := ledgerhash.Combine(entriesHash, prevBlockHash)
	if err != nil {
		t.Fatal(err)
	}

	return journal.Block{
		BlockAddress:      journal.BlockAddress{StrandID: "JdxjkR9bSYB5jMHWcI464T", SequenceNo: seqNo},
		TransactionID:     "FnQeJBAicTX0Ah32ZnVtSX",
		BlockTimestamp:    txTime,
		BlockHash:         blockHash,
		EntriesHash:       entriesHash,
		PreviousBlockHash: prevBlockHash,
		EntriesHashList:   entriesHashList,
		TransactionInfo:   txInfo,
		Revisions:         revisions,
	}
}

// makeChain builds n consecutive hash-linked blocks starting from the
// empty previous-block hash.
func makeChain(t *testing.T, n int) []journal.Block {
	t.Helper()
	blocks := make([]journal.Block, 0, n)
	prev := ledgerhash.Empty()
	for i := 0; i < n; i++ {
		rev := makeRevision(t, "doc-1", int64(i), `{"VIN":"1N4AL11D75C109151","Owner":"Ava Chen"}`)
		block := makeBlock(t, int64(i), prev, []journal.Revision{rev})
		blocks = append(blocks, block)
		prev = block.BlockHash
	}
	return blocks
}

func TestRevisionHash_roundTrip(t *testing.T) {
	v := verify.New()
	rev := makeRevision(t, "doc-1", 0, `{"VIN":"1N4AL11D75C109151","City":"Seattle"}`)

	if err := v.RevisionHash(rev); err != nil {
		t.Errorf("RevisionHash on a freshly constructed revision: %v", err)
	}
}

func TestRevisionHash_mismatch(t *testing.T) {
	v := verify.New()
	rev := makeRevision(t, "doc-1", 0, `{"VIN":"1N4AL11D75C109151"}`)
	rev.Hash[0] ^= 0x01

	err := v.RevisionHash(rev)
	var mismatch *verify.HashMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *HashMismatchError", err)
	}
	if mismatch.DocumentID != "doc-1" {
		t.Errorf("DocumentID = %q, want doc-1", mismatch.DocumentID)
	}
}

func TestRevisionHash_systemRevision(t *testing.T) {
	v := verify.New()
	rev := journal.Revision{Hash: ledgerhash.Sum([]byte("internal"))}

	if !rev.IsSystem() {
		t.Fatal("fixture should be a system revision")
	}
	if err := v.RevisionHash(rev); err != nil {
		t.Errorf("RevisionHash on a system revision should be a no-op: %v", err)
	}
}

func TestBlockHash_valid(t *testing.T) {
	v := verify.New()
	block := makeChain(t, 1)[0]

	if err := v.BlockHash(block); err != nil {
		t.Errorf("BlockHash on a valid block: %v", err)
	}
}

func TestBlockHash_tamperedBlockHash(t *testing.T) {
	v := verify.New()
	block := makeChain(t, 1)[0]
	block.BlockHash = append(ledgerhash.Hash{}, block.BlockHash...)
	block.BlockHash[7] ^= 0x40

	err := v.BlockHash(block)
	var mismatch *verify.BlockHashMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *BlockHashMismatchError", err)
	}
	if !mismatch.BlockAddress.Equal(block.BlockAddress) {
		t.Errorf("error names block %s, want %s", mismatch.BlockAddress, block.BlockAddress)
	}
}

func TestBlockHash_missingTransactionInfoHash(t *testing.T) {
	v := verify.New()
	block := makeChain(t, 1)[0]

	// Drop the transaction info hash from the entries list entirely.
	block.EntriesHashList = block.EntriesHashList[1:]

	err := v.BlockHash(block)
	var missing *verify.MissingTransactionInfoHashError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingTransactionInfoHashError", err)
	}
}

func TestBlockHash_missingRevisionsHash(t *testing.T) {
	v := verify.New()
	block := makeChain(t, 1)[0]

	// Keep the txinfo hash, drop the revisions merkle root.
	block.EntriesHashList = []ledgerhash.Hash{block.EntriesHashList[0], block.EntriesHashList[2]}

	err := v.BlockHash(block)
	var missing *verify.MissingRevisionsHashError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingRevisionsHashError", err)
	}
}

func TestBlockHash_entriesHashMismatch(t *testing.T) {
	v := verify.New()
	block := makeChain(t, 1)[0]
	block.EntriesHash = append(ledgerhash.Hash{}, block.EntriesHash...)
	block.EntriesHash[31] ^= 0x02

	err := v.BlockHash(block)
	var mismatch *verify.EntriesHashMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *EntriesHashMismatchError", err)
	}
}

func TestChain_valid(t *testing.T) {
	v := verify.New()
	if err := v.Chain(makeChain(t, 3)); err != nil {
		t.Errorf("Chain on a valid 3-block chain: %v", err)
	}
}

func TestChain_empty(t *testing.T) {
	v := verify.New()
	if err := v.Chain(nil); err != nil {
		t.Errorf("Chain on an empty sequence should be trivially valid: %v", err)
	}
}

func TestChain_linkageBroken(t *testing.T) {
	v := verify.New()
	blocks := makeChain(t, 3)

	// Substitute block 2 with an internally consistent block built on the
	// wrong previous hash: the per-block checks pass, the linkage fails.
	rev := makeRevision(t, "doc-1", 1, `{"VIN":"1N4AL11D75C109151","Owner":"Ava Chen"}`)
	blocks[1] = makeBlock(t, 1, ledgerhash.Sum([]byte("not the real previous hash")), []journal.Revision{rev})

	err := v.Chain(blocks)
	var linkage *verify.ChainLinkageError
	if !errors.As(err, &linkage) {
		t.Fatalf("err = %v, want *ChainLinkageError", err)
	}
	if linkage.BlockAddress.SequenceNo != 1 {
		t.Errorf("error names sequence %d, want 1", linkage.BlockAddress.SequenceNo)
	}
}

func TestChain_reorderedBlocks(t *testing.T) {
	v := verify.New()
	blocks := makeChain(t, 3)
	blocks[1], blocks[2] = blocks[2], blocks[1]

	if err := v.Chain(blocks); err == nil {
		t.Error("Chain should reject a reordered sequence")
	}
}

func TestChain_tamperedPreviousBlockHash(t *testing.T) {
	v := verify.New()
	blocks := makeChain(t, 3)

	// A raw mutation of the previous-block hash breaks the block's own
	// hash derivation before the linkage check is reached.
	blocks[1].PreviousBlockHash = append(ledgerhash.Hash{}, blocks[1].PreviousBlockHash...)
	blocks[1].PreviousBlockHash[3] ^= 0x10

	err := v.Chain(blocks)
	var mismatch *verify.BlockHashMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *BlockHashMismatchError", err)
	}
}

// buildProof produces a digest and a proof for documentHash by combining
// it with the given sibling hashes in order.
func buildProof(t *testing.T, documentHash ledgerhash.Hash, siblings ...ledgerhash.Hash) (ledgerhash.Hash, journal.Proof) {
	t.Helper()
	digest := documentHash
	for _, s := range siblings {
		combined, err := ledgerhash.Combine(digest, s)
		if err != nil {
			t.Fatal(err)
		}
		digest = combined
	}
	return digest, journal.Proof{InternalHashes: siblings}
}

func TestDigest_valid(t *testing.T) {
	v := verify.New()
	docHash := ledgerhash.Sum([]byte("document"))
	digest, proof := buildProof(t, docHash,
		ledgerhash.Sum([]byte("sibling-1")),
		ledgerhash.Sum([]byte("sibling-2")),
		ledgerhash.Sum([]byte("sibling-3")),
	)

	ok, err := v.Digest(docHash, digest, proof)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Digest should verify a correctly built proof")
	}
}

// Flipping any single bit of the document hash must break verification.
func TestDigest_tamperedDocumentHash(t *testing.T) {
	v := verify.New()
	docHash := ledgerhash.Sum([]byte("document"))
	digest, proof := buildProof(t, docHash, ledgerhash.Sum([]byte("sibling-1")))

	for i := 0; i < len(docHash); i++ {
		for bit := 0; bit < 8; bit++ {
			altered := append(ledgerhash.Hash{}, docHash...)
			altered[i] ^= 1 << bit

			ok, err := v.Digest(altered, digest, proof)
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Fatalf("Digest verified with bit %d of byte %d flipped", bit, i)
			}
		}
	}
}

func TestDigest_tamperedDigest(t *testing.T) {
	v := verify.New()
	docHash := ledgerhash.Sum([]byte("document"))
	digest, proof := buildProof(t, docHash, ledgerhash.Sum([]byte("sibling-1")))

	altered, err := ledgerhash.FlipRandomBit(digest)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := v.Digest(docHash, altered, proof)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Digest should fail against a tampered digest")
	}
}

func TestDigest_tamperedProofEntry(t *testing.T) {
	v := verify.New()
	docHash := ledgerhash.Sum([]byte("document"))
	digest, proof := buildProof(t, docHash,
		ledgerhash.Sum([]byte("sibling-1")),
		ledgerhash.Sum([]byte("sibling-2")),
	)

	altered, err := ledgerhash.FlipRandomBit(proof.InternalHashes[1])
	if err != nil {
		t.Fatal(err)
	}
	proof.InternalHashes[1] = altered

	ok, err := v.Digest(docHash, digest, proof)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Digest should fail against a tampered proof entry")
	}
}

func TestDigest_emptyProof(t *testing.T) {
	v := verify.New()
	docHash := ledgerhash.Sum([]byte("document"))

	ok, err := v.Digest(docHash, docHash, journal.Proof{})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("an empty proof should verify a digest equal to the document hash")
	}
}

func TestDigest_malformedProofHash(t *testing.T) {
	v := verify.New()
	docHash := ledgerhash.Sum([]byte("document"))
	proof := journal.Proof{InternalHashes: []ledgerhash.Hash{{0x01, 0x02}}}

	if _, err := v.Digest(docHash, docHash, proof); !errors.Is(err, ledgerhash.ErrInvalidHashLength) {
		t.Errorf("err = %v, want ErrInvalidHashLength", err)
	}
}
