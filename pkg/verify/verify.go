// Package verify recomputes journal hashes bottom-up, from document
// revision through block and chain to digest, and compares them against
// the values the ledger declared. Every operation is a pure, stateless
// computation over immutable inputs and is safe to call concurrently.
//
// All checks fail eagerly with a typed error naming the violated invariant
// and the offending block or document. The one exception is Digest, which
// is a predicate: a proof that fails to reconstruct a digest is an
// expected negative outcome, not an exceptional condition.
package verify

import (
	"encoding/json"
	"fmt"

	"github.com/veriledger/veriledger/pkg/journal"
	"github.com/veriledger/veriledger/pkg/ledgerhash"
)

// ValueHasher hashes a structured value through a stable canonical
// serialization. The default is ledgerhash.HashValue; callers
// interoperating with a service that canonicalizes differently can
// substitute their own.
type ValueHasher func(v any) (ledgerhash.Hash, error)

// Verifier checks revisions, blocks, chains, and digest proofs.
type Verifier struct {
	hashValue ValueHasher
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithValueHasher replaces the canonical structured-value hasher.
func WithValueHasher(h ValueHasher) Option {
	return func(v *Verifier) { v.hashValue = h }
}

// New creates a Verifier with the default canonical hasher.
func New(opts ...Option) *Verifier {
	v := &Verifier{hashValue: ledgerhash.HashValue}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// RevisionHash checks that a revision's declared hash equals the
// combination of its metadata hash and data hash. Revisions lacking
// metadata or data (internal system revisions) are exempt and pass
// unchecked. A mismatch yields a *HashMismatchError.
func (v *Verifier) RevisionHash(rev journal.Revision) error {
	if rev.Metadata == nil || len(rev.Data) == 0 {
		return nil
	}

	computed, err := v.computeRevisionHash(*rev.Metadata, rev.Data)
	if err != nil {
		return err
	}
	if !computed.Equal(rev.Hash) {
		return &HashMismatchError{
			DocumentID: rev.Metadata.ID,
			Computed:   computed,
			Declared:   rev.Hash,
		}
	}
	return nil
}

// ComputeRevisionHash returns the hash the ledger assigns a revision built
// from the given metadata and data payload: the combination of the two
// canonical value hashes.
func (v *Verifier) ComputeRevisionHash(metadata journal.RevisionMetadata, data json.RawMessage) (ledgerhash.Hash, error) {
	return v.computeRevisionHash(metadata, data)
}

func (v *Verifier) computeRevisionHash(metadata journal.RevisionMetadata, data json.RawMessage) (ledgerhash.Hash, error) {
	metadataHash, err := v.hashValue(metadata)
	if err != nil {
		return nil, fmt.Errorf("hash revision metadata: %w", err)
	}
	dataHash, err := v.hashDocument(data)
	if err != nil {
		return nil, fmt.Errorf("hash revision data: %w", err)
	}
	combined, err := ledgerhash.Combine(metadataHash, dataHash)
	if err != nil {
		return nil, fmt.Errorf("combine metadata and data hashes: %w", err)
	}
	return combined, nil
}

// hashDocument hashes a raw document payload through its canonical form:
// the payload is decoded to a generic value and re-encoded, so key order
// and whitespace in the incoming bytes do not affect the hash.
func (v *Verifier) hashDocument(data json.RawMessage) (ledgerhash.Hash, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("decode document payload: %w", err)
	}
	return v.hashValue(value)
}

// BlockHash validates that a block's declared hashes are correctly derived
// from its contents:
//
//  1. The transaction info hash must be a member of the entries hash list.
//  2. Every user revision's declared hash must recompute correctly.
//  3. When revisions are present, the Merkle root of their hashes must be
//     a member of the entries hash list.
//  4. The Merkle root of the entries hash list must equal the declared
//     entries hash.
//  5. The combination of the entries hash and the previous block hash must
//     equal the declared block hash.
//
// Each failed step yields its own error type so callers can report exactly
// which invariant broke.
func (v *Verifier) BlockHash(block journal.Block) error {
	entries := make(map[string]struct{}, len(block.EntriesHashList))
	for _, h := range block.EntriesHashList {
		entries[string(h)] = struct{}{}
	}

	txInfoHash, err := v.hashValue(block.TransactionInfo)
	if err != nil {
		return fmt.Errorf("block %s: hash transaction info: %w", block.BlockAddress, err)
	}
	if _, ok := entries[string(txInfoHash)]; !ok {
		return &MissingTransactionInfoHashError{
			BlockAddress: block.BlockAddress,
			Computed:     txInfoHash,
		}
	}

	if len(block.Revisions) > 0 {
		revisionHashes := make([]ledgerhash.Hash, len(block.Revisions))
		for i, rev := range block.Revisions {
			if err := v.RevisionHash(rev); err != nil {
				return err
			}
			revisionHashes[i] = rev.Hash
		}
		revisionsRoot, err := ledgerhash.MerkleRoot(revisionHashes)
		if err != nil {
			return fmt.Errorf("block %s: revisions merkle root: %w", block.BlockAddress, err)
		}
		if _, ok := entries[string(revisionsRoot)]; !ok {
			return &MissingRevisionsHashError{
				BlockAddress: block.BlockAddress,
				Computed:     revisionsRoot,
			}
		}
	}

	entriesRoot, err := ledgerhash.MerkleRoot(block.EntriesHashList)
	if err != nil {
		return fmt.Errorf("block %s: entries merkle root: %w", block.BlockAddress, err)
	}
	if !entriesRoot.Equal(block.EntriesHash) {
		return &EntriesHashMismatchError{
			BlockAddress: block.BlockAddress,
			Computed:     entriesRoot,
			Declared:     block.EntriesHash,
		}
	}

	blockHash, err := ledgerhash.Combine(entriesRoot, block.PreviousBlockHash)
	if err != nil {
		return fmt.Errorf("block %s: combine entries and previous block hashes: %w", block.BlockAddress, err)
	}
	if !blockHash.Equal(block.BlockHash) {
		return &BlockHashMismatchError{
			BlockAddress: block.BlockAddress,
			Computed:     blockHash,
			Declared:     block.BlockHash,
		}
	}
	return nil
}

// Chain validates an ordered sequence of blocks: every block passes
// BlockHash, each block's declared previous-block hash equals the prior
// block's hash, and recombining each block's entries hash with the prior
// block's hash reproduces its declared hash. An empty sequence is
// trivially valid.
//
// Any bit flip, block substitution, or reordering in the sequence is
// detected.
func (v *Verifier) Chain(blocks []journal.Block) error {
	for i, block := range blocks {
		if err := v.BlockHash(block); err != nil {
			return err
		}
		if i == 0 {
			continue
		}

		prev := blocks[i-1]
		if !prev.BlockHash.Equal(block.PreviousBlockHash) {
			return &ChainLinkageError{
				PreviousAddress: prev.BlockAddress,
				BlockAddress:    block.BlockAddress,
			}
		}
		recombined, err := ledgerhash.Combine(block.EntriesHash, prev.BlockHash)
		if err != nil {
			return fmt.Errorf("block %s: recombine with previous block hash: %w", block.BlockAddress, err)
		}
		if !recombined.Equal(block.BlockHash) {
			return &ChainHashError{
				BlockAddress: block.BlockAddress,
				Computed:     recombined,
				Declared:     block.BlockHash,
			}
		}
	}
	return nil
}

// Digest folds the proof's sibling hashes over documentHash and reports
// whether the result reproduces the given digest. A mismatch returns
// false rather than an error; the only error condition is a malformed
// (wrong-length) hash among the inputs.
func (v *Verifier) Digest(documentHash, digest ledgerhash.Hash, proof journal.Proof) (bool, error) {
	candidate := documentHash
	for i, sibling := range proof.InternalHashes {
		combined, err := ledgerhash.Combine(candidate, sibling)
		if err != nil {
			return false, fmt.Errorf("combine proof hash %d: %w", i, err)
		}
		candidate = combined
	}
	return candidate.Equal(digest), nil
}
