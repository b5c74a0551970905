package verify

import (
	"fmt"

	"github.com/veriledger/veriledger/pkg/journal"
	"github.com/veriledger/veriledger/pkg/ledgerhash"
)

// HashMismatchError reports a revision whose declared hash does not equal
// the recomputed combination of its metadata and data hashes.
type HashMismatchError struct {
	DocumentID string
	Computed   ledgerhash.Hash
	Declared   ledgerhash.Hash
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("revision hash mismatch for document %q: computed %s, declared %s",
		e.DocumentID, e.Computed, e.Declared)
}

// MissingTransactionInfoHashError reports a block whose transaction info
// hash is not a member of its entries hash list.
type MissingTransactionInfoHashError struct {
	BlockAddress journal.BlockAddress
	Computed     ledgerhash.Hash
}

func (e *MissingTransactionInfoHashError) Error() string {
	return fmt.Sprintf("block %s: transaction info hash %s is not in the entries hash list",
		e.BlockAddress, e.Computed)
}

// MissingRevisionsHashError reports a block whose revisions Merkle root is
// not a member of its entries hash list.
type MissingRevisionsHashError struct {
	BlockAddress journal.BlockAddress
	Computed     ledgerhash.Hash
}

func (e *MissingRevisionsHashError) Error() string {
	return fmt.Sprintf("block %s: revisions hash %s is not in the entries hash list",
		e.BlockAddress, e.Computed)
}

// EntriesHashMismatchError reports a block whose declared entries hash does
// not equal the Merkle root of its entries hash list.
type EntriesHashMismatchError struct {
	BlockAddress journal.BlockAddress
	Computed     ledgerhash.Hash
	Declared     ledgerhash.Hash
}

func (e *EntriesHashMismatchError) Error() string {
	return fmt.Sprintf("block %s: computed entries hash %s does not match declared %s",
		e.BlockAddress, e.Computed, e.Declared)
}

// BlockHashMismatchError reports a block whose declared block hash does not
// equal the combination of its entries hash and previous block hash.
type BlockHashMismatchError struct {
	BlockAddress journal.BlockAddress
	Computed     ledgerhash.Hash
	Declared     ledgerhash.Hash
}

func (e *BlockHashMismatchError) Error() string {
	return fmt.Sprintf("block %s: computed block hash %s does not match declared %s",
		e.BlockAddress, e.Computed, e.Declared)
}

// ChainLinkageError reports two consecutive blocks whose linkage is broken:
// the later block's declared previous-block hash does not equal the earlier
// block's hash.
type ChainLinkageError struct {
	PreviousAddress journal.BlockAddress
	BlockAddress    journal.BlockAddress
}

func (e *ChainLinkageError) Error() string {
	return fmt.Sprintf("chain linkage broken between blocks %s and %s: previous block hash does not match",
		e.PreviousAddress, e.BlockAddress)
}

// ChainHashError reports a block whose hash, recombined from its entries
// hash and the prior block's hash, does not reproduce its declared hash.
type ChainHashError struct {
	BlockAddress journal.BlockAddress
	Computed     ledgerhash.Hash
	Declared     ledgerhash.Hash
}

func (e *ChainHashError) Error() string {
	return fmt.Sprintf("chain hash broken at block %s: recombined hash %s does not match declared %s",
		e.BlockAddress, e.Computed, e.Declared)
}
