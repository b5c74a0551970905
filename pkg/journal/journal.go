// Package journal defines the data model of a ledger journal: block
// addresses, document revisions, journal blocks, inclusion proofs, and
// published digests.
//
// All types are plain values reconstructed from wire or export bytes per
// verification call and never mutated afterwards. The package only parses
// and represents; every hash check lives in the verify package.
package journal

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/veriledger/veriledger/pkg/ledgerhash"
)

// BlockAddress identifies a block's position in the journal: a strand
// identifier plus a monotonically increasing sequence number within that
// strand.
type BlockAddress struct {
	StrandID   string `json:"strandId"`
	SequenceNo int64  `json:"sequenceNo"`
}

// Equal reports whether two addresses denote the same block.
func (a BlockAddress) Equal(other BlockAddress) bool {
	return a.StrandID == other.StrandID && a.SequenceNo == other.SequenceNo
}

// String formats the address as strandId/sequenceNo.
func (a BlockAddress) String() string {
	return a.StrandID + "/" + strconv.FormatInt(a.SequenceNo, 10)
}

// RevisionMetadata is the service-assigned metadata of one document
// revision. Version starts at 0 and increases by one per modification.
type RevisionMetadata struct {
	ID      string    `json:"id"`
	Version int64     `json:"version"`
	TxTime  time.Time `json:"txTime"`
	TxID    string    `json:"txId"`
}

// Revision is one committed version of a user document. The declared Hash
// is the ledger's combinator over the metadata hash and the data hash.
//
// Internal system revisions carry only the hash: BlockAddress, Metadata,
// and Data are all absent. Such revisions are exempt from recomputation
// but still participate in Merkle hashing.
type Revision struct {
	BlockAddress *BlockAddress     `json:"blockAddress,omitempty"`
	Metadata     *RevisionMetadata `json:"metadata,omitempty"`
	Hash         ledgerhash.Hash   `json:"hash"`
	Data         json.RawMessage   `json:"data,omitempty"`
}

// IsSystem reports whether the revision is an internal system revision
// that carries only a hash.
func (r Revision) IsSystem() bool {
	return r.BlockAddress == nil && r.Metadata == nil && len(r.Data) == 0
}

// StatementInfo describes one statement executed in a transaction.
type StatementInfo struct {
	Statement       string          `json:"statement"`
	StartTime       time.Time       `json:"startTime"`
	StatementDigest ledgerhash.Hash `json:"statementDigest"`
}

// DocumentInfo maps a document touched by a transaction to its table and
// to the indexes of the statements that modified it.
type DocumentInfo struct {
	TableName  string `json:"tableName"`
	TableID    string `json:"tableId"`
	Statements []int  `json:"statements"`
}

// TransactionInfo holds the statements executed in a transaction and the
// documents they updated, keyed by document id.
type TransactionInfo struct {
	Statements []StatementInfo         `json:"statements"`
	Documents  map[string]DocumentInfo `json:"documents,omitempty"`
}

// Block is the journal record of one committed transaction.
//
// BlockHash is declared by the service as Combine(EntriesHash,
// PreviousBlockHash); EntriesHash as the Merkle root of EntriesHashList.
// The list contains the transaction info hash, the Merkle root of the
// revision hashes when revisions are present, and hashes of internal-only
// system entries.
type Block struct {
	BlockAddress      BlockAddress      `json:"blockAddress"`
	TransactionID     string            `json:"transactionId"`
	BlockTimestamp    time.Time         `json:"blockTimestamp"`
	BlockHash         ledgerhash.Hash   `json:"blockHash"`
	EntriesHash       ledgerhash.Hash   `json:"entriesHash"`
	PreviousBlockHash ledgerhash.Hash   `json:"previousBlockHash"`
	EntriesHashList   []ledgerhash.Hash `json:"entriesHashList"`
	TransactionInfo   TransactionInfo   `json:"transactionInfo"`
	Revisions         []Revision        `json:"revisions,omitempty"`
}

// Proof is the ordered list of sibling hashes the service discloses so a
// client can rebuild a digest from a single leaf hash without the full
// tree.
type Proof struct {
	InternalHashes []ledgerhash.Hash `json:"internalHashes"`
}

// Digest is a root hash published by the ledger covering every block up to
// and including TipAddress.
type Digest struct {
	Digest     ledgerhash.Hash `json:"digest"`
	TipAddress BlockAddress    `json:"digestTipAddress"`
}
