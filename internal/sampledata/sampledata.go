// Package sampledata generates DMV-style sample documents and hash-correct
// journals for demos and fixtures. Blocks it builds satisfy every invariant
// the verify package recomputes, and the proofs it discloses reconstruct
// the journal digest from a single revision hash, so the full verification
// surface can be exercised without access to a ledger service.
package sampledata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/veriledger/veriledger/pkg/journal"
	"github.com/veriledger/veriledger/pkg/ledgerhash"
	"github.com/veriledger/veriledger/pkg/verify"
)

// VehicleRegistration is a sample user document.
type VehicleRegistration struct {
	VIN                        string  `json:"VIN"`
	LicensePlateNumber         string  `json:"LicensePlateNumber"`
	State                      string  `json:"State"`
	City                       string  `json:"City"`
	PendingPenaltyTicketAmount float64 `json:"PendingPenaltyTicketAmount"`
	ValidFromDate              string  `json:"ValidFromDate"`
	ValidToDate                string  `json:"ValidToDate"`
	Owners                     Owners  `json:"Owners"`
}

// Owners holds the primary and any secondary owners of a vehicle.
type Owners struct {
	PrimaryOwner    Owner   `json:"PrimaryOwner"`
	SecondaryOwners []Owner `json:"SecondaryOwners"`
}

// Owner references a person document.
type Owner struct {
	PersonID string `json:"PersonId"`
}

// Person is a sample user document.
type Person struct {
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	DOB       string `json:"DOB"`
	GovID     string `json:"GovId"`
	GovIDType string `json:"GovIdType"`
	Address   string `json:"Address"`
}

// Registrations returns a small fleet of sample vehicle registrations.
func Registrations() []VehicleRegistration {
	return []VehicleRegistration{
		{
			VIN:                "1N4AL11D75C109151",
			LicensePlateNumber: "LEWISR261LL",
			State:              "WA",
			City:               "Seattle",
			ValidFromDate:      "2017-08-21",
			ValidToDate:        "2020-05-11",
			Owners:             Owners{PrimaryOwner: Owner{PersonID: uuid.NewString()}},
		},
		{
			VIN:                        "KM8SRDHF6EU074761",
			LicensePlateNumber:         "CA762X",
			State:                      "WA",
			City:                       "Kent",
			PendingPenaltyTicketAmount: 130.75,
			ValidFromDate:              "2017-09-14",
			ValidToDate:                "2020-06-25",
			Owners:                     Owners{PrimaryOwner: Owner{PersonID: uuid.NewString()}},
		},
		{
			VIN:                "3HGGK5G53FM761765",
			LicensePlateNumber: "CD820Z",
			State:              "WA",
			City:               "Everett",
			ValidFromDate:      "2011-03-17",
			ValidToDate:        "2021-03-24",
			Owners:             Owners{PrimaryOwner: Owner{PersonID: uuid.NewString()}},
		},
	}
}

// People returns sample person documents matching the registrations.
func People() []Person {
	return []Person{
		{FirstName: "Raul", LastName: "Lewis", DOB: "1963-08-19", GovID: "LEWISR261LL", GovIDType: "Driver License", Address: "1719 University Street, Seattle, WA, 98109"},
		{FirstName: "Brent", LastName: "Logan", DOB: "1967-07-03", GovID: "LOGANB486CG", GovIDType: "Driver License", Address: "43 Stockert Hollow Road, Everett, WA, 98203"},
		{FirstName: "Alexis", LastName: "Pena", DOB: "1974-02-10", GovID: "744 849 301", GovIDType: "SSN", Address: "4058 Melrose Street, Spokane Valley, WA, 99206"},
	}
}

// Journal is a generated hash-correct block chain together with the digest
// covering its full length.
type Journal struct {
	StrandID string
	ExportID string
	Blocks   []journal.Block
	Digest   journal.Digest
}

// BuildJournal generates blockCount consecutive blocks, each committing one
// revision of a sample document, hash-linked from the empty previous-block
// hash. The returned digest is the Merkle root of all block hashes with the
// last block as its tip.
func BuildJournal(blockCount int) (*Journal, error) {
	if blockCount <= 0 {
		return nil, fmt.Errorf("block count must be positive, got %d", blockCount)
	}

	j := &Journal{
		StrandID: uuid.NewString(),
		ExportID: uuid.NewString(),
	}
	verifier := verify.New()
	fleet := Registrations()
	docIDs := make([]string, len(fleet))
	for i := range docIDs {
		docIDs[i] = uuid.NewString()
	}

	prev := ledgerhash.Empty()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for seq := 0; seq < blockCount; seq++ {
		doc := fleet[seq%len(fleet)]
		doc.City = fmt.Sprintf("%s-%d", doc.City, seq) // each revision differs
		payload, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal sample document: %w", err)
		}

		txID := uuid.NewString()
		metadata := journal.RevisionMetadata{
			ID:      docIDs[seq%len(docIDs)],
			Version: int64(seq / len(docIDs)),
			TxTime:  now.Add(time.Duration(seq) * time.Second),
			TxID:    txID,
		}
		revisionHash, err := verifier.ComputeRevisionHash(metadata, payload)
		if err != nil {
			return nil, fmt.Errorf("compute revision hash: %w", err)
		}

		address := journal.BlockAddress{StrandID: j.StrandID, SequenceNo: int64(seq)}
		revision := journal.Revision{
			BlockAddress: &address,
			Metadata:     &metadata,
			Hash:         revisionHash,
			Data:         payload,
		}

		block, err := buildBlock(address, txID, metadata.TxTime, prev, []journal.Revision{revision})
		if err != nil {
			return nil, err
		}
		j.Blocks = append(j.Blocks, block)
		prev = block.BlockHash
	}

	blockHashes := make([]ledgerhash.Hash, len(j.Blocks))
	for i, b := range j.Blocks {
		blockHashes[i] = b.BlockHash
	}
	root, err := ledgerhash.MerkleRoot(blockHashes)
	if err != nil {
		return nil, fmt.Errorf("digest merkle root: %w", err)
	}
	j.Digest = journal.Digest{
		Digest:     root,
		TipAddress: j.Blocks[len(j.Blocks)-1].BlockAddress,
	}
	return j, nil
}

// buildBlock assembles a block whose declared hashes satisfy the
// verifier's invariants: the entries hash list holds the transaction info
// hash, the revisions Merkle root, and one internal system entry.
func buildBlock(address journal.BlockAddress, txID string, ts time.Time, prev ledgerhash.Hash, revisions []journal.Revision) (journal.Block, error) {
	statement := "UPDATE VehicleRegistration AS r SET r = ? WHERE r.VIN = ?"
	txInfo := journal.TransactionInfo{
		Statements: []journal.StatementInfo{{
			Statement:       statement,
			StartTime:       ts,
			StatementDigest: ledgerhash.Sum([]byte(statement)),
		}},
		Documents: map[string]journal.DocumentInfo{},
	}
	for i, rev := range revisions {
		txInfo.Documents[rev.Metadata.ID] = journal.DocumentInfo{
			TableName:  "VehicleRegistration",
			TableID:    "8F0TPCmdNQ6JTRpiLj2TmW",
			Statements: []int{i},
		}
	}

	txInfoHash, err := ledgerhash.HashValue(txInfo)
	if err != nil {
		return journal.Block{}, fmt.Errorf("hash transaction info: %w", err)
	}

	revisionHashes := make([]ledgerhash.Hash, len(revisions))
	for i, rev := range revisions {
		revisionHashes[i] = rev.Hash
	}
	revisionsRoot, err := ledgerhash.MerkleRoot(revisionHashes)
	if err != nil {
		return journal.Block{}, fmt.Errorf("revisions merkle root: %w", err)
	}

	systemEntry := ledgerhash.Sum([]byte("system:" + address.String()))
	entriesHashList := []ledgerhash.Hash{txInfoHash, revisionsRoot, systemEntry}

	entriesHash, err := ledgerhash.MerkleRoot(entriesHashList)
	if err != nil {
		return journal.Block{}, fmt.Errorf("entries merkle root: %w", err)
	}
	blockHash, err := ledgerhash.Combine(entriesHash, prev)
	if err != nil {
		return journal.Block{}, fmt.Errorf("combine block hash: %w", err)
	}

	return journal.Block{
		BlockAddress:      address,
		TransactionID:     txID,
		BlockTimestamp:    ts,
		BlockHash:         blockHash,
		EntriesHash:       entriesHash,
		PreviousBlockHash: prev,
		EntriesHashList:   entriesHashList,
		TransactionInfo:   txInfo,
		Revisions:         revisions,
	}, nil
}

// Proof discloses the sibling hashes that reconstruct the journal digest
// from the hash of the identified revision: up the revisions tree, up the
// entries tree, across to the previous block hash, and up the block tree.
func (j *Journal) Proof(blockIndex, revisionIndex int) (journal.Proof, error) {
	if blockIndex < 0 || blockIndex >= len(j.Blocks) {
		return journal.Proof{}, fmt.Errorf("block index %d out of range", blockIndex)
	}
	block := j.Blocks[blockIndex]
	if revisionIndex < 0 || revisionIndex >= len(block.Revisions) {
		return journal.Proof{}, fmt.Errorf("revision index %d out of range", revisionIndex)
	}

	var siblings []ledgerhash.Hash

	revisionHashes := make([]ledgerhash.Hash, len(block.Revisions))
	for i, rev := range block.Revisions {
		revisionHashes[i] = rev.Hash
	}
	path, err := merklePath(revisionHashes, revisionIndex)
	if err != nil {
		return journal.Proof{}, err
	}
	siblings = append(siblings, path...)

	// The revisions root sits at index 1 of the entries hash list.
	path, err = merklePath(block.EntriesHashList, 1)
	if err != nil {
		return journal.Proof{}, err
	}
	siblings = append(siblings, path...)

	if !block.PreviousBlockHash.IsEmpty() {
		siblings = append(siblings, block.PreviousBlockHash)
	}

	blockHashes := make([]ledgerhash.Hash, len(j.Blocks))
	for i, b := range j.Blocks {
		blockHashes[i] = b.BlockHash
	}
	path, err = merklePath(blockHashes, blockIndex)
	if err != nil {
		return journal.Proof{}, err
	}
	siblings = append(siblings, path...)

	return journal.Proof{InternalHashes: siblings}, nil
}

// merklePath returns the sibling hashes of the leaf at index, bottom-up.
// A leaf carried unpaired to the next level contributes no sibling at that
// level, mirroring the odd-leaf carry in ledgerhash.MerkleRoot.
func merklePath(leaves []ledgerhash.Hash, index int) ([]ledgerhash.Hash, error) {
	if index < 0 || index >= len(leaves) {
		return nil, fmt.Errorf("leaf index %d out of range for %d leaves", index, len(leaves))
	}

	var path []ledgerhash.Hash
	level := leaves
	for len(level) > 1 {
		if index%2 == 0 {
			if index+1 < len(level) {
				path = append(path, level[index+1])
			}
		} else {
			path = append(path, level[index-1])
		}

		next := make([]ledgerhash.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			combined, err := ledgerhash.Combine(level[i], level[i+1])
			if err != nil {
				return nil, err
			}
			next = append(next, combined)
		}
		level = next
		index /= 2
	}
	return path, nil
}
