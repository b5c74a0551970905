package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/veriledger/veriledger/internal/digeststore"
	"github.com/veriledger/veriledger/internal/export"
	"github.com/veriledger/veriledger/internal/sampledata"
	"github.com/veriledger/veriledger/pkg/journal"
	"github.com/veriledger/veriledger/pkg/ledgerhash"
	"github.com/veriledger/veriledger/pkg/verify"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile    string
	digestFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vlg",
	Short: "VeriLedger journal verification CLI",
	Long: `vlg verifies the cryptographic integrity of exported ledger journals.

It validates hash chains across exported blocks, checks document revisions
against published digests using inclusion proofs, and manages a local store
of trusted digests.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.vlg")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if digestFile == "" {
			digestFile = viper.GetString("digest_file")
		}
		if digestFile == "" {
			home, _ := os.UserHomeDir()
			digestFile = filepath.Join(home, ".vlg", "digests.json")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.vlg/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&digestFile, "digest-file", "", "trusted digest store (default ~/.vlg/digests.json)")

	rootCmd.AddCommand(validateChainCmd)
	rootCmd.AddCommand(verifyRevisionCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(versionCmd)
}

// ── validate-chain ────────────────────────────────────────────────────────────

var validateExportID string

var validateChainCmd = &cobra.Command{
	Use:   "validate-chain <export-dir>",
	Short: "Verify the hash chain of an exported journal",
	Long: `validate-chain reads a journal export from a local directory, recomputes
every hash in every block, and checks that consecutive blocks are correctly
linked. Any tampering with a revision, a block, or the chain order is
reported with the address of the offending block.

When the directory holds a single export the export ID is discovered from
its manifests; pass --export-id to disambiguate.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidateChain,
}

func init() {
	validateChainCmd.Flags().StringVar(&validateExportID, "export-id", "", "Export ID (auto-discovered when the directory holds one export)")
}

func runValidateChain(cmd *cobra.Command, args []string) error {
	dir := args[0]

	exportID := validateExportID
	if exportID == "" {
		var err error
		exportID, err = discoverExportID(dir)
		if err != nil {
			return err
		}
	}

	reader := export.NewReader(nil)
	blocks, err := reader.ReadExport(dir, exportID)
	if err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	fmt.Printf("Read %d block(s) from export %s\n", len(blocks), exportID)

	if err := verify.New().Chain(blocks); err != nil {
		fmt.Printf("✗ Chain verification FAILED: %s\n", describeChainError(err))
		return fmt.Errorf("journal integrity violated")
	}

	first := blocks[0].BlockAddress
	last := blocks[len(blocks)-1].BlockAddress
	fmt.Printf("✓ Hash chain verified: %s through %s\n", first, last)
	return nil
}

// discoverExportID finds the export ID from the completed manifest when the
// directory contains exactly one export.
func discoverExportID(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.completed.manifest"))
	if err != nil {
		return "", fmt.Errorf("scan export dir: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no completed manifest found in %s", dir)
	case 1:
		name := filepath.Base(matches[0])
		return strings.TrimSuffix(name, ".completed.manifest"), nil
	default:
		return "", fmt.Errorf("%d exports found in %s; pass --export-id", len(matches), dir)
	}
}

// describeChainError names the invariant a chain verification error violated.
func describeChainError(err error) string {
	var (
		hashMismatch   *verify.HashMismatchError
		missingTxInfo  *verify.MissingTransactionInfoHashError
		missingRevRoot *verify.MissingRevisionsHashError
		entriesBad     *verify.EntriesHashMismatchError
		blockBad       *verify.BlockHashMismatchError
		linkBroken     *verify.ChainLinkageError
	)
	switch {
	case errors.As(err, &hashMismatch):
		return fmt.Sprintf("revision hash mismatch: %v", err)
	case errors.As(err, &missingTxInfo):
		return fmt.Sprintf("transaction info hash missing from entries: %v", err)
	case errors.As(err, &missingRevRoot):
		return fmt.Sprintf("revisions merkle root missing from entries: %v", err)
	case errors.As(err, &entriesBad):
		return fmt.Sprintf("entries hash mismatch: %v", err)
	case errors.As(err, &blockBad):
		return fmt.Sprintf("block hash mismatch: %v", err)
	case errors.As(err, &linkBroken):
		return fmt.Sprintf("chain linkage broken: %v", err)
	default:
		return err.Error()
	}
}

// ── verify-revision ───────────────────────────────────────────────────────────

var (
	revisionPath string
	digestPath   string
	proofPath    string
	tamperTarget string
)

var verifyRevisionCmd = &cobra.Command{
	Use:   "verify-revision",
	Short: "Verify a document revision against a published digest",
	Long: `verify-revision recomputes a revision's hash from its data and metadata,
then folds the inclusion proof onto it to check it lands on the trusted
digest.

--tamper flips a random bit in the chosen input before verifying, to
demonstrate that any alteration is caught:

  vlg verify-revision --revision rev.json --digest digest.json --proof proof.json --tamper document`,
	RunE: runVerifyRevision,
}

func init() {
	verifyRevisionCmd.Flags().StringVar(&revisionPath, "revision", "", "Revision JSON file")
	verifyRevisionCmd.Flags().StringVar(&digestPath, "digest", "", "Digest JSON file")
	verifyRevisionCmd.Flags().StringVar(&proofPath, "proof", "", "Proof JSON file")
	verifyRevisionCmd.Flags().StringVar(&tamperTarget, "tamper", "", "Flip a bit before verifying: document, digest, or proof")

	_ = verifyRevisionCmd.MarkFlagRequired("revision")
	_ = verifyRevisionCmd.MarkFlagRequired("digest")
	_ = verifyRevisionCmd.MarkFlagRequired("proof")
}

func runVerifyRevision(cmd *cobra.Command, args []string) error {
	var rev journal.Revision
	if err := readJSON(revisionPath, &rev); err != nil {
		return err
	}
	var digest journal.Digest
	if err := readJSON(digestPath, &digest); err != nil {
		return err
	}
	var proof journal.Proof
	if err := readJSON(proofPath, &proof); err != nil {
		return err
	}

	verifier := verify.New()

	if err := verifier.RevisionHash(rev); err != nil {
		fmt.Printf("✗ Revision hash does not match its data: %v\n", err)
		return fmt.Errorf("revision integrity violated")
	}
	fmt.Println("✓ Revision hash matches its data and metadata")

	documentHash := rev.Hash

	switch tamperTarget {
	case "":
	case "document":
		altered, err := ledgerhash.FlipRandomBit(documentHash)
		if err != nil {
			return err
		}
		documentHash = altered
		fmt.Println("Flipped one bit of the document hash")
	case "digest":
		altered, err := ledgerhash.FlipRandomBit(digest.Digest)
		if err != nil {
			return err
		}
		digest.Digest = altered
		fmt.Println("Flipped one bit of the digest")
	case "proof":
		if len(proof.InternalHashes) == 0 {
			return fmt.Errorf("proof has no hashes to tamper with")
		}
		altered, err := ledgerhash.FlipRandomBit(proof.InternalHashes[0])
		if err != nil {
			return err
		}
		proof.InternalHashes[0] = altered
		fmt.Println("Flipped one bit of a proof hash")
	default:
		return fmt.Errorf("unknown tamper target %q: use document, digest, or proof", tamperTarget)
	}

	valid, err := verifier.Digest(documentHash, digest.Digest, proof)
	if err != nil {
		return fmt.Errorf("verify digest: %w", err)
	}
	if !valid {
		fmt.Printf("✗ Revision is NOT covered by digest %s (tip %s)\n", digest.Digest, digest.TipAddress)
		if tamperTarget != "" {
			fmt.Println("  (expected: the tampered input was detected)")
			return nil
		}
		return fmt.Errorf("digest verification failed")
	}

	fmt.Printf("✓ Revision verified against digest %s (tip %s)\n", digest.Digest, digest.TipAddress)
	return nil
}

// ── digest ────────────────────────────────────────────────────────────────────

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Manage the local store of trusted digests",
	Long: `digest maintains trusted digests on disk so later verifications can check
revisions against a digest saved before any tampering could occur.`,
}

var digestSaveCmd = &cobra.Command{
	Use:   "save <digest-file>",
	Short: "Save a digest to the trusted store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var d journal.Digest
		if err := readJSON(args[0], &d); err != nil {
			return err
		}
		if d.Digest.IsEmpty() || !d.Digest.Valid() {
			return fmt.Errorf("digest hash must be %d bytes", ledgerhash.Size)
		}

		store := digeststore.NewFileStore(digestFile)
		if err := store.Save(context.Background(), d); err != nil {
			return fmt.Errorf("save digest: %w", err)
		}
		fmt.Printf("✓ Digest saved (tip %s) to %s\n", d.TipAddress, digestFile)
		return nil
	},
}

var digestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all trusted digests",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := digeststore.NewFileStore(digestFile)
		all, err := store.List(context.Background())
		if err != nil {
			return fmt.Errorf("list digests: %w", err)
		}
		if len(all) == 0 {
			fmt.Println("No digests stored.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STRAND\tSEQUENCE\tDIGEST")
		for _, d := range all {
			fmt.Fprintf(w, "%s\t%d\t%s\n", d.TipAddress.StrandID, d.TipAddress.SequenceNo, d.Digest)
		}
		return w.Flush()
	},
}

var digestLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the most recent trusted digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := digeststore.NewFileStore(digestFile)
		latest, err := store.Latest(context.Background())
		if errors.Is(err, digeststore.ErrNoDigests) {
			return fmt.Errorf("no digests stored in %s", digestFile)
		}
		if err != nil {
			return fmt.Errorf("load latest digest: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(latest)
	},
}

func init() {
	digestCmd.AddCommand(digestSaveCmd)
	digestCmd.AddCommand(digestListCmd)
	digestCmd.AddCommand(digestLatestCmd)
}

// ── demo ──────────────────────────────────────────────────────────────────────

var (
	demoOutDir    string
	demoBlocks    int
	demoChunkSize int
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Generate a sample journal export and verify it end-to-end",
	Long: `demo builds a hash-correct sample journal, writes it as an export
directory, then exercises the full verification surface: the chain, one
revision's hash, and an inclusion proof against the journal digest.

The digest, proof, and revision are written alongside the export so the
other commands can be tried against them:

  vlg demo --out ./demo
  vlg validate-chain ./demo
  vlg verify-revision --revision ./demo/revision.json --digest ./demo/digest.json --proof ./demo/proof.json`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoOutDir, "out", "demo", "Output directory for the generated export")
	demoCmd.Flags().IntVar(&demoBlocks, "blocks", 7, "Number of blocks to generate")
	demoCmd.Flags().IntVar(&demoChunkSize, "chunk-size", 3, "Blocks per export data file")
}

func runDemo(cmd *cobra.Command, args []string) error {
	j, err := sampledata.BuildJournal(demoBlocks)
	if err != nil {
		return fmt.Errorf("build sample journal: %w", err)
	}
	fmt.Printf("Built sample journal: %d block(s), strand %s\n", len(j.Blocks), j.StrandID)

	if err := export.Write(demoOutDir, j.ExportID, j.StrandID, j.Blocks, demoChunkSize); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Wrote export %s to %s\n", j.ExportID, demoOutDir)

	// Read the export back and verify the whole chain.
	blocks, err := export.NewReader(nil).ReadExport(demoOutDir, j.ExportID)
	if err != nil {
		return fmt.Errorf("reread export: %w", err)
	}
	verifier := verify.New()
	if err := verifier.Chain(blocks); err != nil {
		return fmt.Errorf("chain verification failed: %s", describeChainError(err))
	}
	fmt.Println("✓ Hash chain verified")

	// Verify one revision's proof against the digest.
	lastBlock := len(j.Blocks) - 1
	rev := j.Blocks[lastBlock].Revisions[0]
	if err := verifier.RevisionHash(rev); err != nil {
		return fmt.Errorf("revision hash verification failed: %w", err)
	}

	proof, err := j.Proof(lastBlock, 0)
	if err != nil {
		return fmt.Errorf("build proof: %w", err)
	}
	valid, err := verifier.Digest(rev.Hash, j.Digest.Digest, proof)
	if err != nil {
		return fmt.Errorf("verify proof: %w", err)
	}
	if !valid {
		return fmt.Errorf("proof did not reconstruct the digest")
	}
	fmt.Printf("✓ Revision %s verified against digest\n", rev.Metadata.ID)

	// Write the pieces the other commands consume.
	artifacts := map[string]any{
		"digest.json":   j.Digest,
		"proof.json":    proof,
		"revision.json": rev,
	}
	for name, v := range artifacts {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		path := filepath.Join(demoOutDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	fmt.Printf("\nArtifacts written to %s\n\n", demoOutDir)
	fmt.Println("Try:")
	fmt.Printf("  vlg validate-chain %s\n", demoOutDir)
	fmt.Printf("  vlg verify-revision --revision %[1]s/revision.json --digest %[1]s/digest.json --proof %[1]s/proof.json\n", demoOutDir)
	fmt.Printf("  vlg verify-revision --revision %[1]s/revision.json --digest %[1]s/digest.json --proof %[1]s/proof.json --tamper document\n", demoOutDir)
	fmt.Printf("  vlg digest save %s/digest.json\n", demoOutDir)
	return nil
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vlg CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vlg %s (VeriLedger)\n", version)
	},
}

// readJSON reads a JSON file into v.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
