// Package export reads and writes journal exports on the local filesystem.
//
// An export is a directory containing a started manifest, a completed
// manifest listing the data files in order, and the data files themselves.
// Data files are named <strandID>.<firstSequenceNo>-<lastSequenceNo>.json
// and hold a JSON array of journal blocks; the sequence numbers embedded in
// the name are validated against the first and last block of the file.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/veriledger/veriledger/pkg/journal"
	"go.uber.org/zap"
)

// Sentinel errors for missing export preconditions.
var (
	ErrStartedManifestNotFound   = errors.New("started manifest not found")
	ErrCompletedManifestNotFound = errors.New("completed manifest not found")
)

// manifest is the completed-manifest payload: data file names in the order
// their blocks appear in the journal.
type manifest struct {
	Keys []string `json:"keys"`
}

func startedManifestName(exportID string) string {
	return exportID + ".started.manifest"
}

func completedManifestName(exportID string) string {
	return exportID + ".completed.manifest"
}

// Reader loads journal blocks from an export directory.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a Reader. A nil logger disables progress logging.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// ReadExport reads the export identified by exportID from dir and returns
// its blocks in journal order. Both manifests must be present, and each
// data file's content must match the sequence range in its name.
func (r *Reader) ReadExport(dir, exportID string) ([]journal.Block, error) {
	if _, err := os.Stat(filepath.Join(dir, startedManifestName(exportID))); err != nil {
		return nil, fmt.Errorf("%w: export %s in %s", ErrStartedManifestNotFound, exportID, dir)
	}

	manifestPath := filepath.Join(dir, completedManifestName(exportID))
	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: export %s in %s", ErrCompletedManifestNotFound, exportID, dir)
	}
	var m manifest
	if err := json.Unmarshal(manifestData, &m); err != nil {
		return nil, fmt.Errorf("parse completed manifest %s: %w", manifestPath, err)
	}
	r.logger.Info("read completed manifest",
		zap.String("export_id", exportID),
		zap.Int("data_files", len(m.Keys)),
	)

	var blocks []journal.Block
	for _, key := range m.Keys {
		fileBlocks, err := r.readDataFile(dir, key)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, fileBlocks...)
	}
	return blocks, nil
}

// readDataFile loads one data file and validates its block range against
// the sequence numbers embedded in the file name.
func (r *Reader) readDataFile(dir, key string) ([]journal.Block, error) {
	path := filepath.Join(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file %s: %w", path, err)
	}
	var blocks []journal.Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", path, err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("data file %s contains no blocks", path)
	}

	first, last, err := parseKeyRange(key)
	if err != nil {
		return nil, err
	}
	if got := blocks[0].BlockAddress.SequenceNo; got != first {
		return nil, fmt.Errorf("data file %s: first block sequence %d does not match key range start %d", key, got, first)
	}
	if got := blocks[len(blocks)-1].BlockAddress.SequenceNo; got != last {
		return nil, fmt.Errorf("data file %s: last block sequence %d does not match key range end %d", key, got, last)
	}

	r.logger.Info("read data file", zap.String("key", key), zap.Int("blocks", len(blocks)))
	return blocks, nil
}

// parseKeyRange extracts the first and last sequence numbers from a data
// file name of the form <strandID>.<first>-<last>.json.
func parseKeyRange(key string) (first, last int64, err error) {
	parts := strings.Split(key, ".")
	if len(parts) < 3 {
		return 0, 0, fmt.Errorf("data file name %q does not match <strand>.<first>-<last>.json", key)
	}
	rangePart := parts[len(parts)-2]
	bounds := strings.SplitN(rangePart, "-", 2)
	if len(bounds) != 2 {
		return 0, 0, fmt.Errorf("data file name %q has malformed sequence range %q", key, rangePart)
	}
	first, err = strconv.ParseInt(bounds[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("data file name %q has malformed range start: %w", key, err)
	}
	last, err = strconv.ParseInt(bounds[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("data file name %q has malformed range end: %w", key, err)
	}
	return first, last, nil
}

// Write lays out an export directory for the given blocks: both manifests
// plus data files of at most chunkSize blocks each. The blocks must be in
// journal order and share a strand.
func Write(dir, exportID, strandID string, blocks []journal.Block, chunkSize int) error {
	if len(blocks) == 0 {
		return fmt.Errorf("cannot write an export with no blocks")
	}
	if chunkSize <= 0 {
		chunkSize = len(blocks)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	started := map[string]string{"exportId": exportID, "strandId": strandID}
	if err := writeJSON(filepath.Join(dir, startedManifestName(exportID)), started); err != nil {
		return err
	}

	var keys []string
	for start := 0; start < len(blocks); start += chunkSize {
		end := start + chunkSize
		if end > len(blocks) {
			end = len(blocks)
		}
		chunk := blocks[start:end]
		key := fmt.Sprintf("%s.%d-%d.json",
			strandID,
			chunk[0].BlockAddress.SequenceNo,
			chunk[len(chunk)-1].BlockAddress.SequenceNo,
		)
		if err := writeJSON(filepath.Join(dir, key), chunk); err != nil {
			return err
		}
		keys = append(keys, key)
	}

	return writeJSON(filepath.Join(dir, completedManifestName(exportID)), manifest{Keys: keys})
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
