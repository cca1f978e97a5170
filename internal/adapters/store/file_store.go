package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/junk-scan/internal/core"
)

const (
	checkpointFile = "scan_progress.json"
	resultsFile    = "junk_addresses.json"
)

// FileStore keeps scan state as JSON files in one directory: the
// in-progress checkpoint, the cumulative per-address counts from
// completed runs, and one timestamped export per run that found new
// addresses. Checkpoint and results writes go through a temp file and
// rename, so a crash cannot leave a truncated file behind.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Load reads the checkpoint, returning (nil, nil) when none exists.
func (s *FileStore) Load(_ context.Context) (*core.Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, checkpointFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var cp core.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	if cp.EmailCount == nil {
		cp.EmailCount = make(map[string]int)
	}
	return &cp, nil
}

// Save writes the checkpoint atomically.
func (s *FileStore) Save(_ context.Context, cp *core.Checkpoint) error {
	if err := s.writeJSON(checkpointFile, cp); err != nil {
		return err
	}
	s.logger.Debug("Progress saved",
		zap.Int("processed", cp.Processed),
		zap.String("file", checkpointFile))
	return nil
}

// Clear removes the checkpoint; a missing file is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	err := os.Remove(filepath.Join(s.dir, checkpointFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing checkpoint: %w", err)
	}
	return nil
}

// LoadCounts reads the historical results file, returning an empty map
// when none exists.
func (s *FileStore) LoadCounts(_ context.Context) (map[string]int, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, resultsFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}

	counts := make(map[string]int)
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	return counts, nil
}

// SaveCounts overwrites the historical results file atomically.
func (s *FileStore) SaveCounts(_ context.Context, counts map[string]int) error {
	return s.writeJSON(resultsFile, counts)
}

// SaveNewAddresses writes the sorted new-address list to a timestamped
// file that is never overwritten by later runs.
func (s *FileStore) SaveNewAddresses(_ context.Context, addrs []string) (string, error) {
	name := fmt.Sprintf("new_addresses_%s.json", time.Now().Format("20060102_150405"))
	if err := s.writeJSON(name, addrs); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// writeJSON marshals v and replaces dir/name via temp file + rename.
func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
