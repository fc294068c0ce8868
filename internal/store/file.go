package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/edgewatch/edgewatch/internal/guard"
	"github.com/edgewatch/edgewatch/internal/ledger"
)

// fileRecord is the on-disk layout: both named records in one JSON file.
type fileRecord struct {
	Contract *guard.CommitmentContract `json:"contract,omitempty"`
	Day      *ledger.DayState          `json:"day,omitempty"`
}

// File persists state to a single JSON file, rewritten wholesale on every
// save via a temp-file rename. Suits the single-operator local deployment.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a file-backed store at path. The file is created lazily
// on first save.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) LoadContract(_ context.Context) (*guard.CommitmentContract, error) {
	rec, err := f.read()
	if err != nil {
		return nil, err
	}
	return rec.Contract, nil
}

func (f *File) SaveContract(_ context.Context, c *guard.CommitmentContract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.readLocked()
	if err != nil {
		return err
	}
	rec.Contract = c
	return f.writeLocked(rec)
}

func (f *File) LoadDay(_ context.Context) (*ledger.DayState, error) {
	rec, err := f.read()
	if err != nil {
		return nil, err
	}
	return rec.Day, nil
}

func (f *File) SaveDay(_ context.Context, d *ledger.DayState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, err := f.readLocked()
	if err != nil {
		return err
	}
	rec.Day = d
	return f.writeLocked(rec)
}

func (f *File) Close() error { return nil }

func (f *File) read() (fileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked()
}

func (f *File) readLocked() (fileRecord, error) {
	var rec fileRecord
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return fileRecord{}, fmt.Errorf("decode state file %s: %w", f.path, err)
	}
	return rec, nil
}

func (f *File) writeLocked(rec fileRecord) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, f.path)
}
