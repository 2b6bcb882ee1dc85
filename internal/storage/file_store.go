package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/FSM1/cipher-box-sub011/internal/audit"
	"github.com/FSM1/cipher-box-sub011/internal/tee"
)

// FileStateStore keeps the epoch state in a single JSON file.
type FileStateStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStateStore(path string) *FileStateStore {
	_ = os.MkdirAll(filepath.Dir(path), 0700)
	return &FileStateStore{path: path}
}

func (f *FileStateStore) Load(_ context.Context) (tee.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return tee.State{}, ErrNotFound
	}
	if err != nil {
		return tee.State{}, err
	}
	var s tee.State
	if err := json.Unmarshal(b, &s); err != nil {
		return tee.State{}, err
	}
	return s, nil
}

func (f *FileStateStore) Save(_ context.Context, s tee.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	// Write-then-rename so a crash mid-write never truncates the state.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// FileAuditTrail appends rotation records to a JSONL file, one hash-chained
// entry per line. The chain is verified on open.
type FileAuditTrail struct {
	path  string
	mu    sync.Mutex
	trail *audit.Trail
}

func OpenFileAuditTrail(path string) (*FileAuditTrail, error) {
	_ = os.MkdirAll(filepath.Dir(path), 0700)

	entries, err := readTrailFile(path)
	if err != nil {
		return nil, err
	}
	trail, err := audit.Load(entries)
	if err != nil {
		return nil, err
	}
	return &FileAuditTrail{path: path, trail: trail}, nil
}

func readTrailFile(path string) ([]audit.Entry, error) {
	fh, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var entries []audit.Entry
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e audit.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

func (f *FileAuditTrail) Record(_ context.Context, rec tee.RotationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, err := f.trail.Append(rec)
	if err != nil {
		return err
	}
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer fh.Close()
	if _, err := fh.Write(append(line, '\n')); err != nil {
		return err
	}
	return fh.Sync()
}

// Entries returns a copy of the verified trail.
func (f *FileAuditTrail) Entries() []audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trail.Entries()
}
