package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/usamitakanari/discord-bot/internal/domain"
)

// FileLedger keeps the set of delivered keys in a flat JSON array on disk.
// The whole set is rewritten through a temp file and rename so a kill
// mid-write can never corrupt the previous state.
type FileLedger struct {
	path string
	keys map[string]struct{}
}

var _ domain.DeliveryLedger = (*FileLedger)(nil)

// OpenFileLedger loads the ledger from path. A missing file is an empty set.
func OpenFileLedger(path string) (*FileLedger, error) {
	ledger := &FileLedger{path: path, keys: make(map[string]struct{})}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ledger, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	for _, key := range keys {
		ledger.keys[key] = struct{}{}
	}
	return ledger, nil
}

// Seen reports whether key was already delivered.
func (l *FileLedger) Seen(key string) bool {
	_, ok := l.keys[key]
	return ok
}

// Record adds key and persists the full set synchronously.
func (l *FileLedger) Record(key string) error {
	if _, ok := l.keys[key]; ok {
		return nil
	}
	l.keys[key] = struct{}{}
	if err := l.persist(); err != nil {
		delete(l.keys, key)
		return err
	}
	return nil
}

// Len returns the number of recorded keys.
func (l *FileLedger) Len() int {
	return len(l.keys)
}

func (l *FileLedger) persist() error {
	keys := make([]string, 0, len(l.keys))
	for key := range l.keys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	raw, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	return writeAtomic(l.path, raw)
}

// writeAtomic replaces path with data via a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
