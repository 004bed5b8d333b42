// Package jsonstate persists posted state as a single JSON document.
//
// Layout:
//
//	{
//	  "<item_id>": {"posted_at": "<RFC3339>", "platform_post_id": "<id>"},
//	  ...
//	}
//
// Unknown record fields are ignored on read. The older flat layout,
// {"posted_ids": ["<item_id>", ...]}, is migrated on load.
package jsonstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/autopost/internal/core/ledger"
	"github.com/example/autopost/internal/ports/secondary"
)

const legacyKey = "posted_ids"

// Store implements secondary.StateStore backed by a JSON file.
type Store struct {
	path string
}

// NewStore creates a JSON state store at path. The file need not exist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Location returns the state file path.
func (s *Store) Location() string {
	return s.path
}

type recordJSON struct {
	PostedAt       time.Time `json:"posted_at"`
	PlatformPostID string    `json:"platform_post_id,omitempty"`
	Source         string    `json:"source,omitempty"`
}

// Load reads the state file. A missing file is an empty state.
func (s *Store) Load(ctx context.Context) (ledger.State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ledger.New(), nil
	}
	if err != nil {
		return ledger.State{}, fmt.Errorf("%w: failed to read %s: %v", secondary.ErrStoreUnavailable, s.path, err)
	}

	state, err := decode(data, func() time.Time { return s.modTime() })
	if err != nil {
		return ledger.State{}, fmt.Errorf("%w: state file %s could not be parsed: %v", secondary.ErrStoreCorrupt, s.path, err)
	}
	return state, nil
}

func (s *Store) modTime() time.Time {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime().UTC()
}

func decode(data []byte, legacyTime func() time.Time) (ledger.State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ledger.State{}, err
	}
	if raw == nil {
		return ledger.State{}, errors.New("top-level value is not an object")
	}

	// Legacy ids go first so a keyed record for the same id overrides them.
	records := make([]ledger.PostRecord, 0, len(raw))
	if msg, ok := raw[legacyKey]; ok {
		if trimmed := bytes.TrimSpace(msg); len(trimmed) > 0 && trimmed[0] == '[' {
			var ids []string
			if err := json.Unmarshal(trimmed, &ids); err != nil {
				return ledger.State{}, fmt.Errorf("legacy %s: %w", legacyKey, err)
			}
			postedAt := legacyTime()
			for _, legacyID := range ids {
				records = append(records, ledger.PostRecord{
					ItemID:   legacyID,
					PostedAt: postedAt,
					Source:   ledger.SourceLegacy,
				})
			}
			delete(raw, legacyKey)
		}
	}

	for id, msg := range raw {
		var rec recordJSON
		if err := json.Unmarshal(msg, &rec); err != nil {
			return ledger.State{}, fmt.Errorf("record %q: %w", id, err)
		}
		if rec.PostedAt.IsZero() {
			return ledger.State{}, fmt.Errorf("record %q: missing posted_at", id)
		}
		records = append(records, ledger.PostRecord{
			ItemID:         id,
			PostedAt:       rec.PostedAt.UTC(),
			PlatformPostID: rec.PlatformPostID,
			Source:         rec.Source,
		})
	}
	return ledger.FromRecords(records...), nil
}

func encode(state ledger.State) ([]byte, error) {
	out := make(map[string]recordJSON, state.Len())
	for _, r := range state.Records() {
		out[r.ItemID] = recordJSON{
			PostedAt:       r.PostedAt.UTC(),
			PlatformPostID: r.PlatformPostID,
			Source:         r.Source,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Save atomically replaces the state file: the new content is written to a
// temporary file in the same directory, synced, and renamed over the target.
func (s *Store) Save(ctx context.Context, state ledger.State) error {
	data, err := encode(state)
	if err != nil {
		return fmt.Errorf("%w: failed to encode state: %v", secondary.ErrStoreUnavailable, err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", secondary.ErrStoreUnavailable, s.path, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true

	// Persist the rename itself. Not every platform supports syncing a directory.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// Ensure Store implements the interface
var _ secondary.StateStore = (*Store)(nil)
