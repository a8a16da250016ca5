// Package whitelist persists the game server's whitelist.json.
package whitelist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

// ErrCorrupt is returned with an empty list when the file is not a valid whitelist
var ErrCorrupt = core.ErrWhitelistCorrupt

// File is a whitelist stored as a JSON array of {uuid, name}
type File struct {
	path string
}

// NewFile creates a whitelist backed by path
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the whitelist location
func (f *File) Path() string {
	return f.path
}

// Read loads the entries. A missing or empty file is an empty whitelist.
func (f *File) Read(ctx context.Context) ([]core.WhitelistEntry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []core.WhitelistEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read whitelist: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []core.WhitelistEntry{}, nil
	}

	var entries []core.WhitelistEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return []core.WhitelistEntry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if entries == nil {
		entries = []core.WhitelistEntry{}
	}
	return entries, nil
}

// Write replaces the file atomically: a temp file in the same directory is
// renamed over the target so the server never reads a partial list.
func (f *File) Write(ctx context.Context, entries []core.WhitelistEntry) error {
	if entries == nil {
		entries = []core.WhitelistEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode whitelist: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".whitelist-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp whitelist: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write whitelist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write whitelist: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write whitelist: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace whitelist: %w", err)
	}
	return nil
}

var _ ports.Whitelist = (*File)(nil)
