package whitelist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawcraft/gatekeeper/core"
)

func TestFile_ReadWrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "whitelist.json"))

	t.Run("missing file", func(t *testing.T) {
		entries, err := f.Read(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("round trip", func(t *testing.T) {
		want := []core.WhitelistEntry{
			{UUID: core.OfflineUUID("Bob").String(), Name: "Bob"},
			{UUID: core.OfflineUUID("Carol").String(), Name: "Carol"},
		}
		require.NoError(t, f.Write(ctx, want))

		got, err := f.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		raw, err := os.ReadFile(f.Path())
		require.NoError(t, err)
		assert.Contains(t, string(raw), "\n  {\n    \"uuid\"")
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("corrupt file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(f.Path(), []byte("{not json"), 0o644))
		entries, err := f.Read(ctx)
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.Empty(t, entries)
	})

	t.Run("empty file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(f.Path(), []byte("  \n"), 0o644))
		entries, err := f.Read(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unwritable directory", func(t *testing.T) {
		bad := NewFile(filepath.Join(dir, "missing-dir", "whitelist.json"))
		assert.Error(t, bad.Write(ctx, nil))
	})
}
