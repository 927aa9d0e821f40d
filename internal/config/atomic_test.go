package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	t.Run("writes file with requested permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")

		require.NoError(t, AtomicWriteFile(path, []byte("hello"), 0600))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("replaces existing content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("old old old"), 0600))

		require.NoError(t, AtomicWriteFile(path, []byte("new"), 0600))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("refuses to write through symlink", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "target.json")
		link := filepath.Join(dir, "link.json")
		require.NoError(t, os.WriteFile(target, []byte("original"), 0600))
		require.NoError(t, os.Symlink(target, link))

		err := AtomicWriteFile(link, []byte("modified"), 0600)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "symlink")

		data, _ := os.ReadFile(target)
		assert.Equal(t, "original", string(data))
	})

	t.Run("creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.json")

		require.NoError(t, AtomicWriteFile(path, []byte("hello"), 0600))

		_, err := os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, AtomicWriteFile(filepath.Join(dir, "a.json"), []byte("x"), 0600))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestEnsureDir(t *testing.T) {
	t.Run("creates directory with 0700", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "new-dir")

		require.NoError(t, EnsureDir(dir, 0700))

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("succeeds if directory exists", func(t *testing.T) {
		assert.NoError(t, EnsureDir(t.TempDir(), 0700))
	})
}
