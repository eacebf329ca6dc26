package venv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteLock_ReadLock verifies the snapshot survives serialization:
// package order, version pins and the verbatim non-standard entries.
func TestWriteLock_ReadLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFilename)

	original := &LockFile{
		App:         "file-sorter",
		Python:      "3.12.4",
		GeneratedAt: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		Packages: []Requirement{
			{Name: "PySide6", Version: "6.7.2"},
			{Name: "shiboken6", Version: "6.7.2"},
			{Name: "-e git+https://example.com/repo.git#egg=devtool"},
		},
	}

	require.NoError(t, WriteLock(path, original))

	loaded, err := ReadLock(path)
	require.NoError(t, err)

	assert.Equal(t, original.App, loaded.App)
	assert.Equal(t, original.Python, loaded.Python)
	assert.True(t, original.GeneratedAt.Equal(loaded.GeneratedAt))
	assert.Equal(t, original.Packages, loaded.Packages)
}

// TestWriteLock_Header verifies the explanatory comment survives at the
// top of the file — YAML comments are the lock file's documentation.
func TestWriteLock_Header(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFilename)
	require.NoError(t, WriteLock(path, &LockFile{App: "app"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Generated by pybundle provision"))
}

// TestReadLock_Missing verifies the error path for an absent lock file.
func TestReadLock_Missing(t *testing.T) {
	_, err := ReadLock(filepath.Join(t.TempDir(), LockFilename))
	assert.Error(t, err)
}
