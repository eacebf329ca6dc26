package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// TestRunDescriptor_ValidatesAddDataSources verifies that descriptor
// generation expands the data specs first: a source that does not exist
// on disk fails the command as a configuration error instead of ending
// up as a dangling reference inside the rendered spec.
func TestRunDescriptor_ValidatesAddDataSources(t *testing.T) {
	root := t.TempDir()
	writeProjectConfig(t, root, `{"name": "demo", "addData": ["assets:assets"]}`)

	projectDir = root
	defer func() { projectDir = "" }()

	err := runDescriptor(&descriptorFlags{})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigNotFound, cliErr.Code)
	assert.Contains(t, err.Error(), "assets")
}

// TestRunDescriptor_WritesBothSpecs covers the happy path with a data
// directory in place: both layouts are rendered into the project root.
func TestRunDescriptor_WritesBothSpecs(t *testing.T) {
	root := t.TempDir()
	writeProjectConfig(t, root, `{"name": "demo", "addData": ["assets:assets"]}`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "logo.png"), []byte("png"), 0644))

	projectDir = root
	defer func() { projectDir = "" }()

	require.NoError(t, runDescriptor(&descriptorFlags{}))
	assert.FileExists(t, filepath.Join(root, "demo.onefile.spec"))
	assert.FileExists(t, filepath.Join(root, "demo.onedir.spec"))
}

// TestRunDescriptor_StdoutRequiresMode pins the flag contract: printing
// a spec needs to know which one.
func TestRunDescriptor_StdoutRequiresMode(t *testing.T) {
	root := t.TempDir()
	writeProjectConfig(t, root, `{"name": "demo"}`)

	projectDir = root
	defer func() { projectDir = "" }()

	err := runDescriptor(&descriptorFlags{toStdout: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--mode")
}
