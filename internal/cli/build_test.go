package cli

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/pybundle/internal/bundle"
	"github.com/mmr-tortoise/pybundle/internal/model"
	"github.com/mmr-tortoise/pybundle/internal/venv"
)

// fakeHostEnv lays out a project root with a provisioned-looking
// environment whose interpreter is a shell stub exiting with the given
// code. Every python invocation against this environment fails or
// succeeds uniformly, which is enough to pin down where the build
// pipeline stops.
func fakeHostEnv(t *testing.T, cfg *bundle.Config, interpreterScript string) string {
	t.Helper()

	root := t.TempDir()
	envDir := cfg.VenvPath(root)
	require.NoError(t, os.MkdirAll(venv.ScriptsDir(envDir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "pyvenv.cfg"), []byte("home = /usr/bin\n"), 0644))
	require.NoError(t, os.WriteFile(venv.Interpreter(envDir), []byte(interpreterScript), 0755))
	return root
}

// TestRunHostBuild_MissingEnvironment verifies the first guard: no
// environment means exit 3 with the provision remediation, before any
// interpreter is executed.
func TestRunHostBuild_MissingEnvironment(t *testing.T) {
	cfg := &bundle.Config{}
	cfg.ApplyDefaults()

	err := runHostBuild(t.TempDir(), cfg, "unused.spec", false)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitEnvNotFound, cliErr.Code)
	assert.Contains(t, cliErr.Message, "pybundle provision")
}

// TestRunHostBuild_HaltsWhenFrameworkMissing verifies the second guard:
// when the framework import probe fails, the pipeline stops with exit 4.
// The same stub interpreter would make every later step fail with a
// different code (5 for the tool install, the stub's own code for the
// tool run), so exit 4 proves the packaging tool was never consulted.
func TestRunHostBuild_HaltsWhenFrameworkMissing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interpreter stub needs a POSIX shell")
	}

	cfg := &bundle.Config{}
	cfg.ApplyDefaults()
	root := fakeHostEnv(t, cfg, "#!/bin/sh\nexit 1\n")

	err := runHostBuild(root, cfg, "unused.spec", false)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitFrameworkMissing, cliErr.Code)
}
