package venv

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// fakeEnv creates a directory tree that looks like a provisioned
// environment: pyvenv.cfg marker plus an interpreter file in the
// platform-appropriate location. The interpreter is a plain file — these
// tests exercise layout knowledge, not Python itself.
func fakeEnv(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), ".venv")
	require.NoError(t, os.MkdirAll(ScriptsDir(dir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyvenv.cfg"), []byte("home = /usr/bin\n"), 0644))
	require.NoError(t, os.WriteFile(Interpreter(dir), []byte("#!/bin/sh\n"), 0755))
	return dir
}

// TestInterpreter_Layout verifies the platform-specific interpreter path.
func TestInterpreter_Layout(t *testing.T) {
	env := filepath.Join("proj", ".venv")
	if runtime.GOOS == "windows" {
		assert.Equal(t, filepath.Join(env, "Scripts", "python.exe"), Interpreter(env))
		assert.Equal(t, filepath.Join(env, "Scripts"), ScriptsDir(env))
	} else {
		assert.Equal(t, filepath.Join(env, "bin", "python"), Interpreter(env))
		assert.Equal(t, filepath.Join(env, "bin"), ScriptsDir(env))
	}
}

// TestExists verifies the environment detection heuristics: both the
// pyvenv.cfg marker and the interpreter must be present.
func TestExists(t *testing.T) {
	m := NewManagerWithPython("python3")

	env := fakeEnv(t)
	assert.True(t, m.Exists(env))

	// A half-deleted tree (marker without interpreter) is not an environment.
	require.NoError(t, os.Remove(Interpreter(env)))
	assert.False(t, m.Exists(env))

	// Neither is a missing directory or a plain directory.
	assert.False(t, m.Exists(filepath.Join(t.TempDir(), "nope")))
	assert.False(t, m.Exists(t.TempDir()))
}

// TestRemove verifies destructive teardown and its no-op behavior on an
// absent directory (idempotence at whole-run granularity).
func TestRemove(t *testing.T) {
	m := NewManagerWithPython("python3")
	env := fakeEnv(t)

	require.NoError(t, m.Remove(env))
	_, err := os.Stat(env)
	assert.True(t, os.IsNotExist(err), "environment tree should be gone")

	// Second removal is a no-op success.
	assert.NoError(t, m.Remove(env))
}

// TestCheckImportable_NotImportable verifies the missing-framework
// failure path: a non-zero import probe surfaces ExitFrameworkMissing
// with the package name in the remediation text.
func TestCheckImportable_NotImportable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interpreter stub needs a POSIX shell")
	}
	m := NewManagerWithPython("python3")
	env := fakeEnv(t)
	stub := "#!/bin/sh\necho \"ModuleNotFoundError: No module named 'PySide6'\" >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(Interpreter(env), []byte(stub), 0755))

	err := m.CheckImportable(env, "PySide6")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitFrameworkMissing, cliErr.Code)
	assert.Contains(t, cliErr.Message, "PySide6")
}

// TestCheckImportable_Importable covers the passing probe: a zero exit
// from the interpreter means the package resolves.
func TestCheckImportable_Importable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interpreter stub needs a POSIX shell")
	}
	m := NewManagerWithPython("python3")
	env := fakeEnv(t)
	require.NoError(t, os.WriteFile(Interpreter(env), []byte("#!/bin/sh\nexit 0\n"), 0755))

	assert.NoError(t, m.CheckImportable(env, "PySide6"))
}

// TestCreate_NoInterpreter verifies the terminal failure when no base
// interpreter was found on PATH.
func TestCreate_NoInterpreter(t *testing.T) {
	m := NewManagerWithPython("")

	err := m.Create(filepath.Join(t.TempDir(), ".venv"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
}

// TestInstallRequirements_MissingManifest verifies the provisioner halts
// with a missing-prerequisite error before invoking pip at all.
func TestInstallRequirements_MissingManifest(t *testing.T) {
	m := NewManagerWithPython("python3")
	env := fakeEnv(t)

	err := m.InstallRequirements(env, filepath.Join(t.TempDir(), "requirements.txt"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigNotFound, cliErr.Code)
}

// TestParsePythonVersion covers the `python --version` output format.
func TestParsePythonVersion(t *testing.T) {
	assert.Equal(t, "3.12.4", parsePythonVersion("Python 3.12.4\n"))
	assert.Equal(t, "3.8.0", parsePythonVersion("Python 3.8.0"))
	// Unknown formats pass through trimmed.
	assert.Equal(t, "pypy 7.3", parsePythonVersion("pypy 7.3\n"))
}

// TestParseFreezeOutput verifies that the snapshot reflects pip's output
// exactly: pinned lines split into name/version, odd lines preserved
// verbatim, order kept.
func TestParseFreezeOutput(t *testing.T) {
	output := `PySide6==6.7.2
shiboken6==6.7.2

# comment pip sometimes emits
-e git+https://example.com/repo.git#egg=devtool
pyinstaller==6.10.0
`

	reqs := parseFreezeOutput(output)
	require.Len(t, reqs, 4)

	assert.Equal(t, Requirement{Name: "PySide6", Version: "6.7.2"}, reqs[0])
	assert.Equal(t, Requirement{Name: "shiboken6", Version: "6.7.2"}, reqs[1])
	assert.Equal(t, "-e git+https://example.com/repo.git#egg=devtool", reqs[2].Name)
	assert.Empty(t, reqs[2].Version)
	assert.Equal(t, Requirement{Name: "pyinstaller", Version: "6.10.0"}, reqs[3])

	// Round-trip: pinned requirements render back in pip's format.
	assert.Equal(t, "PySide6==6.7.2", reqs[0].String())
	assert.Equal(t, "-e git+https://example.com/repo.git#egg=devtool", reqs[2].String())
}

// TestParseFreezeOutput_Empty verifies an empty environment freezes to
// an empty snapshot.
func TestParseFreezeOutput_Empty(t *testing.T) {
	assert.Empty(t, parseFreezeOutput(""))
	assert.Empty(t, parseFreezeOutput("\n\n"))
}
