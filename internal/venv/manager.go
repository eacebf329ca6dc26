// manager.go implements the environment provisioner: a Manager that
// removes, creates and populates the project's virtual environment by
// invoking the Python tooling.
//
// Design decisions:
//   - We shell out to `python -m venv` and `python -m pip` rather than
//     reimplementing either. pip's resolver and venv's layout are moving
//     targets; the real tools are the contract.
//   - pip is always invoked through the environment's interpreter
//     (`python -m pip`), never through the pip shim script, which avoids
//     stale-shebang problems after the environment directory moves.
//   - All failures are wrapped in model.CLIError with the workflow's
//     exit-code taxonomy, so the CLI layer maps them 1:1 to process
//     exit codes with remediation text intact.
package venv

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// Manager provisions and inspects virtual environments by invoking the
// Python CLI tooling. It is stateless apart from the resolved base
// interpreter used to create new environments.
type Manager struct {
	// basePython is the interpreter used for `python -m venv`. Resolved
	// from PATH at construction time; the environments it creates carry
	// their own interpreter copies afterwards.
	basePython string
}

// NewManager creates a Manager using the first base interpreter found on
// PATH (python3, then python).
//
// The lookup failure is deferred: a missing base interpreter only
// matters when Create is called, and reporting it there gives the
// operator a single, consistent remediation path.
func NewManager() *Manager {
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return &Manager{basePython: path}
		}
	}
	return &Manager{}
}

// NewManagerWithPython creates a Manager that uses the given interpreter
// for environment creation. Used by tests and by the containerized build
// path, where the interpreter location is known exactly.
func NewManagerWithPython(pythonPath string) *Manager {
	return &Manager{basePython: pythonPath}
}

// Interpreter returns the path of the environment's own interpreter.
// The layout differs by platform: POSIX environments use bin/python,
// Windows environments use Scripts\python.exe.
func Interpreter(envDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envDir, "Scripts", "python.exe")
	}
	return filepath.Join(envDir, "bin", "python")
}

// ScriptsDir returns the directory containing the environment's
// executables (pip, pyinstaller, ...): bin/ on POSIX, Scripts/ on Windows.
func ScriptsDir(envDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envDir, "Scripts")
	}
	return filepath.Join(envDir, "bin")
}

// Exists reports whether envDir holds a provisioned environment.
// The check looks for pyvenv.cfg (the marker file `python -m venv`
// writes) plus the interpreter itself, so a half-deleted tree does not
// count as an environment.
func (m *Manager) Exists(envDir string) bool {
	if _, err := os.Stat(filepath.Join(envDir, "pyvenv.cfg")); err != nil {
		return false
	}
	if _, err := os.Stat(Interpreter(envDir)); err != nil {
		return false
	}
	return true
}

// Remove deletes the environment directory tree. Removing a directory
// that does not exist is a no-op success, which makes the provisioner
// idempotent at whole-run granularity.
//
// A blocked removal (open file handles, typically the packaged app still
// running or a shell sitting inside the tree) returns a CLIError with
// ExitEnvBusy and a close-and-retry remediation. The caller must treat
// this as terminal: no partial environment may be left behind by a
// subsequent create.
func (m *Manager) Remove(envDir string) error {
	if _, err := os.Stat(envDir); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(envDir); err != nil {
		return model.WrapCLIError(
			model.ExitEnvBusy,
			fmt.Sprintf("failed to remove environment %s: close any programs using files inside it (shells, editors, the running app) and retry", envDir),
			err,
		)
	}
	return nil
}

// Create provisions a fresh environment at envDir using the base
// interpreter. The directory must not contain a previous environment;
// call Remove first. Create never patches an existing tree in place.
func (m *Manager) Create(envDir string) error {
	if m.basePython == "" {
		return model.NewCLIError(
			model.ExitGeneralError,
			"no Python interpreter found on PATH: install Python 3 and ensure `python3` or `python` resolves",
		)
	}

	if _, err := runCommand(m.basePython, "-m", "venv", envDir); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to create virtual environment", err)
	}
	return nil
}

// InstallRequirements installs the declared dependency list into the
// environment via `python -m pip install -r <manifest>`. A spinner on
// stderr signals progress; PySide6 alone is a multi-hundred-megabyte
// download and pip is quiet for long stretches.
//
// A missing manifest is a missing-prerequisite failure; a failed install
// halts the provisioner with pip's stderr in the message.
func (m *Manager) InstallRequirements(envDir, requirementsPath string) error {
	if _, err := os.Stat(requirementsPath); err != nil {
		return model.WrapCLIError(
			model.ExitConfigNotFound,
			fmt.Sprintf("dependency manifest not found: %s (create it with the packages the application needs)", requirementsPath),
			err,
		)
	}

	bar := newSpinner(fmt.Sprintf("Installing dependencies from %s", filepath.Base(requirementsPath)))
	defer finishSpinner(bar)

	done := make(chan struct{})
	go tickSpinner(bar, done)
	defer close(done)

	if _, err := runCommand(Interpreter(envDir), "-m", "pip", "install", "-r", requirementsPath); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "dependency installation failed", err)
	}
	return nil
}

// CheckImportable verifies that the given package resolves inside the
// environment by running `python -c "import <pkg>"`. This is the literal
// observable the build depends on, not a directory heuristic.
//
// Returns a CLIError with ExitFrameworkMissing when the import fails.
func (m *Manager) CheckImportable(envDir, pkg string) error {
	if _, err := runCommand(Interpreter(envDir), "-c", fmt.Sprintf("import %s", pkg)); err != nil {
		return model.WrapCLIError(
			model.ExitFrameworkMissing,
			fmt.Sprintf("%s is not importable in %s: run `pybundle provision` to reinstall dependencies", pkg, envDir),
			err,
		)
	}
	return nil
}

// PythonVersion returns the environment interpreter's version string,
// e.g. "3.12.4". Parsed from `python --version` output ("Python 3.12.4").
func (m *Manager) PythonVersion(envDir string) (string, error) {
	output, err := runCommand(Interpreter(envDir), "--version")
	if err != nil {
		return "", err
	}
	return parsePythonVersion(output), nil
}

// Freeze snapshots the environment's installed package set via
// `python -m pip freeze`. The returned list preserves pip's output
// order, so the lock file diffs cleanly between provisioning runs.
func (m *Manager) Freeze(envDir string) ([]Requirement, error) {
	output, err := runCommand(Interpreter(envDir), "-m", "pip", "freeze")
	if err != nil {
		return nil, fmt.Errorf("pip freeze failed: %w", err)
	}
	return parseFreezeOutput(output), nil
}

// runCommand executes a command, capturing stdout and stderr separately.
// On success it returns stdout. On failure it returns an error carrying
// the command line and trimmed stderr, which is what the operator needs
// to see when pip or venv misbehaves.
func runCommand(name string, args ...string) (string, error) {
	// #nosec G204 — command names and args are constructed internally
	cmd := exec.Command(name, args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("%s %s failed", filepath.Base(name), strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", fmt.Errorf("%s: %w", message, err)
	}

	return stdout.String(), nil
}

// parsePythonVersion extracts the bare version number from
// `python --version` output. Unknown formats are returned trimmed
// rather than erroring; the version is informational.
func parsePythonVersion(output string) string {
	trimmed := strings.TrimSpace(output)
	if rest, found := strings.CutPrefix(trimmed, "Python "); found {
		return rest
	}
	return trimmed
}

// parseFreezeOutput parses `pip freeze` lines into Requirements.
//
// Regular lines have the form "name==version". Anything else that pip
// emits (editable installs "-e ...", VCS pins, "package @ file://" URLs)
// is preserved verbatim in the Name field with an empty Version, so the
// lock file always reflects the full freeze output.
func parseFreezeOutput(output string) []Requirement {
	var reqs []Requirement
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, version, found := strings.Cut(line, "==")
		if !found {
			reqs = append(reqs, Requirement{Name: line})
			continue
		}
		reqs = append(reqs, Requirement{Name: name, Version: version})
	}
	return reqs
}

// newSpinner builds an indeterminate progress spinner on stderr.
// Hidden in CI logs, where spinner frames only produce noise.
func newSpinner(description string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions(-1, progressbar.OptionSetVisibility(false))
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
	)
}

// tickSpinner advances the spinner until done is closed.
func tickSpinner(bar *progressbar.ProgressBar, done <-chan struct{}) {
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

// finishSpinner clears the spinner line so command output that follows
// starts on a clean line.
func finishSpinner(bar *progressbar.ProgressBar) {
	_ = bar.Clear()
}
