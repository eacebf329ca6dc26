// Package pyinstaller manages the packaging tool inside the provisioned
// environment: version checks, on-demand installation, and invocation
// against a generated bundle descriptor.
//
// PyInstaller is always run through the environment's interpreter
// (`python -m PyInstaller`) so that the tool, the framework it analyzes
// and the interpreter it freezes are guaranteed to be the same
// installation. The tool's exit code is propagated verbatim: anything
// already inspecting PyInstaller exit codes keeps working when the
// invocation moves behind this driver.
package pyinstaller

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mmr-tortoise/pybundle/internal/model"
	"github.com/mmr-tortoise/pybundle/internal/venv"
)

// moduleName is the import name of the packaging tool. Note the
// capitalization: the distribution is "pyinstaller" but the module is
// "PyInstaller".
const moduleName = "PyInstaller"

// Version returns the installed PyInstaller version inside the
// environment, or an error if the tool is not installed there.
func Version(envDir string) (string, error) {
	// #nosec G204 — interpreter path is derived from the project config
	cmd := exec.Command(venv.Interpreter(envDir), "-m", moduleName, "--version")

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", fmt.Errorf("pyinstaller version check failed: %s: %w", stderrStr, err)
		}
		return "", fmt.Errorf("pyinstaller version check failed: %w", err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// EnsureInstalled verifies the packaging tool is present in the
// environment, installing it on demand when the version check fails.
// Returns the tool's version string.
//
// The on-demand install exists so that `pybundle build` works right
// after `pybundle provision` even when requirements.txt does not list
// pyinstaller — the tool is build infrastructure, not an application
// dependency, and many projects deliberately keep it out of the manifest.
func EnsureInstalled(envDir string) (string, error) {
	if version, err := Version(envDir); err == nil {
		return version, nil
	}

	// #nosec G204 — interpreter path is derived from the project config
	install := exec.Command(venv.Interpreter(envDir), "-m", "pip", "install", "pyinstaller")

	var stderr strings.Builder
	install.Stdout = os.Stderr // pip chatter is diagnostics, keep stdout clean
	install.Stderr = &stderr

	if err := install.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := "pyinstaller is not installed and the on-demand installation failed"
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitToolInstallFailed, message, err)
	}

	version, err := Version(envDir)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitToolInstallFailed,
			"pyinstaller installation completed but the tool is still not runnable",
			err,
		)
	}
	return version, nil
}

// RunOptions configures a packaging run.
type RunOptions struct {
	// ProjectRoot is the working directory for the invocation. Relative
	// paths inside the descriptor resolve against it.
	ProjectRoot string

	// DistPath is where artifacts are written (PyInstaller --distpath).
	DistPath string

	// WorkPath is the scratch directory (PyInstaller --workpath).
	WorkPath string

	// Clean asks PyInstaller to wipe its cache and temporary files
	// before building (PyInstaller --clean).
	Clean bool
}

// Run invokes PyInstaller against the given descriptor file. Tool output
// streams directly to the operator — builds are long and PyInstaller's
// warnings are the primary debugging surface.
//
// On tool failure the returned CLIError carries PyInstaller's own exit
// code, so the CLI process exits with exactly that code.
func Run(envDir, descriptorPath string, opts RunOptions) error {
	args := []string{"-m", moduleName, "--noconfirm"}
	if opts.DistPath != "" {
		args = append(args, "--distpath", opts.DistPath)
	}
	if opts.WorkPath != "" {
		args = append(args, "--workpath", opts.WorkPath)
	}
	if opts.Clean {
		args = append(args, "--clean")
	}
	args = append(args, descriptorPath)

	// #nosec G204 — interpreter path and descriptor are derived from the project config
	cmd := exec.Command(venv.Interpreter(envDir), args...)
	cmd.Dir = opts.ProjectRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		code := commandExitCode(err)
		return model.WrapCLIError(
			model.ExitCode(code),
			fmt.Sprintf("pyinstaller failed with exit code %d", code),
			err,
		)
	}
	return nil
}

// commandExitCode extracts the process exit code from an exec error.
// Failures that never produced an exit code (signal death, start
// failure) map to the general error code so the CLI still exits non-zero.
func commandExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return int(model.ExitGeneralError)
}
