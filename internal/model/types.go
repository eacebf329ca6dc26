// Package model defines the domain types for the pybundle CLI.
//
// All entities in this package are transient, in-memory representations of
// the packaging workflow's state: the bundle output layout, the CLI error
// taxonomy with its exit codes, and the build result reported to the user.
// The workflow itself keeps no persistent state beyond the file system
// (the environment directory, the generated descriptors, and the artifacts).
package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// BundleMode represents the packaging output layout produced by PyInstaller.
// There are exactly two layouts:
//
//	onefile — a single self-contained executable that unpacks itself
//	          to a temporary directory at startup
//	onedir  — a directory bundle containing the executable next to all
//	          of its libraries and data files
type BundleMode string

const (
	// ModeOnefile produces a single self-contained executable.
	// This is the default mode for the build command.
	ModeOnefile BundleMode = "onefile"

	// ModeOnedir produces a directory bundle. Startup is faster than
	// onefile (no self-extraction step) at the cost of distributing a
	// whole directory tree.
	ModeOnedir BundleMode = "onedir"
)

// String returns the string representation of BundleMode.
// This satisfies the fmt.Stringer interface for CLI output and logging.
func (m BundleMode) String() string {
	return string(m)
}

// IsValid checks whether the BundleMode value is one of the two
// predefined layouts.
func (m BundleMode) IsValid() bool {
	switch m {
	case ModeOnefile, ModeOnedir:
		return true
	default:
		return false
	}
}

// ParseBundleMode converts a string to a BundleMode.
// Returns an error if the string does not match a valid layout.
func ParseBundleMode(s string) (BundleMode, error) {
	mode := BundleMode(strings.ToLower(s))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid bundle mode: %q (valid: onefile, onedir)", s)
	}
	return mode, nil
}

// DescriptorFilename returns the file name of the generated PyInstaller
// spec file for this mode, e.g. "file-sorter.onefile.spec".
//
// The two descriptors are separate files rather than one parameterized
// file so that each can be invoked (and inspected) on its own, and so
// the build driver selects between them purely by path.
func (m BundleMode) DescriptorFilename(appName string) string {
	return fmt.Sprintf("%s.%s.spec", appName, m)
}

// ArtifactPath returns the path of the artifact this mode produces under
// the given dist directory: the executable itself for onefile, the bundle
// directory for onedir. On Windows the onefile executable carries an .exe
// suffix.
func (m BundleMode) ArtifactPath(distDir, appName string) string {
	if m == ModeOnedir {
		return filepath.Join(distDir, appName)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(distDir, appName+".exe")
	}
	return filepath.Join(distDir, appName)
}

// appNameRegex validates application names: alphanumeric, hyphens and
// underscores, starting with an alphanumeric character. The name becomes
// both a file name stem (descriptors, artifacts) and a Docker label value,
// so the character set is deliberately conservative.
var appNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateAppName checks whether the given name can be used as the
// application/artifact name.
func ValidateAppName(name string) error {
	if name == "" {
		return fmt.Errorf("application name must not be empty")
	}
	if !appNameRegex.MatchString(name) {
		return fmt.Errorf("invalid application name %q: must contain only alphanumeric characters, hyphens and underscores, and start with an alphanumeric", name)
	}
	return nil
}

// BuildResult describes a completed packaging run. It is the payload of
// the build command's success output (text or JSON).
type BuildResult struct {
	// App is the application name from the project configuration.
	App string `json:"app"`

	// Mode is the layout that was built.
	Mode BundleMode `json:"mode"`

	// Descriptor is the path of the PyInstaller spec file that was used.
	Descriptor string `json:"descriptor"`

	// ArtifactPath is the path of the produced executable (onefile) or
	// bundle directory (onedir).
	ArtifactPath string `json:"artifactPath"`

	// InContainer reports whether the build ran inside a Docker container.
	InContainer bool `json:"inContainer"`

	// Elapsed is the wall-clock duration of the PyInstaller invocation.
	Elapsed time.Duration `json:"elapsedNs"`
}

// ExitCode defines the CLI exit codes. These codes let scripts and CI
// systems programmatically distinguish precondition failures from tool
// failures.
//
// Note: when the packaging tool itself fails, the build command exits with
// the tool's OWN exit code rather than one of these constants, so that the
// driver is transparent to anything already inspecting PyInstaller's codes.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigNotFound indicates pybundle.jsonc was not found or could
	// not be parsed.
	ExitConfigNotFound ExitCode = 2

	// ExitEnvNotFound indicates the provisioned environment (or its
	// interpreter) does not exist. Remediation: run `pybundle provision`.
	ExitEnvNotFound ExitCode = 3

	// ExitFrameworkMissing indicates the target GUI framework is not
	// importable inside the provisioned environment.
	ExitFrameworkMissing ExitCode = 4

	// ExitToolInstallFailed indicates PyInstaller was missing and the
	// on-demand installation failed.
	ExitToolInstallFailed ExitCode = 5

	// ExitDockerNotRunning indicates the Docker daemon is not accessible
	// (only relevant for `build --in-container`).
	ExitDockerNotRunning ExitCode = 6

	// ExitEnvBusy indicates the environment directory could not be removed,
	// typically because an open handle (editor, shell, running app) holds
	// a file inside it. Remediation: close consumers and retry.
	ExitEnvBusy ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description. For precondition
	// failures it includes the operator remediation hint.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
