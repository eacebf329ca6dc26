// Package bundle — config.go loads and validates the pybundle.jsonc
// project configuration file.
//
// pybundle.jsonc is JSONC (JSON with Comments), so this file uses
// github.com/tidwall/jsonc to strip comments before parsing with the
// standard encoding/json library — the same approach the Dev Container
// ecosystem uses for devcontainer.json.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// ConfigFilename is the conventional name of the project configuration
// file, looked up relative to the project root.
const ConfigFilename = "pybundle.jsonc"

// Default values applied by ApplyDefaults when the corresponding field
// is absent from pybundle.jsonc. They encode the conventional layout of
// a PySide6 desktop application project.
const (
	// DefaultEntryScript is the entry-point module to package.
	DefaultEntryScript = "main.py"

	// DefaultVenvDir is the environment directory relative to the project root.
	DefaultVenvDir = ".venv"

	// DefaultRequirements is the dependency manifest file.
	DefaultRequirements = "requirements.txt"

	// DefaultFramework is the importable package whose presence gates a build.
	DefaultFramework = "PySide6"

	// DefaultImage is the container image used for --in-container builds.
	DefaultImage = "python:3.12-slim-bookworm"

	// DistDirName and BuildDirName are PyInstaller's output and scratch
	// directories, fixed relative to the project root.
	DistDirName  = "dist"
	BuildDirName = "build"
)

// defaultHiddenImports lists the modules PyInstaller's static analysis
// tends to miss for a PySide6 application. Used when pybundle.jsonc does
// not set hiddenImports at all (an explicit empty list disables them).
var defaultHiddenImports = []string{
	"PySide6.QtCore",
	"PySide6.QtGui",
	"PySide6.QtWidgets",
	"shiboken6",
}

// defaultExclude is the exclusion list applied to the packaging tool's
// full manifest. A plain QtWidgets application does not need the heavy
// Qt subsystems (WebEngine, Qml/Quick, 3D, ...) that PySide6 wheels ship,
// and stripping them cuts the bundle size by hundreds of megabytes.
//
// Patterns are substrings matched against slash-normalized destination
// paths, so they hit both POSIX and Windows manifests.
var defaultExclude = []string{
	"PySide6/Qt6/translations",
	"PySide6/examples",
	"PySide6/glue",
	"PySide6/typesystems",
	"Qt63D",
	"Qt6Charts",
	"Qt6DataVisualization",
	"Qt6Designer",
	"Qt6Pdf",
	"Qt6Quick",
	"Qt6Qml",
	"Qt6ShaderTools",
	"Qt6VirtualKeyboard",
	"Qt6WebChannel",
	"Qt6WebEngine",
	"Qt6WebSockets",
	"QtWebEngineProcess",
	"lupdate",
	"lrelease",
	"opengl32sw",
	"qml/",
}

// Config is the parsed pybundle.jsonc project configuration.
//
// encoding/json silently ignores unknown fields, so forward-compatible
// additions to the file do not break older binaries.
type Config struct {
	// Name is the application/artifact name. When empty, it is derived
	// from the entry script's base name (e.g. "main.py" → "main").
	Name string `json:"name"`

	// EntryScript is the entry-point module handed to PyInstaller.
	EntryScript string `json:"entryScript,omitempty"`

	// VenvDir is the environment directory, relative to the project root.
	VenvDir string `json:"venvDir,omitempty"`

	// Requirements is the dependency manifest path, relative to the
	// project root.
	Requirements string `json:"requirements,omitempty"`

	// Framework is the importable package that must resolve inside the
	// environment before a build is attempted.
	Framework string `json:"framework,omitempty"`

	// HiddenImports lists importable module names that must be bundled
	// even though static analysis does not discover them.
	// nil → PySide6 defaults; explicit [] → no hidden imports.
	HiddenImports []string `json:"hiddenImports,omitempty"`

	// Exclude is the manifest exclusion list: any entry whose normalized
	// destination path contains one of these substrings is dropped.
	// nil → PySide6 defaults; explicit [] → keep everything.
	Exclude []string `json:"exclude,omitempty"`

	// AddData lists extra data specs in "source:dest" form, e.g.
	// "assets:assets". Sources are relative to the project root.
	AddData []string `json:"addData,omitempty"`

	// Windowed suppresses the console window of the packaged app.
	// nil defaults to true — this is a GUI packaging workflow.
	Windowed *bool `json:"windowed,omitempty"`

	// Icon is the application icon path, relative to the project root.
	// Empty means no icon is embedded.
	Icon string `json:"icon,omitempty"`

	// Image is the container image for `build --in-container`.
	Image string `json:"image,omitempty"`
}

// FindConfig locates pybundle.jsonc by walking upward from startDir.
// It returns the directory containing the file (the project root) and
// the file's absolute path.
//
// Returns a model.CLIError with ExitConfigNotFound when no configuration
// file exists anywhere on the path to the filesystem root.
func FindConfig(startDir string) (projectRoot, configPath string, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", "", model.WrapCLIError(model.ExitGeneralError, "failed to resolve start directory", err)
	}

	for {
		candidate := filepath.Join(dir, ConfigFilename)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return dir, candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root without finding the file.
			return "", "", model.NewCLIError(
				model.ExitConfigNotFound,
				fmt.Sprintf("%s not found in %s or any parent directory — run pybundle from the project root or create the file", ConfigFilename, startDir),
			)
		}
		dir = parent
	}
}

// LoadConfig reads a pybundle.jsonc file, strips JSONC comments, parses
// it, applies defaults and validates the result.
//
// Returns a CLIError with ExitConfigNotFound if the file does not exist
// or cannot be parsed — both are missing-prerequisite failures from the
// operator's point of view.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigNotFound,
				fmt.Sprintf("%s not found: %s", ConfigFilename, configPath),
				err,
			)
		}
		return nil, model.WrapCLIError(model.ExitConfigNotFound, fmt.Sprintf("failed to read %s", configPath), err)
	}

	// Strip JSONC comments (// and /* */) and trailing commas before
	// parsing. Comments are the point of using JSONC for a file that
	// documents an exclusion list.
	cleanJSON := jsonc.ToJSON(data)

	var cfg Config
	if err := json.Unmarshal(cleanJSON, &cfg); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigNotFound,
			fmt.Sprintf("failed to parse %s", configPath),
			err,
		)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigNotFound,
			fmt.Sprintf("invalid %s", configPath),
			err,
		)
	}

	return &cfg, nil
}

// ApplyDefaults fills in the conventional values for every field that is
// absent from the parsed file. An empty pybundle.jsonc ("{}") is a valid
// configuration for a conventionally laid out project.
func (c *Config) ApplyDefaults() {
	if c.EntryScript == "" {
		c.EntryScript = DefaultEntryScript
	}
	if c.Name == "" {
		// Derive the artifact name from the entry script's stem.
		base := filepath.Base(c.EntryScript)
		c.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if c.VenvDir == "" {
		c.VenvDir = DefaultVenvDir
	}
	if c.Requirements == "" {
		c.Requirements = DefaultRequirements
	}
	if c.Framework == "" {
		c.Framework = DefaultFramework
	}
	if c.Image == "" {
		c.Image = DefaultImage
	}
	// nil means "use defaults"; an explicit empty list means "none".
	if c.HiddenImports == nil {
		c.HiddenImports = append([]string(nil), defaultHiddenImports...)
	}
	if c.Exclude == nil {
		c.Exclude = append([]string(nil), defaultExclude...)
	}
	if c.Windowed == nil {
		windowed := true
		c.Windowed = &windowed
	}
}

// Validate checks the configuration for values that cannot possibly work.
// It assumes ApplyDefaults has already run.
func (c *Config) Validate() error {
	if err := model.ValidateAppName(c.Name); err != nil {
		return err
	}
	if filepath.IsAbs(c.EntryScript) {
		return fmt.Errorf("entryScript must be relative to the project root: %s", c.EntryScript)
	}
	if filepath.IsAbs(c.VenvDir) {
		return fmt.Errorf("venvDir must be relative to the project root: %s", c.VenvDir)
	}
	for _, spec := range c.AddData {
		if _, _, err := SplitDataSpec(spec); err != nil {
			return err
		}
	}
	return nil
}

// IsWindowed reports whether the packaged application should run without
// a console window. Defaults to true for this GUI workflow.
func (c *Config) IsWindowed() bool {
	return c.Windowed == nil || *c.Windowed
}

// VenvPath returns the absolute environment directory for the given
// project root.
func (c *Config) VenvPath(projectRoot string) string {
	return filepath.Join(projectRoot, c.VenvDir)
}

// RequirementsPath returns the absolute dependency manifest path.
func (c *Config) RequirementsPath(projectRoot string) string {
	return filepath.Join(projectRoot, c.Requirements)
}

// DescriptorPath returns the absolute path of the generated descriptor
// for the given mode.
func (c *Config) DescriptorPath(projectRoot string, mode model.BundleMode) string {
	return filepath.Join(projectRoot, mode.DescriptorFilename(c.Name))
}

// DistPath returns the absolute output directory PyInstaller writes
// artifacts into.
func (c *Config) DistPath(projectRoot string) string {
	return filepath.Join(projectRoot, DistDirName)
}

// BuildPath returns the absolute scratch directory PyInstaller uses for
// intermediate build state.
func (c *Config) BuildPath(projectRoot string) string {
	return filepath.Join(projectRoot, BuildDirName)
}
