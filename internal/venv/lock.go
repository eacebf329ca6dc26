// lock.go persists the provisioned environment's installed package set
// as pybundle.lock.yml.
//
// The lock file is informational: it records what `pip freeze` reported
// immediately after provisioning, so a build artifact can be traced back
// to the exact dependency set it was produced from. It is never read
// back to drive installation — requirements.txt stays the single source
// of declared dependencies.
package venv

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LockFilename is the conventional lock file name in the project root.
const LockFilename = "pybundle.lock.yml"

// lockHeader is prepended to the serialized YAML. YAML comments survive
// casual inspection and diffs, which is where this file lives.
const lockHeader = `# Generated by pybundle provision — snapshot of the environment's
# installed packages (pip freeze). Do not edit; re-run provisioning instead.
`

// Requirement is a single installed package as reported by pip freeze.
// Lines without a "==" pin (editable installs, VCS references) keep the
// whole line in Name with an empty Version.
type Requirement struct {
	// Name is the distribution name (or the verbatim freeze line for
	// non-standard entries).
	Name string `yaml:"name"`

	// Version is the pinned version, empty for non-standard entries.
	Version string `yaml:"version,omitempty"`
}

// String renders the requirement back in pip's own format.
func (r Requirement) String() string {
	if r.Version == "" {
		return r.Name
	}
	return fmt.Sprintf("%s==%s", r.Name, r.Version)
}

// LockFile is the serialized form of a dependency snapshot.
type LockFile struct {
	// App is the application name from pybundle.jsonc.
	App string `yaml:"app"`

	// Python is the environment interpreter's version (e.g. "3.12.4").
	Python string `yaml:"python,omitempty"`

	// GeneratedAt is the UTC provisioning timestamp.
	GeneratedAt time.Time `yaml:"generatedAt"`

	// Packages is the freeze output in pip's order.
	Packages []Requirement `yaml:"packages"`
}

// WriteLock serializes the snapshot to path with the explanatory header.
func WriteLock(path string, lock *LockFile) error {
	data, err := yaml.Marshal(lock)
	if err != nil {
		return fmt.Errorf("failed to serialize lock file: %w", err)
	}

	content := append([]byte(lockHeader), data...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write lock file %s: %w", path, err)
	}
	return nil
}

// ReadLock parses a lock file previously written by WriteLock.
func ReadLock(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock file %s: %w", path, err)
	}

	var lock LockFile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file %s: %w", path, err)
	}
	return &lock, nil
}
