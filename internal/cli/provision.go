// Package cli — provision.go implements the "pybundle provision" command.
//
// Provisioning is destructive on purpose: the environment is removed
// wholesale and rebuilt from the dependency manifest, never patched in
// place. The sequence is a linear chain of guarded steps:
//  1. Remove the existing environment (halt if blocked)
//  2. Create a fresh one with the base interpreter
//  3. Install the dependency manifest
//  4. Verify the GUI framework imports
//  5. Snapshot the installed set into pybundle.lock.yml
package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pybundle/internal/model"
	"github.com/mmr-tortoise/pybundle/internal/venv"
)

// provisionFlags holds the flag values for the provision command.
// These are bound to cobra flags in NewProvisionCommand.
type provisionFlags struct {
	skipLock bool   // --no-lock: skip the package snapshot
	python   string // --python: override the base interpreter
}

// NewProvisionCommand creates the "provision" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewProvisionCommand() *cobra.Command {
	flags := &provisionFlags{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Rebuild the virtual environment from the dependency manifest",
		Long: `Deletes the project's virtual environment and recreates it from scratch,
then installs everything listed in the dependency manifest.

The environment is always rebuilt, never patched in place. A stale or
half-upgraded environment is the most common cause of broken bundles,
and a fresh install from the manifest is the only state worth trusting.

If the old environment cannot be deleted (a shell, editor, or the running
application holds a file inside it), provisioning stops before touching
anything. Close whatever is using the environment and run it again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(flags)
		},
	}

	cmd.Flags().BoolVar(&flags.skipLock, "no-lock", false, "Skip writing the package snapshot (pybundle.lock.yml)")
	cmd.Flags().StringVar(&flags.python, "python", "", "Base interpreter to create the environment with (default: python3 from PATH)")

	return cmd
}

func runProvision(flags *provisionFlags) error {
	root, cfg, err := locateProject()
	if err != nil {
		return err
	}

	var mgr *venv.Manager
	if flags.python != "" {
		mgr = venv.NewManagerWithPython(flags.python)
	} else {
		mgr = venv.NewManager()
	}

	envDir := cfg.VenvPath(root)
	reqPath := cfg.RequirementsPath(root)

	// The previous snapshot, if any, gives the verbose output a before
	// and after comparison once the new one is written.
	previous := readPreviousLock(root)

	VerboseLog("Removing environment: %s", envDir)
	if err := mgr.Remove(envDir); err != nil {
		return err
	}

	VerboseLog("Creating environment: %s", envDir)
	if err := mgr.Create(envDir); err != nil {
		return err
	}

	VerboseLog("Installing requirements: %s", reqPath)
	if err := mgr.InstallRequirements(envDir, reqPath); err != nil {
		return err
	}

	// Sanity-check the fresh environment right away: a manifest that
	// forgot the GUI framework should fail here, not at build time.
	VerboseLog("Checking framework import: %s", cfg.Framework)
	if err := mgr.CheckImportable(envDir, cfg.Framework); err != nil {
		return err
	}

	var lock *venv.LockFile
	if !flags.skipLock {
		lock, err = writeLockSnapshot(root, envDir, cfg.Name, mgr)
		if err != nil {
			return err
		}
		if previous != nil {
			VerboseLog("Snapshot: %d packages (previous run: %d, python %s)",
				len(lock.Packages), len(previous.Packages), previous.Python)
		}
	}

	if IsJSONOutput() {
		out := map[string]interface{}{
			"app":    cfg.Name,
			"env":    envDir,
			"status": "provisioned",
		}
		if lock != nil {
			out["packages"] = len(lock.Packages)
			out["python"] = lock.Python
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to marshal output", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Printf("Provisioned environment for %q at %s\n", cfg.Name, envDir)
		if lock != nil {
			fmt.Printf("Snapshot: %s (%d packages, python %s)\n", venv.LockFilename, len(lock.Packages), lock.Python)
		}
	}
	return nil
}

// readPreviousLock loads the existing snapshot for comparison.
// Any failure (absent, unreadable, stale format) just means there is
// nothing to compare against.
func readPreviousLock(root string) *venv.LockFile {
	lock, err := venv.ReadLock(filepath.Join(root, venv.LockFilename))
	if err != nil {
		return nil
	}
	return lock
}

// writeLockSnapshot freezes the freshly provisioned environment into
// pybundle.lock.yml at the project root.
func writeLockSnapshot(root, envDir, app string, mgr *venv.Manager) (*venv.LockFile, error) {
	pyVersion, err := mgr.PythonVersion(envDir)
	if err != nil {
		return nil, err
	}
	packages, err := mgr.Freeze(envDir)
	if err != nil {
		return nil, err
	}

	lock := &venv.LockFile{
		App:         app,
		Python:      pyVersion,
		GeneratedAt: time.Now().UTC(),
		Packages:    packages,
	}
	lockPath := filepath.Join(root, venv.LockFilename)
	if err := venv.WriteLock(lockPath, lock); err != nil {
		return nil, err
	}
	VerboseLog("Wrote snapshot: %s", lockPath)
	return lock, nil
}
