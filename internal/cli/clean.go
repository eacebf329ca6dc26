// Package cli — clean.go implements the "pybundle clean" command.
//
// The clean command removes build outputs (dist/, build/, the generated
// spec files). With --all it also removes the virtual environment, the
// package snapshot, and any stray Docker build containers left behind
// by an interrupted containerized build.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pybundle/internal/docker"
	"github.com/mmr-tortoise/pybundle/internal/model"
	"github.com/mmr-tortoise/pybundle/internal/venv"
)

// cleanFlags holds the flag values for the clean command.
// These are bound to cobra flags in NewCleanCommand.
type cleanFlags struct {
	all bool // --all: remove the environment and snapshot too
}

// NewCleanCommand creates the "clean" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build outputs",
		Long: `Removes the dist/ and build/ directories and the generated spec files.

With --all, the virtual environment and the package snapshot
(pybundle.lock.yml) are removed too, returning the project to a state
where only ` + "`pybundle provision`" + ` makes sense as the next step.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(flags)
		},
	}

	cmd.Flags().BoolVar(&flags.all, "all", false, "Also remove the virtual environment and the package snapshot")

	return cmd
}

func runClean(flags *cleanFlags) error {
	root, cfg, err := locateProject()
	if err != nil {
		return err
	}

	targets := []string{
		cfg.DistPath(root),
		cfg.BuildPath(root),
		cfg.DescriptorPath(root, model.ModeOnefile),
		cfg.DescriptorPath(root, model.ModeOnedir),
	}

	var removed []string
	for _, target := range targets {
		if _, err := os.Stat(target); err != nil {
			continue
		}
		VerboseLog("Removing %s", target)
		if err := os.RemoveAll(target); err != nil {
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to remove %s", target), err)
		}
		removed = append(removed, target)
	}

	if flags.all {
		mgr := venv.NewManager()
		envDir := cfg.VenvPath(root)
		if mgr.Exists(envDir) {
			VerboseLog("Removing %s", envDir)
			if err := mgr.Remove(envDir); err != nil {
				return err
			}
			removed = append(removed, envDir)
		}

		lockPath := filepath.Join(root, venv.LockFilename)
		if _, err := os.Stat(lockPath); err == nil {
			VerboseLog("Removing %s", lockPath)
			if err := os.Remove(lockPath); err != nil {
				return model.WrapCLIError(model.ExitGeneralError,
					fmt.Sprintf("failed to remove %s", lockPath), err)
			}
			removed = append(removed, lockPath)
		}

		removed = append(removed, removeStrayBuildContainers(cfg.Name)...)
	}

	if IsJSONOutput() {
		out := map[string]interface{}{
			"app":     cfg.Name,
			"removed": removed,
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to marshal output", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(removed) == 0 {
		fmt.Println("Nothing to remove")
		return nil
	}
	for _, target := range removed {
		fmt.Printf("Removed %s\n", target)
	}
	return nil
}

// removeStrayBuildContainers sweeps up build containers an interrupted
// containerized build left behind. Best effort: clean must work on a
// machine without Docker, so an unreachable daemon is only reported
// under --verbose, never treated as a failure.
func removeStrayBuildContainers(app string) []string {
	cli, err := docker.NewClient()
	if err != nil {
		VerboseLog("Skipping container sweep: %v", err)
		return nil
	}
	defer cli.Close()

	ctx := context.Background()
	if err := cli.Ping(ctx); err != nil {
		VerboseLog("Skipping container sweep: %v", err)
		return nil
	}

	names, err := docker.RemoveStrayContainers(ctx, cli, app)
	if err != nil {
		VerboseLog("Container sweep incomplete: %v", err)
	}
	prefixed := make([]string, 0, len(names))
	for _, name := range names {
		prefixed = append(prefixed, "container "+name)
	}
	return prefixed
}
