// Package cli — build.go implements the "pybundle build" command.
//
// The build command is the packaging driver. It is a linear sequence of
// guarded steps, each a precondition check with an early-exit failure
// path and its own exit code:
//  1. Load configuration, generate (or reuse) the spec file for the mode
//  2. Verify the provisioned environment exists
//  3. Verify the GUI framework imports inside it
//  4. Ensure PyInstaller is installed, installing on demand
//  5. Invoke PyInstaller; its own exit code propagates on failure
//
// With --in-container, steps 2-5 are replaced by a one-shot Docker
// container that replays provision-and-build from scratch.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pybundle/internal/bundle"
	"github.com/mmr-tortoise/pybundle/internal/docker"
	"github.com/mmr-tortoise/pybundle/internal/model"
	"github.com/mmr-tortoise/pybundle/internal/pyinstaller"
	"github.com/mmr-tortoise/pybundle/internal/venv"
)

// buildFlags holds the flag values for the build command.
// These are bound to cobra flags in NewBuildCommand.
type buildFlags struct {
	onedir         bool // --onedir: directory bundle instead of one executable
	inContainer    bool // --in-container: run the build in Docker
	clean          bool // --clean: clear PyInstaller's cache first
	skipDescriptor bool // --skip-descriptor: reuse the existing spec file
}

// NewBuildCommand creates the "build" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Package the application with PyInstaller",
		Long: `Packages the application into a distributable artifact.

The default layout is a single self-contained executable (onefile);
--onedir produces a directory bundle instead, which starts faster and is
easier to inspect.

Before invoking PyInstaller the command checks its preconditions in
order: the environment exists, the GUI framework imports inside it, and
PyInstaller itself is installed (installing it on demand if not). Each
check fails with its own exit code so scripts can tell the failures
apart. When PyInstaller itself fails, the command exits with
PyInstaller's own exit code.

--in-container runs the whole pipeline (provision plus build) inside a
Linux container instead of the host environment. The project directory
is bind-mounted, so artifacts land in dist/ either way.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(flags)
		},
	}

	cmd.Flags().BoolVar(&flags.onedir, "onedir", false, "Produce a directory bundle instead of a single executable")
	cmd.Flags().BoolVar(&flags.inContainer, "in-container", false, "Run the build inside a Linux container (requires Docker)")
	cmd.Flags().BoolVar(&flags.clean, "clean", false, "Clear the PyInstaller cache before building")
	cmd.Flags().BoolVar(&flags.skipDescriptor, "skip-descriptor", false, "Use the existing spec file instead of regenerating it")

	return cmd
}

func runBuild(flags *buildFlags) error {
	root, cfg, err := locateProject()
	if err != nil {
		return err
	}

	mode := model.ModeOnefile
	if flags.onedir {
		mode = model.ModeOnedir
	}

	descriptorPath := cfg.DescriptorPath(root, mode)
	if flags.skipDescriptor {
		if _, err := os.Stat(descriptorPath); err != nil {
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("spec file %s not found; drop --skip-descriptor or run `pybundle descriptor`", descriptorPath), err)
		}
		VerboseLog("Keeping existing spec: %s", descriptorPath)
	} else {
		if _, err := bundle.WriteDescriptor(root, cfg, mode); err != nil {
			return err
		}
		VerboseLog("Wrote spec: %s", descriptorPath)
	}

	start := time.Now()
	if flags.inContainer {
		if err := runContainerBuild(root, cfg, mode); err != nil {
			return err
		}
	} else {
		if err := runHostBuild(root, cfg, descriptorPath, flags.clean); err != nil {
			return err
		}
	}

	result := &model.BuildResult{
		App:          cfg.Name,
		Mode:         mode,
		Descriptor:   descriptorPath,
		ArtifactPath: mode.ArtifactPath(cfg.DistPath(root), cfg.Name),
		InContainer:  flags.inContainer,
		Elapsed:      time.Since(start),
	}
	return printBuildResult(result)
}

// runHostBuild runs the precondition checks and the PyInstaller
// invocation against the host's provisioned environment. The ordering
// is a contract: the packaging tool is never consulted, let alone
// installed, once an earlier check has failed.
func runHostBuild(root string, cfg *bundle.Config, descriptorPath string, clean bool) error {
	mgr := venv.NewManager()
	envDir := cfg.VenvPath(root)

	if !mgr.Exists(envDir) {
		return model.NewCLIError(model.ExitEnvNotFound,
			fmt.Sprintf("environment %s does not exist; run `pybundle provision` first", envDir))
	}
	VerboseLog("Environment: %s", envDir)

	if err := mgr.CheckImportable(envDir, cfg.Framework); err != nil {
		return err
	}
	VerboseLog("Framework importable: %s", cfg.Framework)

	toolVersion, err := pyinstaller.EnsureInstalled(envDir)
	if err != nil {
		return err
	}
	VerboseLog("PyInstaller %s", toolVersion)

	return pyinstaller.Run(envDir, descriptorPath, pyinstaller.RunOptions{
		ProjectRoot: root,
		DistPath:    cfg.DistPath(root),
		WorkPath:    cfg.BuildPath(root),
		Clean:       clean,
	})
}

// runContainerBuild provisions and builds inside a Docker container. The
// container exit status propagates the same way a host PyInstaller
// failure does.
func runContainerBuild(root string, cfg *bundle.Config, mode model.BundleMode) error {
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	ctx := context.Background()
	if err := cli.Ping(ctx); err != nil {
		return err
	}

	code, err := docker.RunBuild(ctx, cli, docker.BuildRunSpec{
		Image:        cfg.Image,
		ProjectRoot:  root,
		App:          cfg.Name,
		Mode:         mode,
		Requirements: cfg.Requirements,
		Descriptor:   mode.DescriptorFilename(cfg.Name),
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return model.NewCLIError(model.ExitCode(code),
			fmt.Sprintf("container build failed with exit code %d", code))
	}
	return nil
}

func printBuildResult(result *model.BuildResult) error {
	if IsJSONOutput() {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to marshal output", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Built %q (%s) in %s\n", result.App, result.Mode, result.Elapsed.Round(time.Second))
	fmt.Printf("Artifact: %s\n", result.ArtifactPath)
	return nil
}
