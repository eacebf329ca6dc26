// Package cli — descriptor.go implements the "pybundle descriptor" command.
//
// The descriptor command regenerates the PyInstaller spec files from
// pybundle.jsonc. Before rendering, it expands the addData specs into
// concrete manifest entries and partitions them against the exclusion
// list, so a typo'd source path or an exclusion pattern that would drop
// an entire data directory is caught here, not discovered in a broken
// bundle.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pybundle/internal/bundle"
	"github.com/mmr-tortoise/pybundle/internal/model"
)

// descriptorFlags holds the flag values for the descriptor command.
// These are bound to cobra flags in NewDescriptorCommand.
type descriptorFlags struct {
	mode     string // --mode: generate only one layout
	toStdout bool   // --stdout: print instead of writing
}

// NewDescriptorCommand creates the "descriptor" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDescriptorCommand() *cobra.Command {
	flags := &descriptorFlags{}

	cmd := &cobra.Command{
		Use:   "descriptor",
		Short: "Generate the PyInstaller spec files",
		Long: `Renders the PyInstaller spec files (<name>.onefile.spec and
<name>.onedir.spec) from pybundle.jsonc into the project root.

The generated specs carry the exclusion filter: any bundled file whose
normalized destination path contains one of the configured substrings is
dropped from the bundle. Both specs share the filter and the hidden
import list; they differ only in output layout.

Spec files are generated output. Edit pybundle.jsonc, not the specs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescriptor(flags)
		},
	}

	cmd.Flags().StringVar(&flags.mode, "mode", "", "Generate only one layout: onefile or onedir (default: both)")
	cmd.Flags().BoolVar(&flags.toStdout, "stdout", false, "Print the rendered spec to stdout instead of writing it (requires --mode)")

	return cmd
}

func runDescriptor(flags *descriptorFlags) error {
	root, cfg, err := locateProject()
	if err != nil {
		return err
	}

	// Expand and partition the data specs up front. This validates that
	// every addData source actually exists and shows how the exclusion
	// list bites before PyInstaller ever runs.
	kept, excluded, err := bundle.CollectData(root, cfg.AddData, cfg.Exclude)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigNotFound, "invalid addData configuration", err)
	}
	VerboseLog("Data files: %d kept, %d excluded", len(kept), len(excluded))
	for _, entry := range excluded {
		VerboseLog("Excluded by pattern: %s", entry.Dest)
	}

	if flags.toStdout {
		if flags.mode == "" {
			return model.NewCLIError(model.ExitGeneralError, "--stdout requires --mode (onefile or onedir)")
		}
		mode, err := model.ParseBundleMode(flags.mode)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "invalid --mode", err)
		}
		rendered, err := bundle.Render(cfg, mode)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(rendered)
		return err
	}

	var written []string
	if flags.mode != "" {
		mode, err := model.ParseBundleMode(flags.mode)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "invalid --mode", err)
		}
		path, err := bundle.WriteDescriptor(root, cfg, mode)
		if err != nil {
			return err
		}
		written = []string{path}
	} else {
		written, err = bundle.WriteDescriptors(root, cfg)
		if err != nil {
			return err
		}
	}

	if IsJSONOutput() {
		out := map[string]interface{}{
			"app":          cfg.Name,
			"descriptors":  written,
			"dataKept":     len(kept),
			"dataExcluded": len(excluded),
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to marshal output", err)
		}
		fmt.Println(string(data))
	} else {
		for _, path := range written {
			fmt.Printf("Wrote %s\n", path)
		}
		if len(cfg.AddData) > 0 {
			fmt.Printf("Data files: %d kept, %d excluded\n", len(kept), len(excluded))
		}
	}
	return nil
}
