package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/dendrascience/syncfs/util"
	"github.com/spf13/cobra"
)

var errInvalidLayout = errors.New("layout has errors")

// NewValidateCmd creates and returns the validate subcommand for the syncfs CLI.
// It checks the on-disk layout of the root container.
func NewValidateCmd(a *app) *cobra.Command {
	var (
		verbose bool
		repair  bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the on-disk layout for corruption and consistency",
		Long: `Validate the on-disk layout of the root container.

Every file must sit at the canonical path of a key: shard directories are 1 or
2 characters long and names are escaped the way the store writes them.
Leftover temporary files, symlinks and undecodable paths are errors. Empty
records, empty directories and directories above the fan-out threshold are
warnings.

--repair deletes leftover temporary files and empty directories. Do not run it
while a store is writing to the same directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.rootDir()
			if err != nil {
				return err
			}
			return runValidate(cmd, root, a.cfg.FanoutThreshold, verbose, repair)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVarP(&repair, "repair", "r", false, "Remove leftover temporary files and empty directories")

	return cmd
}

func runValidate(cmd *cobra.Command, root string, threshold int, verbose, repair bool) error {
	out := cmd.OutOrStdout()
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("root container does not exist: %w", err)
	}
	if verbose {
		fmt.Fprintf(out, "Validating syncfs layout at %s\n", root)
	}

	if repair {
		removed, err := util.RepairLayout(root)
		if err != nil {
			return fmt.Errorf("repair failed: %w", err)
		}
		fmt.Fprintf(out, "Repair removed %d entries\n", removed)
	}

	issues, err := util.ValidateLayout(root, threshold)
	if err != nil {
		return err
	}
	var errs, warnings int
	for _, issue := range issues {
		if issue.Severity == util.SeverityError {
			errs++
		} else {
			warnings++
		}
		fmt.Fprintf(out, "  - %s\n", issue)
	}

	fmt.Fprintf(out, "\nValidation complete:\n")
	fmt.Fprintf(out, "  Errors: %d\n", errs)
	fmt.Fprintf(out, "  Warnings: %d\n", warnings)

	if util.HasErrors(issues) {
		return fmt.Errorf("%w: %d errors", errInvalidLayout, errs)
	}
	return nil
}
