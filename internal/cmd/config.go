package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var errConfigExists = errors.New("config file already exists")

// NewConfigCmd creates and returns the config subcommand for the syncfs CLI.
// It writes the configuration in effect to a YAML file.
func NewConfigCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "config FILE",
		Short: "Write the effective configuration to a file",
		Long: `Write the configuration in effect to FILE as YAML.

The defaults are overridden by --config and then by any flag given, so
  syncfs config --base /var/lib/syncfs --worker syncfs.yaml
produces a file that can be passed back with --config. An existing FILE is
only replaced with --force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%w: %s (use --force to replace it)", errConfigExists, path)
				}
			}
			if err := a.cfg.Save(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing file")

	return cmd
}
