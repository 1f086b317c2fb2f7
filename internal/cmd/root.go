package cmd

import (
	"github.com/dendrascience/syncfs/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root cobra command for the syncfs CLI.
// It sets up all subcommands, command groups, and the shared configuration.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "syncfs",
		Short: "syncfs - a sharded file store for document-sync records",
		Long: `syncfs persists document-sync records as files in a sharded directory tree.

A record is addressed by a key of one or more segments such as 4f1a/doc1. The
first two characters of the first segment select a shard directory, so
4f1a/doc1 lives at <base>/<root>/4f/1a/doc1.

Use subcommands to perform different operations:
  - load, save, remove, rm-range, ls: read and write records
  - mount: serve the key space as a FUSE filesystem
  - count, validate: inspect the on-disk layout
  - seed: generate test documents
  - config: write the effective configuration to a file`,
		Version:       version.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	a.bindFlags(rootCmd)

	groupRecords := "records"
	groupFilesystem := "filesystem"
	groupUtilities := "utilities"

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupRecords,
		Title: "Record Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupFilesystem,
		Title: "Filesystem Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	for _, c := range []*cobra.Command{
		NewLoadCmd(a),
		NewSaveCmd(a),
		NewRemoveCmd(a),
		NewRemoveRangeCmd(a),
		NewLsCmd(a),
	} {
		c.GroupID = groupRecords
		rootCmd.AddCommand(c)
	}

	mountCmd := NewMountCmd(a)
	mountCmd.GroupID = groupFilesystem
	rootCmd.AddCommand(mountCmd)

	for _, c := range []*cobra.Command{
		NewCountCmd(a),
		NewValidateCmd(a),
		NewSeedCmd(a),
		NewConfigCmd(a),
		NewVersionCmd(),
	} {
		c.GroupID = groupUtilities
		rootCmd.AddCommand(c)
	}

	return rootCmd
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// no configuration is needed to print the version
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			version.PrintVersion(cmd.OutOrStdout(), "syncfs")
		},
	}
}
