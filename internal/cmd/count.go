package cmd

import (
	"fmt"

	"github.com/dendrascience/syncfs/util"
	"github.com/spf13/cobra"
)

// NewCountCmd creates and returns the count subcommand for the syncfs CLI.
// It summarizes the records of the root container on disk.
func NewCountCmd(a *app) *cobra.Command {
	var (
		jsonPath     string
		manifestPath string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count records and measure directory fan-out",
		Long: `Count the records of the root container on disk.

Reports the number of records, empty records, distinct contents, shard
directories and bytes, and the directories holding more entries than the
fan-out threshold. Records are hashed concurrently.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.rootDir()
			if err != nil {
				return err
			}
			return runCount(cmd, root, a.cfg.FanoutThreshold, jsonPath, manifestPath, verbose)
		},
	}

	cmd.Flags().StringVar(&jsonPath, "json", "", "Write a JSON metadata summary to this path")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Write the per-record JSON manifest to this path")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List the oversized directories")

	return cmd
}

func runCount(cmd *cobra.Command, root string, threshold int, jsonPath, manifestPath string, verbose bool) error {
	manifest, err := util.CreateManifest(root)
	if err != nil {
		return fmt.Errorf("error counting records: %w", err)
	}
	over, err := util.OversizedDirectories(root, threshold)
	if err != nil {
		return fmt.Errorf("error measuring fan-out: %w", err)
	}
	md := manifest.GenerateMetadata()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Records: %d\n", md.RecordCount)
	fmt.Fprintf(out, "Empty records: %d\n", md.EmptyRecordCount)
	fmt.Fprintf(out, "Unique contents: %d\n", md.UniqueContentCount)
	fmt.Fprintf(out, "Shard directories: %d\n", md.ShardCount)
	fmt.Fprintf(out, "Total bytes: %d\n", md.TotalSize)
	fmt.Fprintf(out, "Directories above %d entries: %d\n", threshold, len(over))
	if verbose {
		for _, d := range over {
			fmt.Fprintf(out, "  %s: %d entries\n", d.Path, d.Entries)
		}
	}

	if jsonPath != "" {
		if err := md.Save(jsonPath); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}
	if manifestPath != "" {
		if err := manifest.Save(manifestPath); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
	}
	return nil
}
