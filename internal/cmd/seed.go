package cmd

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/dendrascience/syncfs/store"
	"github.com/dendrascience/syncfs/util"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewSeedCmd creates and returns the seed subcommand for the syncfs CLI.
// It generates documents made of several records each.
func NewSeedCmd(a *app) *cobra.Command {
	var (
		docCount   int
		chunkCount int
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate test documents",
		Long: `Generate documents for testing syncfs.

Each document gets a random UUID as its ID and is stored as one snapshot
record followed by incremental records:

  <doc id>/snapshot/<sha256>
  <doc id>/incremental/<sha256>

Each record contains a single UUID line. With --worker the records are written
through the proxy worker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if docCount < 0 || chunkCount < 1 {
				return fmt.Errorf("--count must be >= 0 and --chunks >= 1")
			}
			return runSeed(cmd, a, docCount, chunkCount, verbose)
		},
	}

	cmd.Flags().IntVarP(&docCount, "count", "c", 100, "Number of documents to generate")
	cmd.Flags().IntVar(&chunkCount, "chunks", 4, "Number of records per document")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	return cmd
}

// seedKeys returns the record keys and contents of one generated document.
func seedKeys(chunkCount int) ([]store.Key, [][]byte) {
	docID := strings.ReplaceAll(uuid.New().String(), "-", "")
	keys := make([]store.Key, chunkCount)
	contents := make([][]byte, chunkCount)
	for i := range chunkCount {
		content := []byte(uuid.New().String() + "\n")
		kind := "incremental"
		if i == 0 {
			kind = "snapshot"
		}
		keys[i] = store.Key{docID, kind, util.HashBytes(content)}
		contents[i] = content
	}
	return keys, contents
}

func runSeed(cmd *cobra.Command, a *app, docCount, chunkCount int, verbose bool) error {
	out := cmd.OutOrStdout()
	total := docCount * chunkCount
	if verbose {
		fmt.Fprintf(out, "Generating %d documents of %d records\n", docCount, chunkCount)
	}

	return a.withBackend(cmd.Context(), func(b backend) error {
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(runtime.NumCPU())

		var (
			mu    sync.Mutex
			saved int
		)
		for range docCount {
			keys, contents := seedKeys(chunkCount)
			for i := range keys {
				g.Go(func() error {
					if err := b.Save(ctx, keys[i], contents[i]); err != nil {
						return err
					}
					mu.Lock()
					defer mu.Unlock()
					saved++
					if verbose && saved%1000 == 0 {
						fmt.Fprintf(out, "Saved %d/%d records...\n", saved, total)
					}
					return nil
				})
			}
		}
		if err := g.Wait(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved %d records across %d documents\n", saved, docCount)
		return nil
	})
}
