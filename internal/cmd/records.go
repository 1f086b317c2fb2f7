package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dendrascience/syncfs/store"
	"github.com/dendrascience/syncfs/util"
	"github.com/spf13/cobra"
)

// NewLoadCmd creates the load subcommand, which writes one record to stdout.
func NewLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load KEY",
		Short: "Print a record",
		Long: `Write the record stored under KEY to stdout.

KEY is slash separated, for example 4f1a/doc1. The command exits with
status 1 when the record is absent. A zero-length record counts as absent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := store.ParseKey(args[0])
			if err != nil {
				return err
			}
			return a.withBackend(cmd.Context(), func(b backend) error {
				data, ok, err := b.Load(cmd.Context(), key)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", errNotFound, key)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}

// NewSaveCmd creates the save subcommand.
func NewSaveCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "save KEY",
		Short: "Store a record",
		Long: `Replace the record under KEY with the contents of stdin, or of --file.

The previous contents are discarded. Empty input leaves a zero-length record,
which reads back as absent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := store.ParseKey(args[0])
			if err != nil {
				return err
			}
			var data []byte
			if file != "" {
				data, err = os.ReadFile(file)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			return a.withBackend(cmd.Context(), func(b backend) error {
				return b.Save(cmd.Context(), key, data)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the record from this file instead of stdin")

	return cmd
}

// NewRemoveCmd creates the remove subcommand.
func NewRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove KEY",
		Short: "Delete a record",
		Long:  `Delete the record under KEY. Removing an absent record succeeds.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := store.ParseKey(args[0])
			if err != nil {
				return err
			}
			return a.withBackend(cmd.Context(), func(b backend) error {
				return b.Remove(cmd.Context(), key)
			})
		},
	}
}

// NewRemoveRangeCmd creates the rm-range subcommand.
func NewRemoveRangeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm-range PREFIX",
		Short: "Delete every record under a key prefix",
		Long: `Delete every record whose key starts with PREFIX, segment by segment.

rm-range 4f1a removes 4f1a/doc1 and 4f1a/doc2 but not 4f1ab/doc1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := store.ParseKey(args[0])
			if err != nil {
				return err
			}
			return a.withBackend(cmd.Context(), func(b backend) error {
				return b.RemoveRange(cmd.Context(), prefix)
			})
		},
	}
}

// NewLsCmd creates the ls subcommand.
func NewLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [PREFIX]",
		Short: "List records with their size and SHA-256",
		Long: `List every record under PREFIX, or every record when PREFIX is omitted.

Each line holds the key, the size in bytes and the SHA-256 of the record.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(b backend) error {
				var (
					chunks []store.Chunk
					err    error
				)
				if len(args) == 1 {
					prefix, perr := store.ParseKey(args[0])
					if perr != nil {
						return perr
					}
					chunks, err = b.LoadRange(cmd.Context(), prefix)
				} else {
					chunks, err = loadAll(cmd, b)
				}
				if err != nil {
					return err
				}
				return printChunks(cmd.OutOrStdout(), chunks)
			})
		},
	}
}

// loadAll loads every record, one top-level entry at a time.
func loadAll(cmd *cobra.Command, b backend) ([]store.Chunk, error) {
	ctx := cmd.Context()
	entries, err := b.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	var chunks []store.Chunk
	for _, e := range entries {
		key := store.Key{e.Name}
		if e.Prefix {
			more, err := b.LoadRange(ctx, key)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, more...)
			continue
		}
		data, ok, err := b.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			chunks = append(chunks, store.Chunk{Key: key, Data: data})
		}
	}
	return chunks, nil
}

func printChunks(w io.Writer, chunks []store.Chunk) error {
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Key.String() < chunks[j].Key.String()
	})
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range chunks {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Key, len(c.Data), util.HashBytes(c.Data))
	}
	return tw.Flush()
}
