package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/syncfs/fusefs"
	"github.com/dendrascience/syncfs/version"
	"github.com/spf13/cobra"
)

// NewMountCmd creates and returns the mount subcommand for the syncfs CLI.
// It serves the key space at a mountpoint until interrupted.
func NewMountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mount MOUNTPOINT",
		Short: "Mount the store as a FUSE filesystem",
		Long: `Mount the store at the specified mountpoint.

The mount root lists first key segments, directories are key prefixes and
files are records, so 4f1a/doc1 appears as MOUNTPOINT/4f1a/doc1. Files are
saved whole when they are closed. The mountpoint must not lie inside the
storage directory or contain it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMount(cmd, a, args[0])
		},
	}
}

func runMount(cmd *cobra.Command, a *app, mountpoint string) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "syncfs %s starting...\n", version.GetFullVersion())

	storagePath, err := a.rootDir()
	if err != nil {
		return err
	}
	if pathsOverlap(storagePath, mountpoint) {
		return fmt.Errorf("mountpoint %s overlaps storage directory %s", mountpoint, storagePath)
	}

	b, release, err := a.open(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer release()

	c, err := fuse.Mount(
		mountpoint,
		fuse.FSName("syncfs"),
		fuse.Subtype("syncfs"),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		a.logger.Info().Msg("received interrupt signal, shutting down")
		if err := fuse.Unmount(mountpoint); err != nil {
			a.logger.Error().Err(err).Str("mountpoint", mountpoint).Msg("unmount failed")
		}
	}()

	a.logger.Info().Str("version", version.GetVersion()).Str("mountpoint", mountpoint).
		Str("storage", storagePath).Bool("worker", a.cfg.Worker).Msg("mounted")
	if err := fs.Serve(c, fusefs.NewFS(b, a.logger)); err != nil {
		return err
	}
	a.logger.Info().Msg("shutdown complete")
	return nil
}

// pathsOverlap reports whether one path is the other or lies inside it.
func pathsOverlap(path1, path2 string) bool {
	abs1, err1 := filepath.Abs(path1)
	abs2, err2 := filepath.Abs(path2)
	if err1 != nil || err2 != nil {
		abs1, abs2 = filepath.Clean(path1), filepath.Clean(path2)
	}
	return within(abs1, abs2) || within(abs2, abs1)
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
