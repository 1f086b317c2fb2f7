// Package cmd provides the command-line interface implementation for syncfs.
//
// Each subcommand lives in its own constructor returning a *cobra.Command.
// NewRootCmd wires them together under three groups:
//   - Record Operations: load, save, remove, rm-range and ls, which go through
//     a store or, with --worker, a proxy worker
//   - Filesystem Operations: mount, which serves the store through FUSE
//   - Utility Commands: count, validate and seed, plus version
//
// Global flags (--config, --base, --root, --worker, --log-level, --log-format)
// override the YAML configuration file, which overrides config.Default.
package cmd
