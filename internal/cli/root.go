// Package cli wires the mapping pipeline into the squall command tree.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the squall CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "squall",
		Short: "squall - streaming signal-to-reference mapper",
		Long: `Squall maps raw nanopore signal streams onto a reference index in
real time, without basecalling. Build an index from a FASTA reference
with "squall index", then map recorded traces with "squall map".`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})
			slog.SetDefault(slog.New(handler))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewMapCommand(opts))

	return cmd
}
