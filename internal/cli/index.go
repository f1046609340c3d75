package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/squallbio/squall/internal/index"
)

// IndexOptions holds flags for the index command.
type IndexOptions struct {
	*RootOptions
	OutPrefix string
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IndexOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "index <reference.fasta>",
		Short: "Build a reference index from a FASTA file",
		Long: `Build the full-text index and reference span table used by the map
command. Three artifacts are written under the output prefix:

  <prefix>.seq        the transformed index text
  <prefix>.seq.index  the serialized full-text index
  <prefix>.refs       the reference span table

Example:
  squall index --out ./ecoli ref/ecoli.fasta`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildIndex(opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.OutPrefix, "out", "", "output path prefix (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func buildIndex(opts *IndexOptions, fastaPath string) error {
	slog.Info("building index", "fasta", fastaPath, "out", opts.OutPrefix)
	ref, err := index.Build(fastaPath, opts.OutPrefix)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build index", err)
	}
	slog.Info("index built", "records", len(ref.Spans), "total_bases", ref.TLen)
	return nil
}
