package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/squallbio/squall/internal/config"
	"github.com/squallbio/squall/internal/index"
	"github.com/squallbio/squall/internal/mapper"
	"github.com/squallbio/squall/internal/model"
	"github.com/squallbio/squall/internal/store"
)

// MapOptions holds flags for the map command.
type MapOptions struct {
	*RootOptions
	IndexPrefix string
	ModelPath   string
	ConfigPath  string
	Database    string
	Threads     int
}

// NewMapCommand creates the map command.
func NewMapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "map <traces...>",
		Short: "Map recorded signal traces against a reference index",
		Long: `Map raw signal traces onto a reference index built by "squall index".
Each argument is a trace file (one raw sample per line) or a directory
of trace files. Results are written to stdout as PAF lines; pass --db
to also log them to a SQLite database.

Example:
  squall map --index ./ecoli --model models/r9.4.tsv reads/
  squall map --index ./ecoli --model models/r9.4.tsv --db run.db reads/`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.IndexPrefix, "index", "", "index path prefix from squall index (required)")
	cmd.Flags().StringVar(&opts.ModelPath, "model", "", "pore model TSV (required)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML parameter file (defaults apply when omitted)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "also log results to this SQLite database")
	cmd.Flags().IntVar(&opts.Threads, "threads", 4, "channel workers mapping in parallel")
	_ = cmd.MarkFlagRequired("index")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func runMap(ctx context.Context, opts *MapOptions, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	mdl, err := model.Load(opts.ModelPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load pore model", err)
	}

	slog.Info("loading index", "prefix", opts.IndexPrefix)
	idx, ref, err := index.Load(opts.IndexPrefix)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load index", err)
	}

	rt, err := mapper.NewRuntime(cfg, mdl, idx, ref)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}

	traces, err := collectTraces(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to collect traces", err)
	}
	slog.Info("mapping traces", "count", len(traces), "threads", opts.Threads)

	var st *store.Store
	runID := ""
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		runID, err = st.BeginRun(ctx, opts.IndexPrefix, opts.ModelPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to begin run", err)
		}
		slog.Info("logging run", "db", opts.Database, "run_id", runID)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	jobs := make(chan *FileTrace)
	var mu sync.Mutex // guards out, firstErr, and store writes
	var firstErr error
	var mappedCnt int
	var wg sync.WaitGroup

	for w := 0; w < opts.Threads; w++ {
		wg.Add(1)
		go func(channel uint16) {
			defer wg.Done()
			m := rt.NewMapper(channel)
			for tr := range jobs {
				loc, err := m.MapTrace(tr)
				mu.Lock()
				switch {
				case err != nil:
					if firstErr == nil {
						firstErr = fmt.Errorf("map %s: %w", tr.Name(), err)
					}
				default:
					fmt.Fprintln(out, loc.PAF())
					if loc.Mapped() {
						mappedCnt++
					}
					if st != nil {
						if werr := st.WriteMapping(ctx, runID, loc); werr != nil && firstErr == nil {
							firstErr = werr
						}
					}
				}
				mu.Unlock()
			}
		}(uint16(w + 1))
	}

	for _, tr := range traces {
		select {
		case <-ctx.Done():
			slog.Info("interrupted, draining workers")
		case jobs <- tr:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return WrapExitError(ExitCommandError, "mapping run failed", firstErr)
	}
	slog.Info("run complete", "reads", len(traces), "mapped", mappedCnt)
	if mappedCnt == 0 {
		return WrapExitError(ExitFailure, "no reads mapped", nil)
	}
	return nil
}
