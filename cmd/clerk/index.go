package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/clerk/internal/indexer"
)

var (
	indexDryRun    bool
	indexStatePath string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load reference material into memory",
}

var indexLawCmd = &cobra.Command{
	Use:   "law <dir>",
	Short: "Index JSONL law summaries into the law_summaries collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd, indexer.SourceLaw, args[0])
	},
}

var indexNegotiationsCmd = &cobra.Command{
	Use:   "negotiations <dir>",
	Short: "Index JSON negotiation logs into the negotiation_cases collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd, indexer.SourceNegotiations, args[0])
	},
}

func init() {
	indexCmd.PersistentFlags().BoolVar(&indexDryRun, "dry-run", false, "parse and count without writing")
	indexCmd.PersistentFlags().StringVar(&indexStatePath, "state", "", "state file (default $CLERK_INDEX_STATE)")
	indexCmd.AddCommand(indexLawCmd, indexNegotiationsCmd)
}

func runIndex(cmd *cobra.Command, source indexer.Source, dir string) error {
	logger := slog.Default()
	if cfg.DatabaseURL == "" && !indexDryRun {
		return errors.New("indexing needs DATABASE_URL: the local index is not persisted")
	}

	a, err := newBaseApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if !a.mem.Enabled() && !indexDryRun {
		return errors.New("indexing needs an embedding provider key")
	}

	statePath := indexStatePath
	if statePath == "" {
		statePath = cfg.IndexStatePath
	}

	runner := indexer.NewRunner(indexer.Config{
		Source:    source,
		Dir:       dir,
		StatePath: statePath,
		DryRun:    indexDryRun,
	}, a.mem, logger)

	sum, err := runner.Run(cmd.Context())
	if sum != nil {
		fmt.Fprint(cmd.OutOrStdout(), indexer.FormatSummary(sum))
	}
	return err
}
