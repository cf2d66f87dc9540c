package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/clerk/internal/processor"
	"github.com/MikeSquared-Agency/clerk/internal/report"
)

var (
	analyzeJSON  bool
	analyzeTitle string

	negClause   string
	negPosition string
	negTurns    int
	negJSON     bool

	medA    string
	medB    string
	medJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a contract text file clause by clause",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read contract: %w", err)
		}

		a, err := newCLIApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.proc.Analyze(cmd.Context(), string(data))
		if err != nil {
			return err
		}

		if analyzeJSON {
			return printJSON(cmd, res)
		}
		title := analyzeTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		return printMarkdown(cmd, report.Analysis(title, res, time.Now()))
	},
}

var negotiateCmd = &cobra.Command{
	Use:   "negotiate",
	Short: "Simulate a negotiation over one clause",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newCLIApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.proc.Negotiate(cmd.Context(), processor.NegotiationRequest{
			Clause:   negClause,
			Position: negPosition,
			Turns:    negTurns,
		})
		if err != nil {
			return err
		}
		if negJSON {
			return printJSON(cmd, res)
		}
		return printMarkdown(cmd, report.Workflow(res))
	},
}

var mediateCmd = &cobra.Command{
	Use:   "mediate",
	Short: "Mediate between two parties' positions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newCLIApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.proc.Mediate(cmd.Context(), processor.MediationRequest{PartyA: medA, PartyB: medB})
		if err != nil {
			return err
		}
		if medJSON {
			return printJSON(cmd, res)
		}
		return printMarkdown(cmd, report.Workflow(res))
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "report title (default: file name)")

	negotiateCmd.Flags().StringVar(&negClause, "clause", "", "clause text under negotiation")
	negotiateCmd.Flags().StringVar(&negPosition, "position", "", "the user's position")
	negotiateCmd.Flags().IntVar(&negTurns, "turns", 0, "dialogue turns (default 4, 2 to 10)")
	negotiateCmd.Flags().BoolVar(&negJSON, "json", false, "print the result as JSON")
	_ = negotiateCmd.MarkFlagRequired("clause")
	_ = negotiateCmd.MarkFlagRequired("position")

	mediateCmd.Flags().StringVar(&medA, "a", "", "position of party A")
	mediateCmd.Flags().StringVar(&medB, "b", "", "position of party B")
	mediateCmd.Flags().BoolVar(&medJSON, "json", false, "print the result as JSON")
	_ = mediateCmd.MarkFlagRequired("a")
	_ = mediateCmd.MarkFlagRequired("b")
}

// newCLIApp wires everything a one-shot workflow command needs. Logs go to
// stderr so stdout carries only the result.
func newCLIApp(cmd *cobra.Command) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	a, err := newBaseApp(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.withProcessor(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMarkdown(cmd *cobra.Command, md string) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		_, err = fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		out = md
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
