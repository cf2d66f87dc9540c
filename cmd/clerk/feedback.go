package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
	clearYes     bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Inspect, export or clear stored feedback",
}

var feedbackSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print count, average rating and comments",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newBaseApp(cmd.Context(), cfg, slog.Default())
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.feedback.Summary(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
		return nil
	},
}

var feedbackExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all feedback as JSON or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		var export func(*app, *cobra.Command, io.Writer) error
		switch exportFormat {
		case "json":
			export = func(a *app, cmd *cobra.Command, w io.Writer) error { return a.feedback.ExportJSON(cmd.Context(), w) }
		case "csv":
			export = func(a *app, cmd *cobra.Command, w io.Writer) error { return a.feedback.ExportCSV(cmd.Context(), w) }
		default:
			return fmt.Errorf("unsupported format %q (use json or csv)", exportFormat)
		}

		a, err := newBaseApp(cmd.Context(), cfg, slog.Default())
		if err != nil {
			return err
		}
		defer a.Close()

		if exportOut == "" || exportOut == "-" {
			return export(a, cmd, cmd.OutOrStdout())
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		if err := export(a, cmd, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", exportOut, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "feedback exported to %s\n", exportOut)
		return nil
	},
}

var feedbackClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored feedback",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to clear feedback without --yes")
		}
		a, err := newBaseApp(cmd.Context(), cfg, slog.Default())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.feedback.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "feedback cleared")
		return nil
	},
}

func init() {
	feedbackExportCmd.Flags().StringVar(&exportFormat, "format", "json", "json or csv")
	feedbackExportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	feedbackClearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")
	feedbackCmd.AddCommand(feedbackSummaryCmd, feedbackExportCmd, feedbackClearCmd)
}
