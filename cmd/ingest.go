/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"lickarchive/internal/bootstrap"
	"lickarchive/internal/bootstrap/logging"
	"lickarchive/internal/errs"
	"lickarchive/internal/usecase/ingest"
)

var (
	ingestDateRange   string
	ingestInstruments []string
	ingestBatchSize   int
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <archive-root>",
	Short: "Ingest instrument file metadata into the archive database",
	Long: `Walks the archive tree (<root>/<YYYY-MM>/<DD>/<instrument>/<file>),
extracts metadata from each file's header and bulk-loads it into the
database. Files that cannot be read or inserted are listed in an
ingest_failures*.txt artifact for later retry.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, ingestSvc *ingest.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		params := ingest.RunParams{
			ArchiveRoot: args0(cmd),
			Instruments: ingestInstruments,
			BatchSize:   app.Config.Ingest.BatchSize,
			FailureDir:  app.Config.Ingest.FailureDir,
			Retry:       retryPolicy(app),
		}
		if ingestDateRange != "" {
			dateRange, err := ingest.ParseDateRange(ingestDateRange)
			if err != nil {
				return err
			}
			params.DateRange = dateRange
		}
		if ingestBatchSize > 0 {
			params.BatchSize = ingestBatchSize
		}

		report, err := ingestSvc.Run(ctx, params)
		if err != nil {
			logging.Error(ctx, "ingest failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "run ingest")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "processed %d files: %d succeeded, %d failed\n",
			report.Processed, report.Succeeded, report.Failed)
		if report.FailureFile != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "failures written to %s\n", report.FailureFile)
		}
		return nil
	}),
}

func args0(cmd *cobra.Command) string {
	// ExactArgs(1) guarantees this is present.
	return cmd.Flags().Args()[0]
}

func retryPolicy(app *bootstrap.App) ingest.RetryPolicy {
	return ingest.RetryPolicy{
		InitialInterval: app.Config.Ingest.Retry.InitialInterval,
		MaxInterval:     app.Config.Ingest.Retry.MaxInterval,
		MaxElapsed:      app.Config.Ingest.Retry.MaxElapsed,
	}
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestDateRange, "date-range", "", "Date or range to ingest, YYYY-MM-DD[:YYYY-MM-DD] (default: all dates)")
	ingestCmd.Flags().StringSliceVar(&ingestInstruments, "instruments", ingest.SupportedInstruments, "Instrument directories to ingest")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "Rows per bulk insert (0 uses config value)")
}
