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

// retryCmd represents the retry-failures command
var retryCmd = &cobra.Command{
	Use:   "retry-failures <failure-file>",
	Short: "Re-ingest files listed in a previous run's failure artifact",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, ingestSvc *ingest.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		params := ingest.RunParams{
			FailureDir: app.Config.Ingest.FailureDir,
			Retry:      retryPolicy(app),
		}

		report, err := ingestSvc.RetryFailures(ctx, args0(cmd), params)
		if err != nil {
			logging.Error(ctx, "retry failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "retry failures")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "retried %d files: %d succeeded, %d failed\n",
			report.Processed, report.Succeeded, report.Failed)
		if report.FailureFile != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "remaining failures written to %s\n", report.FailureFile)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(retryCmd)
}
