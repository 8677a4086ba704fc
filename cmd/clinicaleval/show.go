package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/clinicalextract/internal/report"
	"github.com/ahrav/clinicalextract/internal/store"
	"github.com/ahrav/clinicalextract/internal/worker"
)

func newShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print a stored report",
		Long: `Load a report saved by eval --store or a persisted workflow run from Redis.
Without --format a summary table is printed; with --format the full report
is encoded as json or yaml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, closeFn, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			r, err := reports.Load(cmd.Context(), args[0])
			if errors.Is(err, store.ErrReportNotFound) {
				return fmt.Errorf("no stored report for run %q", args[0])
			}
			if err != nil {
				return err
			}

			if format == "" {
				// Stored reports do not carry the skipped documents.
				return report.PrintSummary(cmd.OutOrStdout(), r, 0)
			}
			data, err := report.Encode(r, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Print the full report as json or yaml")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored run IDs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, closeFn, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			ids, err := reports.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

// openStore connects to Redis regardless of redis.enabled; show and list
// have nothing to read from a process-local store.
func (a *app) openStore(cmd *cobra.Command) (store.ReportStore, func() error, error) {
	cfg := a.cfg.Redis
	cfg.Enabled = true
	return worker.InitializeReportStore(cmd.Context(), cfg, a.logger)
}
