package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ahrav/clinicalextract/internal/corpus"
	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/internal/report"
	"github.com/ahrav/clinicalextract/internal/worker"
)

type evalFlags struct {
	samples string
	output  string
	match   string
	format  string
	byClass bool
	store   bool
	runID   string
}

func newEvalCmd(a *app) *cobra.Command {
	f := &evalFlags{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score a samples directory locally",
		Long: `Score every complete document of a samples directory in-process and print
per-file and aggregate metrics. With --output the report is also written as
eval_results.json or eval_results.yaml; with --store it is saved to Redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEval(cmd, a, f)
		},
	}
	cmd.Flags().StringVar(&f.samples, "samples", "", "Samples directory (default from config)")
	cmd.Flags().StringVar(&f.output, "output", "", "Directory to write the report to")
	cmd.Flags().StringVar(&f.match, "match", "", "Match mode: exact or partial")
	cmd.Flags().StringVar(&f.format, "format", "", "Report format: json or yaml")
	cmd.Flags().BoolVar(&f.byClass, "by-class", false, "Add per-class breakdowns")
	cmd.Flags().BoolVar(&f.store, "store", false, "Save the report to Redis")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run ID for the stored report (default: random)")
	return cmd
}

func runEval(cmd *cobra.Command, a *app, f *evalFlags) error {
	cfg := a.cfg
	if f.samples != "" {
		cfg.SamplesDir = f.samples
	}
	if f.output != "" {
		cfg.OutputDir = f.output
	}
	if f.match != "" {
		cfg.MatchMode = f.match
	}
	if f.format != "" {
		cfg.ReportFormat = f.format
	}
	if f.byClass {
		cfg.ByClass = true
	}
	if err := a.revalidate(); err != nil {
		return err
	}

	docs, err := corpus.NewDirLoader(cfg.SamplesDir, a.logger).LoadAll()
	if err != nil {
		return err
	}

	r := domain.Aggregate(docs, domain.AggregateOptions{Mode: cfg.Mode(), ByClass: cfg.ByClass})
	if f.store {
		r.RunID = f.runID
		if r.RunID == "" {
			r.RunID = uuid.NewString()
		}
	}
	a.logger.Info("Evaluation finished",
		"samples", cfg.SamplesDir,
		"documents", len(docs),
		"scored", len(r.PerFile),
		"f1", r.Aggregate.F1)

	if cfg.OutputDir != "" {
		path, err := report.Write(cfg.OutputDir, &r, cfg.ReportFormat)
		if err != nil {
			return err
		}
		a.logger.Info("Report written", "path", path)
	}

	if f.store {
		redisCfg := cfg.Redis
		redisCfg.Enabled = true
		reports, closeFn, err := worker.InitializeReportStore(cmd.Context(), redisCfg, a.logger)
		if err != nil {
			return err
		}
		defer func() { _ = closeFn() }()
		if err := reports.Save(cmd.Context(), &r); err != nil {
			return fmt.Errorf("failed to store report: %w", err)
		}
		a.logger.Info("Report stored", "run_id", r.RunID)
	}

	return report.PrintSummary(cmd.OutOrStdout(), &r, r.Skipped(docs))
}
