package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/ahrav/clinicalextract/internal/corpus"
	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/internal/report"
	"github.com/ahrav/clinicalextract/internal/workflow"
)

type submitFlags struct {
	samples string
	match   string
	byClass bool
	persist bool
	runID   string
	noWait  bool
}

func newSubmitCmd(a *app) *cobra.Command {
	f := &submitFlags{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Run an evaluation as a Temporal workflow",
		Long: `Load a samples directory, start EvaluationWorkflow on the configured task
queue and wait for its report. The workflow ID is evaluation-<run-id>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubmit(cmd, a, f)
		},
	}
	cmd.Flags().StringVar(&f.samples, "samples", "", "Samples directory (default from config)")
	cmd.Flags().StringVar(&f.match, "match", "", "Match mode: exact or partial")
	cmd.Flags().BoolVar(&f.byClass, "by-class", false, "Add per-class breakdowns")
	cmd.Flags().BoolVar(&f.persist, "persist", false, "Persist the report in the worker's report store")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run ID (default: random)")
	cmd.Flags().BoolVar(&f.noWait, "no-wait", false, "Print the workflow ID and return without waiting")
	return cmd
}

func runSubmit(cmd *cobra.Command, a *app, f *submitFlags) error {
	cfg := a.cfg
	if f.samples != "" {
		cfg.SamplesDir = f.samples
	}
	if f.match != "" {
		cfg.MatchMode = f.match
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
	runID := f.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	req := domain.EvaluationRequest{
		RunID:     runID,
		Documents: docs,
		Options:   domain.AggregateOptions{Mode: cfg.Mode(), ByClass: cfg.ByClass},
		Persist:   f.persist,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := req.CheckPayloadSize(); err != nil {
		return fmt.Errorf("%w; run eval locally or split the samples directory", err)
	}

	c, err := a.dialTemporal()
	if err != nil {
		return err
	}
	defer c.Close()

	run, err := c.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
		ID:                       "evaluation-" + runID,
		TaskQueue:                cfg.Temporal.TaskQueue,
		WorkflowExecutionTimeout: cfg.Temporal.WorkflowTimeout,
	}, workflow.EvaluationWorkflow, req)
	if err != nil {
		return fmt.Errorf("failed to start evaluation workflow: %w", err)
	}
	a.logger.Info("Evaluation submitted",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
		"documents", len(docs))

	if f.noWait {
		fmt.Fprintln(cmd.OutOrStdout(), run.GetID())
		return nil
	}

	var r domain.EvaluationReport
	if err := run.Get(cmd.Context(), &r); err != nil {
		return fmt.Errorf("evaluation workflow %s failed: %w", run.GetID(), err)
	}
	return report.PrintSummary(cmd.OutOrStdout(), &r, r.Skipped(docs))
}
