package main

import (
	"fmt"

	"github.com/spf13/cobra"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/clinicalextract/internal/worker"
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker for evaluation workflows",
		Long: `Start a Temporal worker on the configured task queue. Reports are persisted
to Redis when redis.enabled is set, otherwise to process memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd, a)
		},
	}
}

func runWorker(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()

	c, err := a.dialTemporal()
	if err != nil {
		return err
	}
	defer c.Close()

	reports, closeStore, err := worker.InitializeReportStore(ctx, a.cfg.Redis, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	w := sdkworker.New(c, a.cfg.Temporal.TaskQueue, sdkworker.Options{})
	worker.RegisterAll(w, reports, worker.NewEventSink(a.logger, a.startMetrics(ctx), a.cfg.Events))

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	a.logger.Info("Worker started",
		"task_queue", a.cfg.Temporal.TaskQueue,
		"namespace", a.cfg.Temporal.Namespace)

	<-ctx.Done()
	w.Stop()
	a.logger.Info("Worker stopped")
	return nil
}
