package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahrav/clinicalextract/internal/config"
	"github.com/ahrav/clinicalextract/internal/logging"
)

// app carries state shared by every subcommand once the root has run.
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsAddr string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "clinicaleval",
		Short: "Evaluate clinical entity extraction against gold annotations",
		Long: `clinicaleval scores predicted clinical extractions against gold annotations
and reports precision, recall and F1 per document and over the pooled corpus.

A samples directory holds <name>.txt notes, <name>.json gold files and
<name>_pred.json predictions. Documents missing either file are skipped.

Examples:
  # Score ./samples and write eval_results.json
  clinicaleval eval --samples samples --output out

  # Exact matching with a per-class breakdown
  clinicaleval eval --match exact --by-class

  # Run through Temporal
  clinicaleval worker &
  clinicaleval submit --samples samples --persist`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML or JSON config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (worker, predict)")

	root.AddCommand(
		newEvalCmd(a),
		newPredictCmd(a),
		newWorkerCmd(a),
		newSubmitCmd(a),
		newShowCmd(a),
		newListCmd(a),
	)
	return root
}

// init loads configuration, applies the global flags and builds the logger.
// Logs go to stderr so stdout carries only reports.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.metricsAddr != "" {
		cfg.MetricsAddr = a.metricsAddr
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// revalidate checks the configuration after command flags were applied.
func (a *app) revalidate() error {
	return a.cfg.Validate()
}
