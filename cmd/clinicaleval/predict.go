package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahrav/clinicalextract/internal/corpus"
	"github.com/ahrav/clinicalextract/internal/extraction"
)

type predictFlags struct {
	samples     string
	endpoint    string
	overwrite   bool
	stopOnError bool
}

func newPredictCmd(a *app) *cobra.Command {
	f := &predictFlags{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Produce prediction files with the remote extraction service",
		Long: `Send every note lacking a <name>_pred.json to the extraction service and
write the returned extractions next to it. The API key is read from the
variable named by extraction.api_key_env.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, a, f)
		},
	}
	cmd.Flags().StringVar(&f.samples, "samples", "", "Samples directory (default from config)")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Extraction service URL (default from config)")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "Re-extract notes that already have predictions")
	cmd.Flags().BoolVar(&f.stopOnError, "stop-on-error", false, "Abort on the first extraction failure")
	return cmd
}

func runPredict(cmd *cobra.Command, a *app, f *predictFlags) error {
	cfg := a.cfg
	if f.samples != "" {
		cfg.SamplesDir = f.samples
	}
	if f.endpoint != "" {
		cfg.Extraction.Endpoint = f.endpoint
	}
	if err := a.revalidate(); err != nil {
		return err
	}

	httpEx, err := extraction.NewHTTPExtractor(cfg.Extraction.HTTPConfig(os.LookupEnv), nil, a.logger)
	if err != nil {
		return err
	}
	ex, err := extraction.Resilient(httpEx, cfg.Extraction.RetryConfig(), cfg.Extraction.BreakerConfig(), a.logger)
	if err != nil {
		return err
	}
	if m := a.startMetrics(cmd.Context()); m != nil {
		ex = extraction.Chain(ex, m.Middleware())
	}

	summary, err := extraction.PredictCorpus(
		cmd.Context(),
		corpus.NewDirLoader(cfg.SamplesDir, a.logger),
		ex,
		cfg.Extraction.Options(),
		extraction.PredictConfig{
			Dir:         cfg.SamplesDir,
			Overwrite:   f.overwrite,
			StopOnError: f.stopOnError,
		},
		a.logger,
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "written %d, kept %d, failed %d\n",
		len(summary.Written), len(summary.Kept), len(summary.Failed))
	for _, name := range summary.Failed {
		fmt.Fprintf(out, "  failed: %s\n", name)
	}
	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d sample(s) failed extraction", len(summary.Failed))
	}
	return nil
}
