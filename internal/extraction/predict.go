package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahrav/clinicalextract/internal/corpus"
)

// PredictSummary counts what a PredictCorpus run did.
type PredictSummary struct {
	Written []string `json:"written"`
	Kept    []string `json:"kept"`
	Failed  []string `json:"failed"`
}

// PredictConfig controls PredictCorpus.
type PredictConfig struct {
	// Dir is the on-disk samples directory prediction files are written to.
	Dir string
	// Overwrite re-extracts samples that already carry a prediction file.
	Overwrite bool
	// StopOnError aborts the run on the first extraction failure instead of
	// recording it and moving on.
	StopOnError bool
}

// PredictCorpus runs ex over every sample whose prediction file is missing
// (or all samples with Overwrite) and writes <stem>_pred.json next to the note.
// Samples are processed in discovery order.
func PredictCorpus(
	ctx context.Context,
	loader *corpus.Loader,
	ex Extractor,
	opts Options,
	cfg PredictConfig,
	logger *slog.Logger,
) (PredictSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var summary PredictSummary

	samples, err := loader.Discover()
	if err != nil {
		return summary, err
	}

	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if s.HasPrediction && !cfg.Overwrite {
			summary.Kept = append(summary.Kept, s.Name)
			continue
		}

		text, err := loader.ReadText(s)
		if err != nil {
			return summary, err
		}

		records, err := ex.Extract(ctx, text, opts)
		switch {
		case err == nil:
		case errors.Is(err, ErrEmptyText):
			// An empty note still yields an available, empty prediction set.
			records = nil
		case ctx.Err() != nil || cfg.StopOnError:
			return summary, fmt.Errorf("extract %s: %w", s.Name, err)
		default:
			logger.Error("extraction failed", "sample", s.Name, "error", err)
			summary.Failed = append(summary.Failed, s.Name)
			continue
		}

		path, err := corpus.WritePredictions(cfg.Dir, s, records)
		if err != nil {
			return summary, err
		}
		logger.Info("predictions written", "sample", s.Name, "path", path, "records", len(records))
		summary.Written = append(summary.Written, s.Name)
	}
	return summary, nil
}
