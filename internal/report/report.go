// Package report writes evaluation reports to disk and renders the
// human-readable summary printed at the end of a run.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/clinicalextract/internal/domain"
)

// Output formats and their file names.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"

	JSONFileName = "eval_results.json"
	YAMLFileName = "eval_results.yaml"
)

// ErrUnknownFormat indicates a format other than json or yaml.
var ErrUnknownFormat = errors.New("unknown report format")

// FileName returns the report file name for format.
func FileName(format string) (string, error) {
	switch format {
	case "", FormatJSON:
		return JSONFileName, nil
	case FormatYAML:
		return YAMLFileName, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Encode serializes r in the given format.
func Encode(r *domain.EvaluationReport, format string) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Decode parses a report previously produced by Encode.
func Decode(data []byte, format string) (*domain.EvaluationReport, error) {
	var r domain.EvaluationReport
	var err error
	switch format {
	case "", FormatJSON:
		err = json.Unmarshal(data, &r)
	case FormatYAML:
		err = yaml.Unmarshal(data, &r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// Write stores r inside dir, creating dir when needed, and returns the path.
func Write(dir string, r *domain.EvaluationReport, format string) (string, error) {
	name, err := FileName(format)
	if err != nil {
		return "", err
	}
	data, err := Encode(r, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	dst := filepath.Join(dir, name)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit report: %w", err)
	}
	return dst, nil
}

// PrintSummary renders per-file and aggregate metrics as an aligned table.
// skipped is the number of documents that lacked a prediction or gold set.
func PrintSummary(w io.Writer, r *domain.EvaluationReport, skipped int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "match mode: %s\n", r.MatchMode)
	if r.RunID != "" {
		fmt.Fprintf(tw, "run: %s\n", r.RunID)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "FILE\tP\tR\tF1\tTP\tPRED\tGOLD")
	for _, res := range r.PerFile {
		writeRow(tw, res.File, res.Metrics)
	}
	writeRow(tw, "AGGREGATE", r.Aggregate)

	if len(r.AggregateByClass) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CLASS\tP\tR\tF1\tTP\tPRED\tGOLD")
		classes := make([]string, 0, len(r.AggregateByClass))
		for class := range r.AggregateByClass {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		for _, class := range classes {
			writeRow(tw, class, r.AggregateByClass[class])
		}
	}

	fmt.Fprintf(tw, "\nscored %d document(s), skipped %d\n", len(r.PerFile), skipped)
	return tw.Flush()
}

func writeRow(w io.Writer, label string, m domain.Metrics) {
	fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%d\t%d\t%d\n",
		label, m.Precision, m.Recall, m.F1, m.TruePositives, m.PredictedCount, m.GoldCount)
}
