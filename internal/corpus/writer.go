package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ahrav/clinicalextract/internal/domain"
)

// WritePredictions stores records as the prediction file of s inside dir.
// The file is a bare JSON array, the simplest shape DecodeExtractions accepts.
func WritePredictions(dir string, s Sample, records []domain.Extraction) (string, error) {
	if records == nil {
		records = []domain.Extraction{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode predictions for %s: %w", s.Name, err)
	}

	dst := filepath.Join(dir, filepath.FromSlash(s.PredictionPath))
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write predictions for %s: %w", s.Name, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit predictions for %s: %w", s.Name, err)
	}
	return dst, nil
}
