package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/ahrav/clinicalextract/internal/domain"
)

// File naming conventions inside a samples directory.
const (
	TextExt          = ".txt"
	GoldExt          = ".json"
	PredictionSuffix = "_pred.json"
)

// ErrSamplesDir indicates the samples directory could not be listed.
var ErrSamplesDir = errors.New("cannot read samples directory")

// Sample describes one clinical note and its companion files.
// Paths are relative to the loader's file system root.
type Sample struct {
	Name           string
	TextPath       string
	GoldPath       string
	PredictionPath string
	HasGold        bool
	HasPrediction  bool
}

// Stem returns the note name without its extension.
func (s Sample) Stem() string {
	return strings.TrimSuffix(s.Name, TextExt)
}

// Loader reads samples from a file system.
type Loader struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewLoader creates a loader over fsys. A nil logger falls back to slog.Default().
func NewLoader(fsys fs.FS, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fsys: fsys, logger: logger}
}

// NewDirLoader creates a loader rooted at a directory on disk.
func NewDirLoader(dir string, logger *slog.Logger) *Loader {
	return NewLoader(os.DirFS(dir), logger)
}

// Discover lists every *.txt note at the root, in lexical order, together
// with the presence of its gold (<stem>.json) and prediction
// (<stem>_pred.json) companions.
func (l *Loader) Discover() ([]Sample, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSamplesDir, err)
	}

	files := make(map[string]bool, len(entries))
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files[entry.Name()] = true
		if path.Ext(entry.Name()) == TextExt {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	samples := make([]Sample, 0, len(names))
	for _, name := range names {
		stem := strings.TrimSuffix(name, TextExt)
		s := Sample{
			Name:           name,
			TextPath:       name,
			GoldPath:       stem + GoldExt,
			PredictionPath: stem + PredictionSuffix,
		}
		s.HasGold = files[s.GoldPath]
		s.HasPrediction = files[s.PredictionPath]
		samples = append(samples, s)
	}
	return samples, nil
}

// Load reads the gold and prediction sets of each sample into document pairs.
// Absent companion files leave the corresponding set nil, which the
// aggregator treats as "skip this document". Present but malformed files
// decode to empty sets.
func (l *Loader) Load(samples []Sample) ([]domain.DocumentPair, error) {
	pairs := make([]domain.DocumentPair, 0, len(samples))
	for _, s := range samples {
		pair := domain.DocumentPair{ID: s.Name}
		var err error
		if s.HasGold {
			if pair.Gold, err = l.readExtractions(s.GoldPath); err != nil {
				return nil, err
			}
		}
		if s.HasPrediction {
			if pair.Predicted, err = l.readExtractions(s.PredictionPath); err != nil {
				return nil, err
			}
		}
		if !pair.Complete() {
			l.logger.Debug("sample lacks companion file, skipping from scores",
				"sample", s.Name,
				"has_gold", s.HasGold,
				"has_prediction", s.HasPrediction)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// LoadAll discovers and loads every sample.
func (l *Loader) LoadAll() ([]domain.DocumentPair, error) {
	samples, err := l.Discover()
	if err != nil {
		return nil, err
	}
	return l.Load(samples)
}

// ReadText returns the clinical note of a sample.
func (l *Loader) ReadText(s Sample) (string, error) {
	data, err := fs.ReadFile(l.fsys, s.TextPath)
	if err != nil {
		return "", fmt.Errorf("read note %s: %w", s.Name, err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func (l *Loader) readExtractions(name string) ([]domain.Extraction, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	records := DecodeExtractions(data)
	if len(records) == 0 && len(strings.TrimSpace(string(data))) > 2 {
		l.logger.Warn("record file decoded to an empty set", "file", name)
	}
	return records, nil
}
