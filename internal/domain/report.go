package domain

// DocumentPair holds the predicted and gold extractions of one document.
// A nil slice marks a set that is not available (e.g. no companion file);
// an empty non-nil slice is an available set that happens to be empty.
type DocumentPair struct {
	// ID identifies the document in the report, usually its file name.
	ID string `json:"id" validate:"required"`

	// Predicted are the extraction engine's records in output order.
	Predicted []Extraction `json:"predicted"`

	// Gold are the reference annotations in file order.
	Gold []Extraction `json:"gold"`
}

// Complete reports whether both sets are available.
func (d DocumentPair) Complete() bool {
	return d.Predicted != nil && d.Gold != nil
}

// DocumentResult is the score of one complete document pair.
type DocumentResult struct {
	File    string             `json:"file"               yaml:"file"`
	Metrics Metrics            `json:"metrics"            yaml:"metrics"`
	ByClass map[string]Metrics `json:"by_class,omitempty" yaml:"by_class,omitempty"`
}

// EvaluationReport is the outcome of one evaluation run.
// PerFile preserves document order; documents lacking either set are absent.
type EvaluationReport struct {
	RunID            string             `json:"run_id,omitempty"             yaml:"run_id,omitempty"`
	MatchMode        MatchMode          `json:"match_mode"                   yaml:"match_mode"`
	PerFile          []DocumentResult   `json:"per_file"                     yaml:"per_file"`
	Aggregate        Metrics            `json:"aggregate"                    yaml:"aggregate"`
	AggregateByClass map[string]Metrics `json:"aggregate_by_class,omitempty" yaml:"aggregate_by_class,omitempty"`
}

// Skipped returns how many of the given pairs did not contribute to the report.
func (r *EvaluationReport) Skipped(pairs []DocumentPair) int {
	return len(pairs) - len(r.PerFile)
}

// AggregateOptions controls how a run is scored.
type AggregateOptions struct {
	// Mode selects the text predicate; the zero value means DefaultMatchMode.
	Mode MatchMode `json:"mode" validate:"match_mode"`

	// ByClass adds per-class breakdowns to documents and the aggregate.
	ByClass bool `json:"by_class"`
}

func (o AggregateOptions) mode() MatchMode {
	if o.Mode == "" {
		return DefaultMatchMode
	}
	return o.Mode
}

// ScoreDocument scores a single pair.
// The boolean is false when the pair is incomplete and must be skipped.
func ScoreDocument(pair DocumentPair, opts AggregateOptions) (DocumentResult, bool) {
	if !pair.Complete() {
		return DocumentResult{}, false
	}
	res := DocumentResult{
		File:    pair.ID,
		Metrics: Score(pair.Predicted, pair.Gold, opts.mode()),
	}
	if opts.ByClass {
		res.ByClass = ScoreByClass(pair.Predicted, pair.Gold, opts.mode())
	}
	return res, true
}

// Pool concatenates the records of every complete pair in document order.
func Pool(pairs []DocumentPair) (predicted, gold []Extraction) {
	for _, p := range pairs {
		if !p.Complete() {
			continue
		}
		predicted = append(predicted, p.Predicted...)
		gold = append(gold, p.Gold...)
	}
	return predicted, gold
}

// PoolScoring is Pool reduced to the class and text of each record, the
// only fields the scorer reads. Activities exchange this compact form.
func PoolScoring(pairs []DocumentPair) (predicted, gold []Extraction) {
	for _, p := range pairs {
		if !p.Complete() {
			continue
		}
		predicted = appendScoring(predicted, p.Predicted)
		gold = appendScoring(gold, p.Gold)
	}
	return predicted, gold
}

func appendScoring(dst, src []Extraction) []Extraction {
	for _, e := range src {
		dst = append(dst, Extraction{Class: e.Class, Text: e.Text})
	}
	return dst
}

// AssembleReport combines already computed per-document results with the
// recompute over the pooled records. Callers that score documents elsewhere
// (e.g. in parallel activities) use it to build the same report Aggregate does.
func AssembleReport(results []DocumentResult, predicted, gold []Extraction, opts AggregateOptions) EvaluationReport {
	report := EvaluationReport{
		MatchMode: opts.mode(),
		PerFile:   results,
		Aggregate: Score(predicted, gold, opts.mode()),
	}
	if report.PerFile == nil {
		report.PerFile = []DocumentResult{}
	}
	if opts.ByClass {
		report.AggregateByClass = ScoreByClass(predicted, gold, opts.mode())
	}
	return report
}

// Aggregate scores every complete pair and recomputes one aggregate over
// the pooled records. Incomplete pairs affect no metric. It never fails.
func Aggregate(pairs []DocumentPair, opts AggregateOptions) EvaluationReport {
	results := make([]DocumentResult, 0, len(pairs))
	for _, pair := range pairs {
		if res, ok := ScoreDocument(pair, opts); ok {
			results = append(results, res)
		}
	}
	predicted, gold := Pool(pairs)
	return AssembleReport(results, predicted, gold, opts)
}
