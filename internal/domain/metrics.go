// Package domain metrics implements the set-matching scorer that compares
// predicted extractions against gold annotations.
//
// Matching is greedy and order-dependent: every predicted record, in input
// order, consumes the first unconsumed gold record of the same class whose
// text satisfies the MatchMode predicate. Given a fixed input ordering the
// result is fully deterministic, which keeps regression runs over fixed
// sample sets reproducible.
package domain

// Metrics summarizes one scoring pass.
// Precision, Recall and F1 are always within [0, 1] and
// TruePositives never exceeds min(PredictedCount, GoldCount).
type Metrics struct {
	Precision      float64 `json:"precision"       yaml:"precision"       validate:"min=0,max=1"`
	Recall         float64 `json:"recall"          yaml:"recall"          validate:"min=0,max=1"`
	F1             float64 `json:"f1"              yaml:"f1"              validate:"min=0,max=1"`
	TruePositives  int     `json:"true_positives"  yaml:"true_positives"  validate:"min=0"`
	PredictedCount int     `json:"predicted_count" yaml:"predicted_count" validate:"min=0"`
	GoldCount      int     `json:"gold_count"      yaml:"gold_count"      validate:"min=0"`
}

// Validate checks the metric ranges and the true-positive bound.
func (m *Metrics) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}
	if m.TruePositives > min(m.PredictedCount, m.GoldCount) {
		return ErrInvalidMetrics
	}
	return nil
}

// NewMetrics derives precision, recall and F1 from raw counts.
// Every ratio with a zero denominator is defined as 0.
func NewMetrics(truePositives, predicted, gold int) Metrics {
	m := Metrics{
		TruePositives:  truePositives,
		PredictedCount: predicted,
		GoldCount:      gold,
	}
	if predicted > 0 {
		m.Precision = float64(truePositives) / float64(predicted)
	}
	if gold > 0 {
		m.Recall = float64(truePositives) / float64(gold)
	}
	if sum := m.Precision + m.Recall; sum > 0 {
		m.F1 = 2 * m.Precision * m.Recall / sum
	}
	return m
}

// Score matches predicted against gold and returns the resulting metrics.
// It never fails: empty inputs on either side yield zero-valued ratios.
func Score(predicted, gold []Extraction, mode MatchMode) Metrics {
	return NewMetrics(CountTruePositives(predicted, gold, mode), len(predicted), len(gold))
}

// CountTruePositives runs the greedy one-to-one match and returns the
// number of predicted records that consumed a gold record.
func CountTruePositives(predicted, gold []Extraction, mode MatchMode) int {
	if len(predicted) == 0 || len(gold) == 0 {
		return 0
	}

	goldKeys := make([]string, len(gold))
	for i := range gold {
		goldKeys[i] = NormalizeText(gold[i].Text)
	}

	consumed := make([]bool, len(gold))
	tp := 0
	for _, p := range predicted {
		key := NormalizeText(p.Text)
		for i := range gold {
			if consumed[i] || gold[i].Class != p.Class {
				continue
			}
			if mode.matchNormalized(key, goldKeys[i]) {
				consumed[i] = true
				tp++
				break
			}
		}
	}
	return tp
}

// ScoreByClass scores every class present on either side independently.
// The class gate in Score guarantees that the per-class true positives
// sum to the true positives of a single Score call over the same inputs.
func ScoreByClass(predicted, gold []Extraction, mode MatchMode) map[string]Metrics {
	classes := Classes(predicted, gold)
	if len(classes) == 0 {
		return nil
	}
	out := make(map[string]Metrics, len(classes))
	for _, class := range classes {
		out[class] = Score(FilterByClass(predicted, class), FilterByClass(gold, class), mode)
	}
	return out
}
