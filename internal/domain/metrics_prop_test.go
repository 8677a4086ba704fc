package domain

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"
)

var (
	propClasses = []string{"medication", "dosage", "symptom_sign", "lab_value"}
	propTexts   = []string{"", "fever", "Fever ", "cefazolin", "Cefazolin 250mg IV", "250 mg", "mg", "cough", "shortness of breath"}
)

// extractionSeq is a quick.Generator producing small sequences drawn from a
// narrow vocabulary so that matches, containments and class clashes are common.
type extractionSeq []Extraction

func (extractionSeq) Generate(r *rand.Rand, _ int) reflect.Value {
	n := r.Intn(8)
	seq := make(extractionSeq, n)
	for i := range seq {
		seq[i] = Extraction{
			Class: propClasses[r.Intn(len(propClasses))],
			Text:  propTexts[r.Intn(len(propTexts))],
		}
	}
	return reflect.ValueOf(seq)
}

func TestProperty_Score_Bounds(t *testing.T) {
	property := func(pred, gold extractionSeq, exact bool) bool {
		mode := MatchPartial
		if exact {
			mode = MatchExact
		}
		m := Score(pred, gold, mode)
		in01 := func(x float64) bool { return x >= 0 && x <= 1 }
		return in01(m.Precision) && in01(m.Recall) && in01(m.F1) &&
			m.TruePositives <= min(len(pred), len(gold)) &&
			m.PredictedCount == len(pred) && m.GoldCount == len(gold) &&
			m.Validate() == nil
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 500}); err != nil {
		t.Errorf("metric bounds property failed: %v", err)
	}
}

func TestProperty_Aggregate_EqualsConcatenatedScore(t *testing.T) {
	property := func(p1, g1, p2, g2 extractionSeq) bool {
		pairs := []DocumentPair{
			{ID: "a.txt", Predicted: nonNil(p1), Gold: nonNil(g1)},
			{ID: "b.txt", Predicted: nonNil(p2), Gold: nonNil(g2)},
		}
		report := Aggregate(pairs, AggregateOptions{Mode: MatchPartial})

		pred := append(append([]Extraction{}, p1...), p2...)
		gold := append(append([]Extraction{}, g1...), g2...)
		return report.Aggregate == Score(pred, gold, MatchPartial) && len(report.PerFile) == 2
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 300}); err != nil {
		t.Errorf("aggregate recompute property failed: %v", err)
	}
}

func TestProperty_ScoreByClass_SumsToGlobal(t *testing.T) {
	property := func(pred, gold extractionSeq) bool {
		total := 0
		for _, m := range ScoreByClass(pred, gold, MatchPartial) {
			total += m.TruePositives
		}
		return total == Score(pred, gold, MatchPartial).TruePositives
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 300}); err != nil {
		t.Errorf("per-class sum property failed: %v", err)
	}
}

func TestProperty_Score_ExactIdempotenceOnDistinctTexts(t *testing.T) {
	property := func(seq extractionSeq) bool {
		distinct := dedupeByClassText(seq)
		var nonBlank []Extraction
		for _, e := range distinct {
			if NormalizeText(e.Text) != "" {
				nonBlank = append(nonBlank, e)
			}
		}
		if len(nonBlank) == 0 {
			return true
		}
		m := Score(nonBlank, nonBlank, MatchExact)
		return m.Precision == 1 && m.Recall == 1 && m.F1 == 1
	}

	if err := quick.Check(property, nil); err != nil {
		t.Errorf("exact idempotence property failed: %v", err)
	}
}

func dedupeByClassText(seq []Extraction) []Extraction {
	seen := make(map[[2]string]bool)
	var out []Extraction
	for _, e := range seq {
		key := [2]string{e.Class, NormalizeText(e.Text)}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

func nonNil(seq []Extraction) []Extraction {
	if seq == nil {
		return []Extraction{}
	}
	return seq
}
