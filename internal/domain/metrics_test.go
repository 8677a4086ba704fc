package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(class, text string) Extraction {
	return Extraction{Class: class, Text: text}
}

func TestScore_DegenerateInputs(t *testing.T) {
	zero := Metrics{}

	t.Run("both empty", func(t *testing.T) {
		assert.Equal(t, zero, Score(nil, nil, MatchPartial))
		assert.Equal(t, zero, Score([]Extraction{}, []Extraction{}, MatchExact))
	})

	t.Run("no predictions", func(t *testing.T) {
		m := Score(nil, []Extraction{rec("symptom_sign", "fever")}, MatchPartial)
		assert.Equal(t, Metrics{GoldCount: 1}, m)
	})

	t.Run("no gold", func(t *testing.T) {
		m := Score([]Extraction{rec("symptom_sign", "fever")}, nil, MatchPartial)
		assert.Equal(t, Metrics{PredictedCount: 1}, m)
	})
}

func TestScore_ExactIdempotence(t *testing.T) {
	records := []Extraction{
		rec("medication", "Lisinopril"),
		rec("dosage", "10 mg"),
		rec("route", "PO"),
		rec("frequency", "daily"),
		rec("medication", "Metformin"),
		rec("dosage", "500 mg"),
		rec("diagnosis", "Hypertension"),
	}

	m := Score(records, records, MatchExact)
	assert.Equal(t, len(records), m.TruePositives)
	assert.InDelta(t, 1.0, m.Precision, 1e-12)
	assert.InDelta(t, 1.0, m.Recall, 1e-12)
	assert.InDelta(t, 1.0, m.F1, 1e-12)
}

func TestScore_ClassGate(t *testing.T) {
	pred := []Extraction{rec("medication", "Cefazolin")}
	gold := []Extraction{rec("dosage", "Cefazolin")}

	for _, mode := range []MatchMode{MatchExact, MatchPartial} {
		t.Run(mode.String(), func(t *testing.T) {
			m := Score(pred, gold, mode)
			assert.Zero(t, m.TruePositives)
			assert.Zero(t, m.F1)
		})
	}
}

func TestScore_ClassIsCaseSensitive(t *testing.T) {
	m := Score([]Extraction{rec("Medication", "Cefazolin")}, []Extraction{rec("medication", "Cefazolin")}, MatchExact)
	assert.Zero(t, m.TruePositives)
}

func TestScore_PartialContainment(t *testing.T) {
	pred := []Extraction{rec("medication", "cefazolin")}
	gold := []Extraction{rec("medication", "Cefazolin 250mg IV")}

	partial := Score(pred, gold, MatchPartial)
	assert.Equal(t, 1, partial.TruePositives)
	assert.InDelta(t, 1.0, partial.F1, 1e-12)

	exact := Score(pred, gold, MatchExact)
	assert.Zero(t, exact.TruePositives)
}

func TestScore_OneToOneConsumption(t *testing.T) {
	gold := []Extraction{rec("symptom_sign", "fever")}
	pred := []Extraction{rec("symptom_sign", "fever"), rec("symptom_sign", "fever")}

	m := Score(pred, gold, MatchPartial)
	assert.Equal(t, 1, m.TruePositives)
	assert.InDelta(t, 0.5, m.Precision, 1e-12)
	assert.InDelta(t, 1.0, m.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, m.F1, 1e-12)
}

func TestScore_GreedyFirstMatchIsOrderDependent(t *testing.T) {
	// "pain" greedily consumes "chest pain" although "abdominal pain" would
	// also fit, leaving the later "chest pain" prediction without a candidate.
	gold := []Extraction{rec("symptom_sign", "chest pain"), rec("symptom_sign", "abdominal pain")}
	first := []Extraction{rec("symptom_sign", "pain"), rec("symptom_sign", "chest pain")}
	second := []Extraction{rec("symptom_sign", "chest pain"), rec("symptom_sign", "pain")}

	assert.Equal(t, 1, Score(first, gold, MatchPartial).TruePositives)
	assert.Equal(t, 2, Score(second, gold, MatchPartial).TruePositives)

	// Same input, same result.
	assert.Equal(t, Score(first, gold, MatchPartial), Score(first, gold, MatchPartial))
}

func TestScore_SkipsConsumedGoldAndKeepsScanning(t *testing.T) {
	gold := []Extraction{
		rec("lab_value", "12.2 K/uL"),
		rec("lab_test", "WBC"),
		rec("lab_value", "10.1 g/dL"),
	}
	pred := []Extraction{
		rec("lab_value", "12.2 K/uL"),
		rec("lab_value", "10.1 g/dL"),
		rec("lab_test", "wbc"),
	}

	m := Score(pred, gold, MatchExact)
	assert.Equal(t, 3, m.TruePositives)
}

func TestScore_BlankTextNeverMatches(t *testing.T) {
	pred := []Extraction{rec("diagnosis", ""), rec("diagnosis", "  ")}
	gold := []Extraction{rec("diagnosis", ""), rec("diagnosis", "Hypertension")}

	for _, mode := range []MatchMode{MatchExact, MatchPartial} {
		assert.Zero(t, Score(pred, gold, mode).TruePositives, mode.String())
	}
}

func TestScore_DoesNotMutateInputs(t *testing.T) {
	pred := []Extraction{rec("medication", "Metformin")}
	gold := []Extraction{rec("medication", "metformin 500 mg")}
	predCopy := CloneExtractions(pred)
	goldCopy := CloneExtractions(gold)

	_ = Score(pred, gold, MatchPartial)

	assert.Equal(t, predCopy, pred)
	assert.Equal(t, goldCopy, gold)
}

func TestNewMetrics(t *testing.T) {
	tests := []struct {
		name          string
		tp, pred, gld int
		want          Metrics
	}{
		{name: "zeros", want: Metrics{}},
		{name: "perfect", tp: 4, pred: 4, gld: 4, want: Metrics{Precision: 1, Recall: 1, F1: 1, TruePositives: 4, PredictedCount: 4, GoldCount: 4}},
		{name: "no true positives", tp: 0, pred: 3, gld: 2, want: Metrics{PredictedCount: 3, GoldCount: 2}},
		{name: "half precision", tp: 1, pred: 2, gld: 1, want: Metrics{Precision: 0.5, Recall: 1, F1: 2.0 / 3.0, TruePositives: 1, PredictedCount: 2, GoldCount: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMetrics(tt.tp, tt.pred, tt.gld)
			assert.InDelta(t, tt.want.Precision, got.Precision, 1e-12)
			assert.InDelta(t, tt.want.Recall, got.Recall, 1e-12)
			assert.InDelta(t, tt.want.F1, got.F1, 1e-12)
			assert.Equal(t, tt.want.TruePositives, got.TruePositives)
			assert.Equal(t, tt.want.PredictedCount, got.PredictedCount)
			assert.Equal(t, tt.want.GoldCount, got.GoldCount)
			require.NoError(t, got.Validate())
		})
	}
}

func TestMetrics_Validate(t *testing.T) {
	valid := NewMetrics(2, 3, 4)
	require.NoError(t, valid.Validate())

	tooMany := Metrics{TruePositives: 3, PredictedCount: 2, GoldCount: 5}
	require.ErrorIs(t, tooMany.Validate(), ErrInvalidMetrics)

	outOfRange := Metrics{Precision: 1.5}
	require.Error(t, outOfRange.Validate())
}

func TestScoreByClass(t *testing.T) {
	pred := []Extraction{
		rec("medication", "Cefazolin"),
		rec("dosage", "250 mg"),
		rec("route", "IV"),
		rec("route", "PO"),
	}
	gold := []Extraction{
		rec("medication", "Cefazolin"),
		rec("dosage", "250 mg"),
		rec("route", "IV"),
		rec("frequency", "TID"),
	}

	byClass := ScoreByClass(pred, gold, MatchExact)
	require.Len(t, byClass, 4)

	assert.Equal(t, 1, byClass["medication"].TruePositives)
	assert.InDelta(t, 0.5, byClass["route"].Precision, 1e-12)
	assert.InDelta(t, 1.0, byClass["route"].Recall, 1e-12)
	assert.Equal(t, Metrics{GoldCount: 1}, byClass["frequency"])

	total := 0
	for _, m := range byClass {
		total += m.TruePositives
	}
	assert.Equal(t, Score(pred, gold, MatchExact).TruePositives, total)
}

func TestScoreByClass_Empty(t *testing.T) {
	assert.Nil(t, ScoreByClass(nil, nil, MatchPartial))
}
