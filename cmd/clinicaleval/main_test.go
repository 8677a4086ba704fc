package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/clinicalextract/internal/domain"
	"github.com/ahrav/clinicalextract/internal/report"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// newSamples lays out one complete note and one note without predictions.
func newSamples(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "a_meds.txt", "Started cefazolin 250 mg IV.")
	writeFile(t, dir, "a_meds.json", `{"extractions": [
		{"class": "medication", "text": "cefazolin"},
		{"class": "dosage", "text": "250 mg"}
	]}`)
	writeFile(t, dir, "a_meds_pred.json", `[
		{"class": "medication", "text": "Cefazolin 250 mg"},
		{"class": "route", "text": "IV"}
	]`)
	writeFile(t, dir, "b_pending.txt", "Fever since Tuesday.")
	writeFile(t, dir, "b_pending.json", `[{"class": "symptom_sign", "text": "Fever"}]`)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEval(t *testing.T) {
	samples := newSamples(t)
	output := filepath.Join(t.TempDir(), "out")

	stdout, err := execute(t, "eval", "--samples", samples, "--output", output, "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, stdout, "a_meds.txt")
	assert.NotContains(t, stdout, "b_pending.txt")
	assert.Contains(t, stdout, "AGGREGATE")
	assert.Contains(t, stdout, "scored 1 document(s), skipped 1")

	data, err := os.ReadFile(filepath.Join(output, report.JSONFileName))
	require.NoError(t, err)
	var r domain.EvaluationReport
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, domain.MatchPartial, r.MatchMode)
	assert.Equal(t, domain.NewMetrics(1, 2, 2), r.Aggregate)
	require.Len(t, r.PerFile, 1)
	assert.Equal(t, "a_meds.txt", r.PerFile[0].File)
}

func TestEval_ExactYAMLByClass(t *testing.T) {
	samples := newSamples(t)
	output := t.TempDir()

	stdout, err := execute(t, "eval",
		"--samples", samples,
		"--output", output,
		"--match", "exact",
		"--format", "yaml",
		"--by-class",
		"--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "match mode: exact")
	assert.Contains(t, stdout, "CLASS")

	data, err := os.ReadFile(filepath.Join(output, report.YAMLFileName))
	require.NoError(t, err)
	r, err := report.Decode(data, "yaml")
	require.NoError(t, err)
	assert.Equal(t, domain.NewMetrics(0, 2, 2), r.Aggregate)
	assert.Contains(t, r.AggregateByClass, "medication")
}

func TestEval_MatchModeIsCaseInsensitive(t *testing.T) {
	stdout, err := execute(t, "eval", "--samples", newSamples(t), "--match", "EXACT", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "match mode: exact")
}

func TestEval_Errors(t *testing.T) {
	samples := newSamples(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown match mode", []string{"eval", "--samples", samples, "--match", "fuzzy"}},
		{"unknown format", []string{"eval", "--samples", samples, "--format", "xml"}},
		{"missing samples dir", []string{"eval", "--samples", filepath.Join(samples, "nope")}},
		{"unknown log level", []string{"eval", "--samples", samples, "--log-level", "loud"}},
		{"missing config file", []string{"eval", "--config", filepath.Join(samples, "missing.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestEval_ConfigFile(t *testing.T) {
	samples := newSamples(t)
	output := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "clinicaleval.yaml")
	writeFile(t, filepath.Dir(cfgPath), filepath.Base(cfgPath),
		"samples_dir: "+samples+"\noutput_dir: "+output+"\nmatch_mode: exact\nlog:\n  level: error\n")

	stdout, err := execute(t, "eval", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "match mode: exact")
	assert.FileExists(t, filepath.Join(output, report.JSONFileName))
}

func TestPredict(t *testing.T) {
	samples := newSamples(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"extractions": [{"class": "symptom_sign", "text": "Fever"}]}`))
	}))
	defer srv.Close()

	stdout, err := execute(t, "predict", "--samples", samples, "--endpoint", srv.URL, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "written 1, kept 1, failed 0")
	assert.FileExists(t, filepath.Join(samples, "b_pending_pred.json"))

	stdout, err = execute(t, "eval", "--samples", samples, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "scored 2 document(s), skipped 0")
}

func TestPredict_RequiresEndpoint(t *testing.T) {
	_, err := execute(t, "predict", "--samples", newSamples(t), "--log-level", "error")
	assert.Error(t, err)
}

func TestSubmit_RejectsOversizedRequest(t *testing.T) {
	samples := newSamples(t)
	long := strings.Repeat("x", domain.MaxRequestPayloadBytes)
	writeFile(t, samples, "c_long.txt", "note")
	writeFile(t, samples, "c_long.json", `[{"class": "diagnosis", "text": "`+long+`"}]`)
	writeFile(t, samples, "c_long_pred.json", `[]`)

	_, err := execute(t, "submit", "--samples", samples, "--log-level", "error")
	require.ErrorIs(t, err, domain.ErrRequestTooLarge)
	assert.Contains(t, err.Error(), "run eval locally")
}
