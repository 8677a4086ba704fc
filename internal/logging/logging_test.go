package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/clinicalextract/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "file", "a.txt")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "a.txt", line["file"])
	assert.Equal(t, "clinicaleval", line["service"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "debug", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Debug("scored", "f1", 0.5)
	assert.Contains(t, buf.String(), "msg=scored")
	assert.Contains(t, buf.String(), "f1=0.5")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)

	_, err = New(config.LogConfig{Format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestTemporal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Format: "text"}, &buf)
	require.NoError(t, err)

	Temporal(logger).Info("worker started", "task_queue", "q")
	assert.Contains(t, buf.String(), "worker started")
	assert.Contains(t, buf.String(), "task_queue=q")

	assert.NotNil(t, Temporal(nil))
}
