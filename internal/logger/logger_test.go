package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected LogFormat
	}{
		{"console", FormatConsole},
		{"CONSOLE", FormatConsole},
		{"json", FormatJSON},
		{"", FormatJSON},
		{"bogus", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogFormat(tt.input))
		})
	}
}

func TestSetupAndFields(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var buf bytes.Buffer
	Setup(Config{
		Level:  "debug",
		Format: FormatJSON,
		Output: &buf,
	})

	log := Get()
	require.NotNil(t, log)

	log.Info("hello", map[string]interface{}{"book_id": "b1"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "b1", entry["book_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	var buf bytes.Buffer
	Setup(Config{
		Level:  "warn",
		Format: FormatJSON,
		Output: &buf,
	})

	log := Get()
	log.Debug("suppressed")
	log.Info("suppressed too")
	assert.Empty(t, buf.String())

	log.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("no panic")
	l.Warnf("no panic %d", 1)
	l.Error("no panic")
	assert.NotNil(t, l.WithFields(map[string]interface{}{"k": "v"}))
}
