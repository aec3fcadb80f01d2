package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)

	logger.Debug().Str("command", "apps list").Msg("invoking handler")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "pipeshell", line["app"])
	assert.Equal(t, "apps list", line["command"])
	assert.Equal(t, "invoking handler", line["message"])
	assert.Contains(t, line, "time")
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "WARN", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Output: &buf, NoColor: true})
	require.NoError(t, err)

	logger.Info().Str("session", "s1").Msg("session started")
	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "session started")
	assert.Contains(t, out, "session=s1")
	assert.NotContains(t, out, "\x1b[")

	logger.Debug().Msg("below default level")
	assert.NotContains(t, buf.String(), "below default level")
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}
