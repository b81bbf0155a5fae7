package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaessahbaoui/taskpilot/pkg/logging"
)

func restoreLogger(t *testing.T) {
	prev, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(level)
	})
}

func TestJSONFormatAndLevel(t *testing.T) {
	restoreLogger(t)
	var out bytes.Buffer

	require.NoError(t, logging.InitLogger(logging.Config{Level: "warn", Format: "json", Out: &out}))
	log.Info().Msg("hidden")
	log.Warn().Str("tool", "create_todo").Msg("tool call failed")

	text := out.String()
	assert.NotContains(t, text, "hidden")
	assert.Contains(t, text, `"tool":"create_todo"`)
	assert.Contains(t, text, `"level":"warn"`)
}

func TestLogFileReceivesLines(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "taskpilot.log")

	require.NoError(t, logging.InitLogger(logging.Config{Level: "debug", File: path, Out: &bytes.Buffer{}}))
	log.Debug().Msg("saved session")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "saved session")
}

func TestInvalidSettings(t *testing.T) {
	restoreLogger(t)

	assert.Error(t, logging.InitLogger(logging.Config{Level: "loud"}))
	assert.Error(t, logging.InitLogger(logging.Config{Format: "xml"}))
}
