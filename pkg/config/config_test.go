package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaessahbaoui/taskpilot/pkg/config"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	c, err := config.Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, config.ProviderAnthropic, c.Provider)
	assert.Equal(t, int64(4096), c.MaxTokens)
	assert.Equal(t, 10, c.MaxToolRounds)
	assert.Equal(t, config.StoreFile, c.SessionStore)
	assert.Equal(t, "saved_sessions", c.SessionsDir)
	assert.Equal(t, "US/Pacific", c.Timezone)
	assert.Equal(t, "info", c.Log.Level)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("TASKPILOT_PROVIDER", "openai")
	t.Setenv("TASKPILOT_MAX_TOOL_ROUNDS", "3")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TASKPILOT_BACKEND_ENDPOINT", "https://api.example.com/graphql")

	v := newViper(t)
	require.NoError(t, config.Init(v, ""))
	c, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, config.ProviderOpenAI, c.Provider)
	assert.Equal(t, 3, c.MaxToolRounds)
	assert.Equal(t, "sk-test", c.APIKey())
	assert.Equal(t, "https://api.example.com/graphql", c.BackendEndpoint)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session-store: sqlite\nsqlite-path: /tmp/s.db\ndebug: true\n"), 0o600))

	v := newViper(t)
	require.NoError(t, config.Init(v, path))
	c, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, config.StoreSQLite, c.SessionStore)
	assert.Equal(t, "/tmp/s.db", c.SQLitePath)
	assert.Equal(t, "debug", c.Log.Level, "debug raises the log level")
}

func TestMissingExplicitConfigFile(t *testing.T) {
	err := config.Init(newViper(t), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		key   string
		value interface{}
	}{
		{key: "provider", value: "gemini"},
		{key: "session-store", value: "postgres"},
		{key: "max-tokens", value: 0},
		{key: "max-tool-rounds", value: -1},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			v := newViper(t)
			v.Set(tc.key, tc.value)
			_, err := config.Load(v)
			require.Error(t, err)
		})
	}
}
