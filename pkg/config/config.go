// Package config loads taskpilot settings from flags, environment and config file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/hamzaessahbaoui/taskpilot/pkg/logging"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

const envPrefix = "TASKPILOT"

type Config struct {
	Provider      string
	Model         string
	MaxTokens     int64
	MaxToolRounds int
	SystemPrompt  string

	SessionStore string
	SessionsDir  string
	SQLitePath   string

	BackendEndpoint string
	BackendAPIKey   string

	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string

	Timezone string
	Debug    bool
	Log      logging.Config
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderAnthropic)
	v.SetDefault("max-tokens", 4096)
	v.SetDefault("max-tool-rounds", 10)
	v.SetDefault("session-store", StoreFile)
	v.SetDefault("sessions-dir", "saved_sessions")
	v.SetDefault("sqlite-path", filepath.Join("saved_sessions", "sessions.db"))
	v.SetDefault("timezone", "US/Pacific")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
}

// Init wires environment variables and the config file into v. An explicit
// configFile must exist; otherwise a missing config.yaml is not an error.
func Init(v *viper.Viper, configFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"anthropic-api-key": "ANTHROPIC_API_KEY",
		"openai-api-key":    "OPENAI_API_KEY",
	} {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, "-", "_")), env); err != nil {
			return errors.Wrapf(err, "bind %s", key)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.taskpilot")
		if xdg, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(xdg, "taskpilot"))
		}
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	log.Debug().Str("config", v.ConfigFileUsed()).Msg("loaded configuration")
	return nil
}

// Load reads every key from v and validates the enumerated ones.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Provider:        strings.ToLower(v.GetString("provider")),
		Model:           v.GetString("model"),
		MaxTokens:       v.GetInt64("max-tokens"),
		MaxToolRounds:   v.GetInt("max-tool-rounds"),
		SystemPrompt:    v.GetString("system-prompt"),
		SessionStore:    strings.ToLower(v.GetString("session-store")),
		SessionsDir:     v.GetString("sessions-dir"),
		SQLitePath:      v.GetString("sqlite-path"),
		BackendEndpoint: v.GetString("backend-endpoint"),
		BackendAPIKey:   v.GetString("backend-api-key"),
		AnthropicAPIKey: v.GetString("anthropic-api-key"),
		OpenAIAPIKey:    v.GetString("openai-api-key"),
		OpenAIBaseURL:   v.GetString("openai-base-url"),
		Timezone:        v.GetString("timezone"),
		Debug:           v.GetBool("debug"),
		Log: logging.Config{
			Level:      v.GetString("log-level"),
			Format:     v.GetString("log-format"),
			File:       v.GetString("log-file"),
			WithCaller: v.GetBool("with-caller"),
		},
	}
	if c.Debug && c.Log.Level != "trace" {
		c.Log.Level = "debug"
	}

	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return nil, errors.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderAnthropic, ProviderOpenAI)
	}
	switch c.SessionStore {
	case StoreFile, StoreSQLite:
	default:
		return nil, errors.Errorf("unknown session store %q (want %s or %s)", c.SessionStore, StoreFile, StoreSQLite)
	}
	if c.MaxTokens <= 0 {
		return nil, errors.Errorf("max-tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxToolRounds <= 0 {
		return nil, errors.Errorf("max-tool-rounds must be positive, got %d", c.MaxToolRounds)
	}
	return c, nil
}

// APIKey returns the key of the selected provider.
func (c *Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}
