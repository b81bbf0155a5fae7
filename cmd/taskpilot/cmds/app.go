package cmds

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
	"github.com/hamzaessahbaoui/taskpilot/pkg/backend"
	"github.com/hamzaessahbaoui/taskpilot/pkg/config"
	"github.com/hamzaessahbaoui/taskpilot/pkg/model/anthropic"
	"github.com/hamzaessahbaoui/taskpilot/pkg/model/openai"
	"github.com/hamzaessahbaoui/taskpilot/pkg/tools"
	"github.com/hamzaessahbaoui/taskpilot/session"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(cfg *config.Config) (session.Store, io.Closer, error) {
	switch cfg.SessionStore {
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, errors.Wrap(err, "create sqlite directory")
			}
		}
		s, err := session.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := session.NewFileStore(cfg.SessionsDir)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	}
}

func buildToolkit(cfg *config.Config) (*toolkit.Toolkit, error) {
	tc := tools.Config{Timezone: cfg.Timezone}
	if cfg.BackendEndpoint != "" {
		c, err := backend.NewClient(cfg.BackendEndpoint, cfg.BackendAPIKey)
		if err != nil {
			return nil, err
		}
		tc.Backend = c
	}
	return tools.NewToolkit(tc)
}

// buildModel returns the endpoint adapter and the model name to request.
func buildModel(cfg *config.Config) (orchestrator.Model, string, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		m, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, "", err
		}
		name := cfg.Model
		if name == "" {
			name = openai.DefaultModel
		}
		return m, name, nil
	default:
		m, err := anthropic.New(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, "", err
		}
		name := cfg.Model
		if name == "" {
			name = string(anthropic.DefaultModel)
		}
		return m, name, nil
	}
}
