// Package cmds holds the taskpilot cobra commands.
package cmds

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hamzaessahbaoui/taskpilot/pkg/config"
	"github.com/hamzaessahbaoui/taskpilot/pkg/logging"
)

// app carries the resolved configuration from the root command to its children.
type app struct {
	v   *viper.Viper
	cfg *config.Config
}

func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:          "taskpilot",
		Short:        "taskpilot lets a language model manage your tasks, todos and OKRs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
				return err
			}
			configFile, _ := cmd.Root().PersistentFlags().GetString("config")
			if err := config.Init(a.v, configFile); err != nil {
				return err
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return logging.InitLogger(cfg.Log)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to config file (default ./config.yaml or ~/.taskpilot/config.yaml)")

	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (json, text)")
	flags.String("log-file", "", "Also write logs to this rotating file")
	flags.Bool("with-caller", false, "Log caller")
	flags.Bool("debug", false, "Print every tool call and result")

	flags.String("provider", config.ProviderAnthropic, "Model provider (anthropic, openai)")
	flags.String("model", "", "Model name (provider default when empty)")
	flags.Int64("max-tokens", 4096, "Maximum tokens per model response")
	flags.Int("max-tool-rounds", 10, "Maximum tool rounds per exchange")
	flags.String("system-prompt", "", "System prompt sent with every request")
	flags.String("anthropic-api-key", "", "Anthropic API key (or ANTHROPIC_API_KEY)")
	flags.String("openai-api-key", "", "OpenAI API key (or OPENAI_API_KEY)")
	flags.String("openai-base-url", "", "OpenAI compatible endpoint")

	flags.String("session-store", config.StoreFile, "Session store (file, sqlite)")
	flags.String("sessions-dir", "saved_sessions", "Directory of the file session store")
	flags.String("sqlite-path", "saved_sessions/sessions.db", "Database of the sqlite session store")

	flags.String("backend-endpoint", "", "GraphQL endpoint of the task backend")
	flags.String("backend-api-key", "", "API key of the task backend")
	flags.String("timezone", "US/Pacific", "Timezone of the datetime tools")

	root.AddCommand(
		newChatCommand(a),
		newSessionsCommand(a),
		newToolsCommand(a),
	)
	return root
}
