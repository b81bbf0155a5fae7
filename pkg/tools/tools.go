// Package tools assembles every taskpilot tool into one registry.
package tools

import (
	"github.com/rs/zerolog/log"

	"github.com/hamzaessahbaoui/taskpilot/pkg/backend"
	"github.com/hamzaessahbaoui/taskpilot/pkg/tools/datetime"
	"github.com/hamzaessahbaoui/taskpilot/pkg/tools/okrs"
	"github.com/hamzaessahbaoui/taskpilot/pkg/tools/tasks"
	"github.com/hamzaessahbaoui/taskpilot/pkg/tools/todos"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const ToolkitName = "taskpilot"

type Config struct {
	// Backend serves the task, todo and OKR tools. When nil only the datetime
	// tools are registered.
	Backend  backend.Runner
	Timezone string
	Datetime []datetime.Option
}

// NewToolkit registers the datetime tools followed by the backend tools.
func NewToolkit(cfg Config) (*toolkit.Toolkit, error) {
	dt, err := datetime.NewService(cfg.Timezone, cfg.Datetime...)
	if err != nil {
		return nil, err
	}

	tk := toolkit.New(ToolkitName)
	if err := tk.Register(dt.Tools()...); err != nil {
		return nil, err
	}

	if cfg.Backend == nil {
		log.Warn().Msg("no backend configured, task, todo and OKR tools are disabled")
		return tk, nil
	}
	for _, group := range [][]toolkit.Tool{
		okrs.NewService(cfg.Backend).Tools(),
		tasks.NewService(cfg.Backend).Tools(),
		todos.NewService(cfg.Backend).Tools(),
	} {
		if err := tk.Register(group...); err != nil {
			return nil, err
		}
	}
	return tk, nil
}
