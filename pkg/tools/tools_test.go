package tools_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaessahbaoui/taskpilot/pkg/tools"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

type cannedRunner struct {
	response string
}

func (c cannedRunner) Run(_ context.Context, _ string, _ map[string]interface{}, out interface{}) error {
	return json.Unmarshal([]byte(c.response), out)
}

func TestNewToolkitWithoutBackend(t *testing.T) {
	tk, err := tools.NewToolkit(tools.Config{})
	require.NoError(t, err)

	assert.Equal(t, 3, tk.Len())
	assert.True(t, tk.Has("get_current_datetime"))
	assert.False(t, tk.Has("create_task"))
}

func TestNewToolkitWithBackend(t *testing.T) {
	tk, err := tools.NewToolkit(tools.Config{Backend: cannedRunner{}, Timezone: "Europe/Paris"})
	require.NoError(t, err)

	assert.Equal(t, 10, tk.Len())
	var names []string
	for _, spec := range tk.Specs() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{
		"get_current_datetime", "plaintext_datetime_to_millis", "plaintext_datetime_to_seconds",
		"list_okrs", "create_okr",
		"create_task", "list_tasks", "delete_task", "update_task",
		"create_todo",
	}, names)
}

func TestDispatchValidatesBeforeBackend(t *testing.T) {
	tk, err := tools.NewToolkit(tools.Config{Backend: cannedRunner{response: "{broken"}})
	require.NoError(t, err)

	res := tk.Dispatch(context.Background(), "t1", "create_todo", map[string]interface{}{
		"content": strings.Repeat("x", 1001),
	})
	require.True(t, res.IsError())
	assert.Equal(t, toolkit.CodeInvalidArguments, res.Error.Code)

	res = tk.Dispatch(context.Background(), "t2", "archive_everything", nil)
	require.True(t, res.IsError())
	assert.Equal(t, toolkit.CodeUnknownTool, res.Error.Code)
}

func TestNewToolkitBadTimezone(t *testing.T) {
	_, err := tools.NewToolkit(tools.Config{Timezone: "Nowhere/Land"})
	require.Error(t, err)
}
