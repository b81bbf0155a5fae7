package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
	"github.com/hamzaessahbaoui/taskpilot/pkg/model/anthropic"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const toolUseResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-7-sonnet-20250219",
  "content": [
    {"type": "text", "text": "Checking your tasks."},
    {"type": "tool_use", "id": "toolu_01", "name": "list_tasks", "input": {"limit": 3}}
  ],
  "stop_reason": "tool_use",
  "stop_sequence": null,
  "usage": {"input_tokens": 42, "output_tokens": 7}
}`

const thinkingResponse = `{
  "id": "msg_02",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-7-sonnet-20250219",
  "content": [
    {"type": "thinking", "thinking": "The user wants a summary.", "signature": "sig"},
    {"type": "text", "text": "Here it is."}
  ],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 1, "output_tokens": 2}
}`

func decodeFixture(t *testing.T, raw string) *sdk.Message {
	t.Helper()
	var msg sdk.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return &msg
}

func TestDecodeToolUse(t *testing.T) {
	resp, err := anthropic.Decode(decodeFixture(t, toolUseResponse))
	require.NoError(t, err)

	assert.Equal(t, orchestrator.StopToolUse, resp.StopReason)
	assert.Equal(t, orchestrator.Usage{InputTokens: 42, OutputTokens: 7}, resp.Usage)
	assert.Equal(t, conversation.RoleAssistant, resp.Turn.Role)
	require.Len(t, resp.Turn.Blocks, 2)
	assert.Equal(t, "Checking your tasks.", resp.Turn.Text())

	uses := resp.Turn.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "toolu_01", uses[0].ID)
	assert.Equal(t, "list_tasks", uses[0].Name)
	assert.Equal(t, map[string]any{"limit": 3.0}, uses[0].Input)
}

func TestDecodeKeepsUnknownBlocks(t *testing.T) {
	resp, err := anthropic.Decode(decodeFixture(t, thinkingResponse))
	require.NoError(t, err)

	assert.Equal(t, orchestrator.StopEndTurn, resp.StopReason)
	require.Len(t, resp.Turn.Blocks, 2)
	unknown, ok := resp.Turn.Blocks[0].(*conversation.Unknown)
	require.True(t, ok)
	assert.Equal(t, "thinking", unknown.Type)
	assert.Contains(t, string(unknown.Raw), "The user wants a summary.")
}

func TestStopReason(t *testing.T) {
	assert.Equal(t, orchestrator.StopToolUse, anthropic.StopReason(sdk.MessageStopReasonToolUse))
	assert.Equal(t, orchestrator.StopEndTurn, anthropic.StopReason(sdk.MessageStopReasonEndTurn))
	assert.Equal(t, orchestrator.StopOther, anthropic.StopReason(sdk.MessageStopReasonMaxTokens))
}

func TestEncodeTurnsMergesSameRole(t *testing.T) {
	turns := []conversation.Turn{
		conversation.NewUserTurn(conversation.NewText("first")),
		conversation.NewAssistantTurn(conversation.NewToolUse("t1", "echo", map[string]any{"msg": "x"})),
		conversation.NewUserTurn(conversation.NewToolResult("t1", map[string]any{"msg": "x"})),
		conversation.NewUserTurn(conversation.NewText("follow-up")),
		conversation.NewAssistantTurn(&conversation.Unknown{Type: "thinking"}),
	}

	messages, err := anthropic.EncodeTurns(turns)
	require.NoError(t, err)
	require.Len(t, messages, 3, "adjacent user turns merge and the inert-only turn is dropped")
	assert.Equal(t, sdk.MessageParamRoleUser, messages[2].Role.Value)
	assert.Len(t, messages[2].Content.Value, 2)
}

func TestEncodeTurnsSkipsInertTurnBetweenSameRole(t *testing.T) {
	turns := []conversation.Turn{
		conversation.NewUserTurn(conversation.NewText("first")),
		conversation.NewAssistantTurn(&conversation.Unknown{Type: "thinking"}),
		conversation.NewUserTurn(conversation.NewText("second")),
	}

	messages, err := anthropic.EncodeTurns(turns)
	require.NoError(t, err)
	require.Len(t, messages, 1, "roles still alternate")
	assert.Equal(t, sdk.MessageParamRoleUser, messages[0].Role.Value)
	assert.Len(t, messages[0].Content.Value, 2)
}

func TestToolResultContent(t *testing.T) {
	ok, err := anthropic.ToolResultContent(conversation.NewToolResult("t1", map[string]any{"id": "a"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a"}`, ok)

	failed, err := anthropic.ToolResultContent(conversation.NewToolError("t2", toolkit.CodeUnknownTool, "no such tool"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"code":"unknown_tool","message":"no such tool"}}`, failed)
}

func TestCompleteRoundTrip(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolUseResponse)
	}))
	defer srv.Close()

	m, err := anthropic.New("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	tk := toolkit.New("test")
	type listArgs struct {
		Limit int `json:"limit,omitempty"`
	}
	require.NoError(t, tk.Register(toolkit.NewTool("list_tasks", "Lists tasks.",
		func(ctx context.Context, args listArgs) (listArgs, error) { return args, nil })))

	resp, err := m.Complete(context.Background(), orchestrator.Request{
		Model:     "claude-test",
		MaxTokens: 128,
		System:    "be brief",
		Tools:     tk.Specs(),
		Turns: []conversation.Turn{
			conversation.NewUserTurn(
				conversation.NewText("read this"),
				&conversation.Document{Name: "notes.txt", Format: conversation.FormatTXT, Bytes: []byte("hello")},
			),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StopToolUse, resp.StopReason)

	assert.Equal(t, "claude-test", body["model"])
	assert.Equal(t, 128.0, body["max_tokens"])
	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "list_tasks", tools[0].(map[string]any)["name"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	doc := content[1].(map[string]any)
	assert.Equal(t, "document", doc["type"])
	assert.Equal(t, "hello", doc["source"].(map[string]any)["data"])
}

func TestCompleteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"overloaded"}}`)
	}))
	defer srv.Close()

	m, err := anthropic.New("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = m.Complete(context.Background(), orchestrator.Request{
		MaxTokens: 16,
		Turns:     []conversation.Turn{conversation.NewUserTurn(conversation.NewText("hi"))},
	})
	require.Error(t, err)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := anthropic.New("")
	require.Error(t, err)
}
