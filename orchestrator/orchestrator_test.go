package orchestrator_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

// --- Test Helpers ---

type echoArgs struct {
	Msg string `json:"msg" jsonschema:"required"`
}

// scriptedModel replays canned responses and records every request.
type scriptedModel struct {
	steps    []func(req orchestrator.Request) (*orchestrator.Response, error)
	requests []orchestrator.Request
}

func (m *scriptedModel) Complete(_ context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	m.requests = append(m.requests, req)
	i := len(m.requests) - 1
	if i >= len(m.steps) {
		return nil, fmt.Errorf("unexpected model call %d", i+1)
	}
	return m.steps[i](req)
}

func reply(stop orchestrator.StopReason, blocks ...conversation.Block) func(orchestrator.Request) (*orchestrator.Response, error) {
	return func(orchestrator.Request) (*orchestrator.Response, error) {
		return &orchestrator.Response{
			Turn:       conversation.NewAssistantTurn(blocks...),
			StopReason: stop,
			Usage:      orchestrator.Usage{InputTokens: 10, OutputTokens: 5},
		}, nil
	}
}

func fail(err error) func(orchestrator.Request) (*orchestrator.Response, error) {
	return func(orchestrator.Request) (*orchestrator.Response, error) {
		return nil, err
	}
}

func newToolkit(t *testing.T) *toolkit.Toolkit {
	t.Helper()
	tk := toolkit.New("test")
	require.NoError(t, tk.Register(
		toolkit.NewTool("echo", "Echoes the message.", func(ctx context.Context, args echoArgs) (echoArgs, error) {
			return args, nil
		}),
	))
	return tk
}

func newOrchestrator(t *testing.T, model orchestrator.Model, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	o, err := orchestrator.New(model, newToolkit(t), opts...)
	require.NoError(t, err)
	return o
}

func userText(s string) conversation.Turn {
	return conversation.NewUserTurn(conversation.NewText(s))
}

// --- Scenarios ---

func TestRunEchoRound(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopToolUse,
			conversation.NewText("Let me echo that."),
			conversation.NewToolUse("t1", "echo", map[string]any{"msg": "hi"}),
		),
		reply(orchestrator.StopEndTurn, conversation.NewText("It said hi.")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New()

	res, err := o.Run(context.Background(), conv, userText("echo hi"))
	require.NoError(t, err)

	assert.Equal(t, orchestrator.StopEndTurn, res.StopReason)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, "It said hi.", res.Final.Text())
	assert.Equal(t, orchestrator.Usage{InputTokens: 20, OutputTokens: 10}, res.Usage)

	turns := conv.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, conversation.RoleUser, turns[0].Role)
	assert.Equal(t, conversation.RoleAssistant, turns[1].Role)
	require.Len(t, turns[1].Blocks, 2, "narration is kept next to the tool call")

	followUp := turns[2]
	assert.Equal(t, conversation.RoleUser, followUp.Role)
	require.Len(t, followUp.Blocks, 1)
	result := followUp.Blocks[0].(*conversation.ToolResult)
	assert.Equal(t, "t1", result.ToolUseID)
	assert.Equal(t, map[string]any{"msg": "hi"}, result.Payload)

	require.Len(t, model.requests, 2)
	assert.Len(t, model.requests[1].Turns, 3, "resubmission carries the full conversation")
}

func TestRunAggregatesResultsInOrder(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopToolUse,
			conversation.NewToolUse("t1", "echo", map[string]any{"msg": "a"}),
			conversation.NewToolUse("t2", "launch_rocket", map[string]any{}),
		),
		reply(orchestrator.StopEndTurn, conversation.NewText("done")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New()

	var res *orchestrator.Result
	var err error
	require.NotPanics(t, func() {
		res, err = o.Run(context.Background(), conv, userText("go"))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)

	turns := conv.Turns()
	require.Len(t, turns, 4)
	followUp := turns[2]
	require.Len(t, followUp.Blocks, 2, "one aggregated turn for both calls")

	first := followUp.Blocks[0].(*conversation.ToolResult)
	second := followUp.Blocks[1].(*conversation.ToolResult)
	assert.Equal(t, "t1", first.ToolUseID)
	assert.False(t, first.IsError())
	assert.Equal(t, "t2", second.ToolUseID)
	require.True(t, second.IsError())
	assert.Equal(t, toolkit.CodeUnknownTool, second.Error.Code)
	assert.Contains(t, second.Error.Message, "launch_rocket")
}

func TestRunToolUseWithoutBlocksEndsExchange(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopToolUse, conversation.NewText("I would call a tool.")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New()

	res, err := o.Run(context.Background(), conv, userText("hello"))
	require.NoError(t, err)

	assert.Equal(t, orchestrator.StopEndTurn, res.StopReason)
	assert.Equal(t, 0, res.Rounds)
	assert.Equal(t, 2, conv.Len(), "no follow-up turn is appended")
	assert.Len(t, model.requests, 1, "no resubmission")
}

func TestRunOtherStopReason(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopReason("max_tokens"), conversation.NewText("truncated")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New()

	res, err := o.Run(context.Background(), conv, userText("hello"))
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StopOther, res.StopReason)
	assert.Equal(t, 2, conv.Len())
}

func TestRunAnswersToolCallsLeftByEndedTurn(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopReason("max_tokens"),
			conversation.NewText("let me check"),
			conversation.NewToolUse("t1", "echo", map[string]any{"msg": "x"}),
			conversation.NewToolUse("t2", "echo", map[string]any{"msg": "y"}),
		),
		reply(orchestrator.StopEndTurn, conversation.NewText("ok")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New()

	first, err := o.Run(context.Background(), conv, userText("first"))
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StopOther, first.StopReason)
	assert.Equal(t, 0, first.Rounds, "tool calls of an ended turn are not dispatched")

	second, err := o.Run(context.Background(), conv, userText("second"))
	require.NoError(t, err)
	assert.Equal(t, "ok", second.Final.Text())

	require.Len(t, model.requests, 2)
	sent := model.requests[1].Turns
	require.Len(t, sent, 3)
	prompt := sent[2]
	assert.Equal(t, conversation.RoleUser, prompt.Role)
	require.Len(t, prompt.Blocks, 3)
	for i, id := range []string{"t1", "t2"} {
		result, ok := prompt.Blocks[i].(*conversation.ToolResult)
		require.True(t, ok, "block %d is a tool result", i)
		assert.Equal(t, id, result.ToolUseID)
		require.NotNil(t, result.Error)
		assert.Equal(t, orchestrator.CodeNotExecuted, result.Error.Code)
	}
	text, ok := prompt.Blocks[2].(*conversation.Text)
	require.True(t, ok)
	assert.Equal(t, "second", text.Body)
}

func TestRunDoesNotMutateCallerTurn(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopEndTurn, conversation.NewToolUse("t1", "echo", map[string]any{"msg": "x"})),
		reply(orchestrator.StopEndTurn, conversation.NewText("ok")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New()

	_, err := o.Run(context.Background(), conv, userText("first"))
	require.NoError(t, err)
	user := userText("second")
	_, err = o.Run(context.Background(), conv, user)
	require.NoError(t, err)
	assert.Len(t, user.Blocks, 1)
}

// --- Properties ---

func TestEveryAssistantTurnGetsOneResultTurn(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopToolUse,
			conversation.NewToolUse("a1", "echo", map[string]any{"msg": "1"}),
			conversation.NewToolUse("a2", "echo", map[string]any{}),
			conversation.NewToolUse("a3", "echo", map[string]any{"msg": "3"}),
		),
		reply(orchestrator.StopToolUse,
			conversation.NewToolUse("b1", "echo", map[string]any{"msg": "x"}),
		),
		reply(orchestrator.StopEndTurn, conversation.NewText("finished")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New()

	res, err := o.Run(context.Background(), conv, userText("go"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rounds)

	turns := conv.Turns()
	require.Len(t, turns, 6)
	for i, turn := range turns {
		uses := turn.ToolUses()
		if len(uses) == 0 {
			continue
		}
		next := turns[i+1]
		require.Equal(t, conversation.RoleUser, next.Role)
		require.Len(t, next.Blocks, len(uses))
		for j, use := range uses {
			result, ok := next.Blocks[j].(*conversation.ToolResult)
			require.True(t, ok)
			assert.Equal(t, use.ID, result.ToolUseID)
		}
	}

	invalid := turns[2].Blocks[1].(*conversation.ToolResult)
	assert.Equal(t, toolkit.CodeInvalidArguments, invalid.Error.Code)
}

func TestRunStopsAtMaxToolRounds(t *testing.T) {
	loop := reply(orchestrator.StopToolUse, conversation.NewToolUse("t", "echo", map[string]any{"msg": "again"}))
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){loop, loop, loop, loop}}
	var events []orchestrator.EventType
	o := newOrchestrator(t, model,
		orchestrator.WithMaxToolRounds(3),
		orchestrator.WithSink(orchestrator.SinkFunc(func(_ context.Context, ev orchestrator.Event) error {
			events = append(events, ev.Type)
			return nil
		})),
	)
	assert.Equal(t, 3, o.MaxToolRounds())
	conv := conversation.New()

	res, err := o.Run(context.Background(), conv, userText("loop forever"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, orchestrator.ErrMaxToolRounds))
	assert.Equal(t, 3, res.Rounds)
	assert.Len(t, model.requests, 3)

	last, _ := conv.Last()
	assert.Equal(t, conversation.RoleUser, last.Role, "the last tool round is answered")
	assert.Equal(t, orchestrator.EventMaxRounds, events[len(events)-1])
}

func TestRunTransportError(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopToolUse, conversation.NewToolUse("t1", "echo", map[string]any{"msg": "hi"})),
		fail(errors.New("connection reset")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New()

	_, err := o.Run(context.Background(), conv, userText("hi"))
	require.Error(t, err)
	assert.True(t, orchestrator.IsTransportError(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 3, conv.Len(), "appends made before the failure are kept")
}

func TestRunMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		step func(orchestrator.Request) (*orchestrator.Response, error)
	}{
		{
			name: "nil response",
			step: func(orchestrator.Request) (*orchestrator.Response, error) { return nil, nil },
		},
		{
			name: "user role",
			step: func(orchestrator.Request) (*orchestrator.Response, error) {
				return &orchestrator.Response{Turn: userText("?"), StopReason: orchestrator.StopEndTurn}, nil
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){tc.step}}
			o := newOrchestrator(t, model)
			conv := conversation.New()

			_, err := o.Run(context.Background(), conv, userText("hi"))
			require.Error(t, err)
			assert.True(t, orchestrator.IsTransportError(err))
			assert.True(t, errors.Is(err, orchestrator.ErrMalformedResponse))
			assert.Equal(t, 1, conv.Len())
		})
	}
}

func TestResumeAfterTransportError(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		fail(errors.New("timeout")),
		reply(orchestrator.StopEndTurn, conversation.NewText("back again")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New()

	_, err := o.Run(context.Background(), conv, userText("hi"))
	require.Error(t, err)

	res, err := o.Resume(context.Background(), conv)
	require.NoError(t, err)
	assert.Equal(t, "back again", res.Final.Text())
	assert.Equal(t, 2, conv.Len())
	assert.Len(t, model.requests[1].Turns, 1, "no duplicate user turn")

	_, err = o.Resume(context.Background(), conv)
	assert.True(t, errors.Is(err, orchestrator.ErrNothingToResume))
}

func TestResumePendingToolCalls(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopEndTurn, conversation.NewText("echoed")),
	}}
	o := newOrchestrator(t, model)
	conv := conversation.New(
		userText("echo"),
		conversation.NewAssistantTurn(conversation.NewToolUse("t9", "echo", map[string]any{"msg": "x"})),
	)

	res, err := o.Resume(context.Background(), conv)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rounds)
	require.Equal(t, 4, conv.Len())
	result := conv.Turns()[2].Blocks[0].(*conversation.ToolResult)
	assert.Equal(t, "t9", result.ToolUseID)
}

func TestInertBlocksAreSurfaced(t *testing.T) {
	thinking := &conversation.Unknown{Type: "thinking", Raw: json.RawMessage(`{"type":"thinking","thinking":"hmm"}`)}
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopEndTurn, thinking, conversation.NewText("answer")),
	}}
	var seen []orchestrator.Event
	o := newOrchestrator(t, model, orchestrator.WithSink(orchestrator.SinkFunc(func(_ context.Context, ev orchestrator.Event) error {
		seen = append(seen, ev)
		return nil
	})))
	conv := conversation.New()

	res, err := o.Run(context.Background(), conv, userText("think"))
	require.NoError(t, err)

	require.Len(t, res.Inert, 1)
	assert.Equal(t, thinking, res.Inert[0])
	assert.Equal(t, "answer", res.Final.Text())
	assert.Equal(t, 2, conv.Len())

	var inert int
	for _, ev := range seen {
		if ev.Type == orchestrator.EventInertBlock {
			inert++
			assert.Equal(t, "thinking", ev.BlockType)
		}
	}
	assert.Equal(t, 1, inert)
}

func TestRequestCarriesConfigurationAndSpecs(t *testing.T) {
	model := &scriptedModel{steps: []func(orchestrator.Request) (*orchestrator.Response, error){
		reply(orchestrator.StopEndTurn, conversation.NewText("ok")),
	}}
	o := newOrchestrator(t, model,
		orchestrator.WithModelName("claude-test"),
		orchestrator.WithMaxTokens(256),
		orchestrator.WithSystemPrompt("be brief"),
	)

	_, err := o.Run(context.Background(), conversation.New(), userText("hi"))
	require.NoError(t, err)

	req := model.requests[0]
	assert.Equal(t, "claude-test", req.Model)
	assert.Equal(t, int64(256), req.MaxTokens)
	assert.Equal(t, "be brief", req.System)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "echo", req.Tools[0].Name)
}

func TestRunRejectsNonUserTurn(t *testing.T) {
	o := newOrchestrator(t, &scriptedModel{})
	_, err := o.Run(context.Background(), conversation.New(), conversation.NewAssistantTurn(conversation.NewText("x")))
	require.Error(t, err)
}

func TestNewValidatesCollaborators(t *testing.T) {
	_, err := orchestrator.New(nil, newToolkit(t))
	require.Error(t, err)
	_, err = orchestrator.New(&scriptedModel{}, nil)
	require.Error(t, err)
}
