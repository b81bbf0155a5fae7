package orchestrator

import (
	"context"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

// StopReason is the model endpoint's signal for why it stopped generating.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
	StopOther   StopReason = "other"
)

// Request is everything sent to the model endpoint for one round-trip.
type Request struct {
	Model     string
	MaxTokens int64
	System    string
	Tools     []toolkit.Spec
	Turns     []conversation.Turn
}

// Response is one assistant turn plus the stop indicator.
type Response struct {
	Turn       conversation.Turn
	StopReason StopReason
	Usage      Usage
}

// Usage is the token accounting reported by the endpoint.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
}

// Model is a synchronous request/response model endpoint. Retries and backoff
// belong to the implementation, not to the orchestrator.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Dispatcher executes tool calls and advertises tool specifications.
// *toolkit.Toolkit implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, id, name string, input map[string]interface{}) *conversation.ToolResult
	Specs() []toolkit.Spec
}
