package orchestrator

import (
	"context"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
)

type EventType string

const (
	EventModelRequest  EventType = "model_request"
	EventModelResponse EventType = "model_response"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventInertBlock    EventType = "inert_block"
	EventMaxRounds     EventType = "max_rounds"
)

// Event describes one step of an exchange. Only the fields relevant to Type are set.
type Event struct {
	Type       EventType                     `json:"type"`
	Round      int                           `json:"round"`
	Turns      int                           `json:"turns,omitempty"`
	StopReason StopReason                    `json:"stop_reason,omitempty"`
	Usage      *Usage                        `json:"usage,omitempty"`
	ToolName   string                        `json:"tool_name,omitempty"`
	ToolUseID  string                        `json:"tool_use_id,omitempty"`
	Input      map[string]interface{}        `json:"input,omitempty"`
	Payload    map[string]interface{}        `json:"payload,omitempty"`
	Error      *conversation.ErrorDescriptor `json:"error,omitempty"`
	BlockType  string                        `json:"block_type,omitempty"`
}

// Sink receives orchestrator events. Publishing must not block the exchange for
// long; failures are logged and otherwise ignored.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) error { return nil }

// NopSink discards every event.
var NopSink Sink = nopSink{}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
