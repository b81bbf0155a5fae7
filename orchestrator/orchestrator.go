// Package orchestrator drives a conversation with a language model that may
// request tool calls.
//
// One exchange is a bounded state machine:
//
//	AwaitingModel --tool_use with tool-use blocks--> ProcessingToolCalls
//	ProcessingToolCalls --one aggregated result turn appended--> AwaitingModel
//	AwaitingModel --end_turn, other, or tool_use without tool-use blocks--> Done
//
// Model calls and tool dispatches are strictly sequential. Tool results are
// appended in the order of the tool-use blocks that requested them, all in a
// single user turn.
package orchestrator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const (
	DefaultMaxToolRounds       = 10
	DefaultMaxTokens     int64 = 4096
)

// CodeNotExecuted marks a tool call the model requested in a turn it then ended
// without a tool_use stop. The call is answered on the next Run, never executed.
const CodeNotExecuted = "not_executed"

type State int

const (
	AwaitingModel State = iota
	ProcessingToolCalls
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingModel:
		return "awaiting_model"
	case ProcessingToolCalls:
		return "processing_tool_calls"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Orchestrator runs exchanges against a Model using a Dispatcher for tool calls.
// It holds no conversation state of its own.
type Orchestrator struct {
	model      Model
	dispatcher Dispatcher
	sink       Sink

	modelName     string
	maxTokens     int64
	system        string
	maxToolRounds int
}

type Option func(*Orchestrator)

func WithModelName(name string) Option {
	return func(o *Orchestrator) { o.modelName = name }
}

func WithMaxTokens(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) { o.system = prompt }
}

// WithMaxToolRounds caps the number of tool-result turns one exchange may append.
// Values below one keep the default.
func WithMaxToolRounds(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxToolRounds = n
		}
	}
}

func WithSink(s Sink) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sink = s
		}
	}
}

func New(model Model, dispatcher Dispatcher, opts ...Option) (*Orchestrator, error) {
	if model == nil {
		return nil, errors.New("orchestrator: model is nil")
	}
	if dispatcher == nil {
		return nil, errors.New("orchestrator: dispatcher is nil")
	}
	o := &Orchestrator{
		model:         model,
		dispatcher:    dispatcher,
		sink:          NopSink,
		maxTokens:     DefaultMaxTokens,
		maxToolRounds: DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

func (o *Orchestrator) MaxToolRounds() int {
	return o.maxToolRounds
}

// Result summarizes one completed (or interrupted) exchange.
type Result struct {
	// Final is the assistant turn that ended the exchange.
	Final      conversation.Turn
	StopReason StopReason
	// Rounds counts the tool-result turns appended during the exchange.
	Rounds int
	// Inert holds blocks of unknown kinds found in assistant turns. They are kept
	// in the conversation but never acted upon.
	Inert []conversation.Block
	Usage Usage
}

// Run appends the user turn to conv and drives the exchange until the model stops
// requesting tools.
//
// Returns:
//   - The exchange Result and nil on success
//   - A *TransportError if the model endpoint fails or replies with a malformed
//     response; conv keeps every append made up to that point
//   - ErrMaxToolRounds if the model requests tools for too many rounds
func (o *Orchestrator) Run(ctx context.Context, conv *conversation.Conversation, user conversation.Turn) (*Result, error) {
	if conv == nil {
		return nil, errors.New("orchestrator: conversation is nil")
	}
	if user.Role != conversation.RoleUser {
		return nil, errors.Errorf("orchestrator: expected a user turn, got %q", user.Role)
	}
	conv.Append(answerAbandoned(conv, user))
	return o.drive(ctx, conv, AwaitingModel)
}

// answerAbandoned prefixes user with a not_executed result for every tool use of
// a trailing assistant turn, so no tool use is sent without its result.
func answerAbandoned(conv *conversation.Conversation, user conversation.Turn) conversation.Turn {
	last, ok := conv.Last()
	if !ok || last.Role != conversation.RoleAssistant {
		return user
	}
	uses := last.ToolUses()
	if len(uses) == 0 {
		return user
	}
	blocks := make([]conversation.Block, 0, len(uses)+len(user.Blocks))
	for _, use := range uses {
		log.Warn().Str("tool", use.Name).Str("tool_use_id", use.ID).Msg("answering tool call the model left unexecuted")
		blocks = append(blocks, conversation.NewToolError(use.ID, CodeNotExecuted, "tool call was not executed because the model ended its turn"))
	}
	blocks = append(blocks, user.Blocks...)
	return conversation.NewUserTurn(blocks...)
}

// Resume continues an exchange that was interrupted by a transport failure or the
// round cap, without adding a new user turn.
func (o *Orchestrator) Resume(ctx context.Context, conv *conversation.Conversation) (*Result, error) {
	last, ok := conv.Last()
	if !ok {
		return nil, ErrNothingToResume
	}
	switch {
	case last.Role == conversation.RoleUser:
		return o.drive(ctx, conv, AwaitingModel)
	case len(last.ToolUses()) > 0:
		return o.drive(ctx, conv, ProcessingToolCalls)
	default:
		return nil, ErrNothingToResume
	}
}

func (o *Orchestrator) drive(ctx context.Context, conv *conversation.Conversation, state State) (*Result, error) {
	res := &Result{}
	modelCalls := 0

	for {
		switch state {
		case AwaitingModel:
			modelCalls++
			resp, err := o.complete(ctx, conv, modelCalls)
			if err != nil {
				return res, err
			}
			res.Usage.Add(resp.Usage)
			res.Inert = append(res.Inert, o.inspect(ctx, resp.Turn, modelCalls)...)

			conv.Append(resp.Turn)

			if resp.StopReason == StopToolUse && len(resp.Turn.ToolUses()) > 0 {
				state = ProcessingToolCalls
				continue
			}
			res.Final = resp.Turn
			res.StopReason = resp.StopReason
			if res.StopReason == StopToolUse {
				log.Warn().Int("round", modelCalls).Msg("model signalled tool_use without tool-use blocks, treating as end_turn")
				res.StopReason = StopEndTurn
			}
			state = Done

		case ProcessingToolCalls:
			last, _ := conv.Last()
			conv.Append(o.dispatchAll(ctx, last, res.Rounds+1))
			res.Rounds++

			if res.Rounds >= o.maxToolRounds {
				log.Warn().Int("max_tool_rounds", o.maxToolRounds).Msg("maximum tool rounds reached")
				o.publish(ctx, Event{Type: EventMaxRounds, Round: res.Rounds})
				return res, ErrMaxToolRounds
			}
			state = AwaitingModel

		case Done:
			log.Debug().
				Str("stop_reason", string(res.StopReason)).
				Int("rounds", res.Rounds).
				Int64("input_tokens", res.Usage.InputTokens).
				Int64("output_tokens", res.Usage.OutputTokens).
				Msg("exchange complete")
			return res, nil
		}
	}
}

// complete performs one model round-trip and checks the response shape.
func (o *Orchestrator) complete(ctx context.Context, conv *conversation.Conversation, call int) (*Response, error) {
	req := Request{
		Model:     o.modelName,
		MaxTokens: o.maxTokens,
		System:    o.system,
		Tools:     o.dispatcher.Specs(),
		Turns:     conv.Turns(),
	}
	log.Debug().Int("call", call).Int("turns", len(req.Turns)).Int("tools", len(req.Tools)).Msg("calling model")
	o.publish(ctx, Event{Type: EventModelRequest, Round: call, Turns: len(req.Turns)})

	resp, err := o.model.Complete(ctx, req)
	if err != nil {
		return nil, &TransportError{Op: "complete", Err: err}
	}
	if resp == nil {
		return nil, &TransportError{Op: "complete", Err: errors.Wrap(ErrMalformedResponse, "empty response")}
	}
	if resp.Turn.Role != conversation.RoleAssistant {
		return nil, &TransportError{Op: "complete", Err: errors.Wrapf(ErrMalformedResponse, "unexpected role %q", resp.Turn.Role)}
	}
	switch resp.StopReason {
	case StopEndTurn, StopToolUse, StopOther:
	default:
		resp.StopReason = StopOther
	}

	usage := resp.Usage
	o.publish(ctx, Event{Type: EventModelResponse, Round: call, StopReason: resp.StopReason, Usage: &usage})
	return resp, nil
}

// dispatchAll answers every tool-use of the assistant turn, in order, within one
// user turn.
func (o *Orchestrator) dispatchAll(ctx context.Context, assistant conversation.Turn, round int) conversation.Turn {
	uses := assistant.ToolUses()
	blocks := make([]conversation.Block, 0, len(uses))
	for _, use := range uses {
		log.Debug().Str("tool", use.Name).Str("tool_use_id", use.ID).Int("round", round).Msg("dispatching tool call")
		o.publish(ctx, Event{Type: EventToolCall, Round: round, ToolName: use.Name, ToolUseID: use.ID, Input: use.Input})

		result := o.dispatcher.Dispatch(ctx, use.ID, use.Name, use.Input)
		if result == nil {
			result = conversation.NewToolError(use.ID, toolkit.CodeHandlerExecution, "tool produced no result")
		}
		o.publish(ctx, Event{
			Type:      EventToolResult,
			Round:     round,
			ToolName:  use.Name,
			ToolUseID: use.ID,
			Payload:   result.Payload,
			Error:     result.Error,
		})
		blocks = append(blocks, result)
	}
	return conversation.NewUserTurn(blocks...)
}

// inspect reports blocks the orchestrator does not act on.
func (o *Orchestrator) inspect(ctx context.Context, turn conversation.Turn, call int) []conversation.Block {
	var inert []conversation.Block
	for _, b := range turn.Blocks {
		switch b.(type) {
		case *conversation.Text, *conversation.ToolUse:
		default:
			log.Info().Str("block_type", string(b.Kind())).Msg("inert block in model response")
			o.publish(ctx, Event{Type: EventInertBlock, Round: call, BlockType: string(b.Kind())})
			inert = append(inert, b)
		}
	}
	return inert
}

func (o *Orchestrator) publish(ctx context.Context, ev Event) {
	if err := o.sink.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("event", string(ev.Type)).Msg("failed to publish orchestrator event")
	}
}
