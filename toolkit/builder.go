package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc is a typed tool handler. In is decoded from the validated call
// arguments; Out is serialized into the tool result.
type HandlerFunc[In any, Out any] func(ctx context.Context, args In) (Out, error)

// typedTool adapts a HandlerFunc to the Tool interface.
type typedTool[In any, Out any] struct {
	name         string
	description  string
	inputSchema  Schema
	outputSchema Schema
	handler      HandlerFunc[In, Out]
}

// NewTool builds a Tool whose input and output schemas are derived from the
// handler's argument and result types.
//
// Example:
//
//	echo := toolkit.NewTool("echo", "Echoes the message back.",
//	    func(ctx context.Context, args EchoArgs) (EchoArgs, error) { return args, nil })
func NewTool[In any, Out any](name, description string, handler HandlerFunc[In, Out]) Tool {
	return &typedTool[In, Out]{
		name:         name,
		description:  description,
		inputSchema:  GenerateSchema[In](),
		outputSchema: GenerateSchema[Out](),
		handler:      handler,
	}
}

func (t *typedTool[In, Out]) GetName() string         { return t.name }
func (t *typedTool[In, Out]) GetDescription() string  { return t.description }
func (t *typedTool[In, Out]) GetInputSchema() Schema  { return t.inputSchema }
func (t *typedTool[In, Out]) GetOutputSchema() Schema { return t.outputSchema }

// Handle decodes the arguments into In and invokes the handler.
func (t *typedTool[In, Out]) Handle(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if t.handler == nil {
		return nil, NewError(CodeHandlerExecution, fmt.Sprintf("tool %q has no handler", t.name))
	}
	var in In
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, NewError(CodeInvalidArguments, fmt.Sprintf("cannot decode arguments for %q: %v", t.name, err))
		}
	}
	return t.handler(ctx, in)
}
