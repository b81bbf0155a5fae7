// Package toolkit provides the tool registry used by the conversation orchestrator.
// It maps tool names to typed handlers, derives the JSON schemas advertised to the
// model from Go types, validates every call against those schemas, and converts
// any failure into an error descriptor instead of aborting the conversation.
//
// Core concepts:
//   - Tool: A named operation with an input schema, an output schema and a handler
//   - Toolkit: The registry that owns a set of uniquely named Tools and dispatches calls to them
//
// This file defines the interface every Tool implementation must satisfy.
package toolkit

import (
	"context"
	"encoding/json"
)

// Tool represents an individual operation the model can request.
// Implementations are usually built with NewTool, which derives both schemas from
// the handler's argument and result types.
type Tool interface {
	// GetName returns the unique name of the tool. The model refers to the tool
	// by this name, so it must be unique within a Toolkit.
	GetName() string

	// GetDescription provides a human-readable description of what the tool does.
	// It is sent to the model together with the input schema.
	GetDescription() string

	// GetInputSchema returns the JSON schema the call arguments are validated against.
	GetInputSchema() Schema

	// GetOutputSchema returns the JSON schema the handler's result must satisfy.
	GetOutputSchema() Schema

	// Handle executes the tool with arguments that already passed input validation.
	// The returned value is serialized to a JSON object and validated against the
	// output schema by the Toolkit.
	Handle(ctx context.Context, args json.RawMessage) (interface{}, error)
}
