// Package toolkit provides the tool registry used by the conversation orchestrator.
// It enables registering typed tools, advertising their schemas to the model and
// executing the calls the model requests, while handling validation and error
// reporting automatically.
package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
)

// --- Toolkit Struct and Methods ---

// Toolkit is the registry of Tools available to the model.
// Each Toolkit instance maintains its Tools keyed by unique name and remembers the
// registration order, which is the order tools are advertised in.
type Toolkit struct {
	mu      sync.RWMutex
	name    string
	entries map[string]*entry
	order   []string
}

// entry pairs a Tool with its compiled schema validators.
type entry struct {
	tool   Tool
	input  *gojsonschema.Schema
	output *gojsonschema.Schema
}

// New creates an empty Toolkit with the provided name.
//
// Example:
//
//	tk := toolkit.New("taskpilot")
//	err := tk.Register(listTasksTool, createTaskTool)
func New(name string) *Toolkit {
	return &Toolkit{
		name:    name,
		entries: make(map[string]*entry),
	}
}

// GetToolkitName returns the configured name of the toolkit instance.
func (t *Toolkit) GetToolkitName() string {
	return t.name
}

// Register adds tools to the registry.
//
// Parameters:
//   - tools: The Tool implementations to register
//
// Returns:
//   - An error wrapping ErrDuplicateTool if a name is already present, or a schema
//     compilation error. Tools registered before the failing one stay registered.
func (t *Toolkit) Register(tools ...Tool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, tool := range tools {
		if tool == nil {
			log.Warn().Str("toolkit", t.name).Msg("nil tool provided to Register, skipping")
			continue
		}
		name := tool.GetName()
		if name == "" {
			return errors.New("tool name cannot be empty")
		}
		if _, exists := t.entries[name]; exists {
			return NewError(CodeDuplicateTool, fmt.Sprintf("tool %q is already registered", name))
		}

		input, err := compileSchema(tool.GetInputSchema())
		if err != nil {
			return errors.Wrapf(err, "compile input schema of %q", name)
		}
		output, err := compileSchema(tool.GetOutputSchema())
		if err != nil {
			return errors.Wrapf(err, "compile output schema of %q", name)
		}

		t.entries[name] = &entry{tool: tool, input: input, output: output}
		t.order = append(t.order, name)
		log.Debug().Str("toolkit", t.name).Str("tool", name).Msg("registered tool")
	}
	return nil
}

// MustRegister is like Register but panics on error. It is meant for static
// registration at program start.
func (t *Toolkit) MustRegister(tools ...Tool) *Toolkit {
	if err := t.Register(tools...); err != nil {
		panic(err)
	}
	return t
}

// Has reports whether a tool with the given name is registered.
func (t *Toolkit) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[name]
	return ok
}

// Len returns the number of registered tools.
func (t *Toolkit) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Specs returns the tool specifications sent to the model, in registration order.
// Input schemas have their documentation metadata stripped.
func (t *Toolkit) Specs() []Spec {
	t.mu.RLock()
	defer t.mu.RUnlock()

	specs := make([]Spec, 0, len(t.order))
	for _, name := range t.order {
		tool := t.entries[name].tool
		specs = append(specs, Spec{
			Name:         name,
			Description:  tool.GetDescription(),
			InputSchema:  tool.GetInputSchema(),
			OutputSchema: tool.GetOutputSchema(),
		})
	}
	return specs
}

// --- Processing Methods ---

// Dispatch executes one tool call and always returns a result block for it.
//
// Parameters:
//   - ctx: The execution context, propagated to the handler
//   - id: The id of the tool-use block being answered
//   - name: The requested tool name
//   - input: The untyped arguments produced by the model
//
// Returns:
//   - A ToolResult answering id. Unknown tools, invalid arguments, handler failures
//     and results that do not match the output schema are all reported as an error
//     descriptor inside the result; Dispatch never fails.
func (t *Toolkit) Dispatch(ctx context.Context, id, name string, input map[string]interface{}) *conversation.ToolResult {
	payload, err := t.Execute(ctx, name, input)
	if err != nil {
		tkErr := asToolKitError(err)
		log.Warn().
			Str("tool", name).
			Str("tool_use_id", id).
			Str("code", tkErr.Code).
			Str("error", tkErr.Message).
			Msg("tool call failed")
		return conversation.NewToolError(id, tkErr.Code, tkErr.Message)
	}
	return conversation.NewToolResult(id, payload)
}

// Execute validates the arguments, runs the handler and validates its result.
// Every returned error is a ToolKitError.
func (t *Toolkit) Execute(ctx context.Context, name string, input map[string]interface{}) (map[string]interface{}, error) {
	t.mu.RLock()
	e, ok := t.entries[name]
	t.mu.RUnlock()
	if !ok {
		return nil, NewError(CodeUnknownTool, fmt.Sprintf("tool %q is not registered", name))
	}

	args := withoutNulls(input)
	if err := validate(e.input, args); err != nil {
		return nil, NewError(CodeInvalidArguments, fmt.Sprintf("invalid input for %q: %s", name, err))
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, NewError(CodeInvalidArguments, fmt.Sprintf("cannot encode input for %q: %v", name, err))
	}

	log.Debug().Str("tool", name).RawJSON("args", raw).Msg("invoking tool handler")
	result, err := invoke(ctx, e.tool, raw)
	if err != nil {
		var tkErr ToolKitError
		if errors.As(err, &tkErr) {
			return nil, tkErr
		}
		return nil, NewError(CodeHandlerExecution, fmt.Sprintf("%s failed: %v", name, err))
	}

	payload, err := toPayload(result)
	if err != nil {
		return nil, NewError(CodeInvalidOutput, fmt.Sprintf("%s returned an unusable result: %v", name, err))
	}
	if err := validate(e.output, payload); err != nil {
		return nil, NewError(CodeInvalidOutput, fmt.Sprintf("%s returned a result that does not match its output schema: %s", name, err))
	}
	return payload, nil
}

// invoke calls the handler, converting a panic into a handler error.
func invoke(ctx context.Context, tool Tool, raw json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tool", tool.GetName()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("tool handler panicked")
			result = nil
			err = NewError(CodeHandlerExecution, fmt.Sprintf("%s panicked: %v", tool.GetName(), r))
		}
	}()
	return tool.Handle(ctx, raw)
}

// --- Validation Helpers ---

func compileSchema(s Schema) (*gojsonschema.Schema, error) {
	if s == nil {
		s = Schema{"type": "object"}
	}
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(map[string]interface{}(s)))
}

// validate checks a decoded JSON object against a compiled schema and folds all
// violations into one error.
func validate(schema *gojsonschema.Schema, doc map[string]interface{}) error {
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		msgs = append(msgs, desc.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}

// withoutNulls drops top-level null values, which stand for omitted optional fields.
func withoutNulls(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// toPayload serializes a handler result into a JSON object.
func toPayload(result interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Errorf("result is not a JSON object: %s", string(data))
	}
	if payload == nil {
		return nil, errors.New("result is null")
	}
	return payload, nil
}

func asToolKitError(err error) ToolKitError {
	var tkErr ToolKitError
	if errors.As(err, &tkErr) {
		return tkErr
	}
	return ToolKitError{Code: CodeHandlerExecution, Message: err.Error()}
}
