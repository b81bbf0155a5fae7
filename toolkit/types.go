// Package toolkit provides the tool registry used by the conversation orchestrator.
// This file defines the error descriptors, tool specifications and schema generation
// used throughout the registry.
package toolkit

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// --- Error Handling ---

// Machine-readable error codes carried by ToolKitError.
const (
	CodeUnknownTool      = "unknown_tool"
	CodeInvalidArguments = "invalid_arguments"
	CodeInvalidOutput    = "invalid_output"
	CodeHandlerExecution = "handler_execution_error"
	CodeDuplicateTool    = "duplicate_tool"
)

// Sentinel errors, matched with errors.Is against any ToolKitError of the same code.
var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
	ErrInvalidOutput    = errors.New("tool output does not match its schema")
	ErrHandlerExecution = errors.New("tool handler failed")
	ErrDuplicateTool    = errors.New("duplicate tool name")
)

var sentinelByCode = map[string]error{
	CodeUnknownTool:      ErrUnknownTool,
	CodeInvalidArguments: ErrInvalidArguments,
	CodeInvalidOutput:    ErrInvalidOutput,
	CodeHandlerExecution: ErrHandlerExecution,
	CodeDuplicateTool:    ErrDuplicateTool,
}

// ToolKitError provides a standardized structure for errors occurring within the toolkit.
// It encapsulates both a machine-readable error code for programmatic handling and a
// human-readable message that is reported back to the model.
type ToolKitError struct {
	Code    string `json:"Code"`    // A machine-readable error code (e.g., "invalid_arguments", "handler_execution_error")
	Message string `json:"Message"` // A human-readable description of the error
}

// Error implements the standard error interface for ToolKitError.
func (e ToolKitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap maps well-known codes to their sentinel so callers can use errors.Is.
func (e ToolKitError) Unwrap() error {
	return sentinelByCode[e.Code]
}

// NewError creates a new ToolKitError instance with the specified code and message.
// Handlers may return it to choose the code reported to the model; any other error
// returned by a handler is reported as "handler_execution_error".
func NewError(code, message string) error {
	return ToolKitError{
		Code:    code,
		Message: message,
	}
}

// --- Tool Specification ---

// Schema is a JSON schema document in its decoded form, ready to be marshaled into a
// model request or compiled into a validator.
type Schema map[string]interface{}

// Spec is what the model endpoint is told about a registered tool.
type Spec struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	InputSchema  Schema `json:"input_schema"`
	OutputSchema Schema `json:"-"`
}

// RequiredFields lists the names marked required at the root of the schema.
func (s Schema) RequiredFields() []string {
	raw, ok := s["required"].([]interface{})
	if !ok {
		if names, ok := s["required"].([]string); ok {
			return names
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if name, ok := r.(string); ok {
			out = append(out, name)
		}
	}
	return out
}

// --- Schema Generation Helper ---

// documentationKeys are stripped from the root of generated schemas before they are
// sent to the model.
var documentationKeys = []string{"$schema", "$id", "title", "description"}

// GenerateSchema creates a JSON schema for the provided generic type T.
// It uses reflection through github.com/invopop/jsonschema and respects jsonschema
// tags on struct fields, including:
//   - required: Whether the field is required
//   - description: Field descriptions for documentation
//   - minLength / maxLength / minimum / maximum: Value constraints
//
// Example usage:
//
//	type MyArgs struct {
//	    Name string `json:"name" jsonschema:"required,minLength=1,description=The user's name"`
//	    Age  *int   `json:"age,omitempty" jsonschema:"minimum=0,description=The user's age in years"`
//	}
//	schema := GenerateSchema[MyArgs]()
func GenerateSchema[T any]() Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  true, // Allow additional properties in the generated schema
		DoNotReference:             true, // Keep schema self-contained, no $refs
		RequiredFromJSONSchemaTags: true, // Respect `jsonschema:"required"` tags
	}
	var v T
	return schemaFromReflection(reflector.Reflect(&v))
}

func schemaFromReflection(s *jsonschema.Schema) Schema {
	out := Schema{}
	if s != nil {
		data, err := json.Marshal(s)
		if err == nil {
			_ = json.Unmarshal(data, &out)
		}
	}
	for _, key := range documentationKeys {
		delete(out, key)
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]interface{}{}
	}
	return out
}
