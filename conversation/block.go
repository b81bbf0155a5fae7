// Package conversation defines the durable conversation model exchanged with the
// language model: role-attributed turns holding ordered content blocks.
//
// A Block is one of a closed set of variants (Text, ToolUse, ToolResult, Document)
// plus Unknown, which carries block kinds this package does not understand so they
// can be surfaced and persisted without being interpreted.
package conversation

import (
	"encoding/json"
	"fmt"
)

// BlockKind tags each Block variant. It is also the "type" discriminator used in
// the JSON encoding.
type BlockKind string

const (
	KindText       BlockKind = "text"
	KindToolUse    BlockKind = "tool_use"
	KindToolResult BlockKind = "tool_result"
	KindDocument   BlockKind = "document"
)

// Block is the polymorphic unit of conversation content.
//
// Consumers are expected to switch over the concrete types and handle every case,
// including *Unknown, with an explicit default branch.
type Block interface {
	Kind() BlockKind
	isBlock()
}

// --- Variants ---

// Text is free-form text written by the operator or the model.
type Text struct {
	Body string
}

// ToolUse is a tool-invocation request emitted by the model.
type ToolUse struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult answers the ToolUse with the same id. Exactly one of Payload or Error
// is set.
type ToolResult struct {
	ToolUseID string
	Payload   map[string]any
	Error     *ErrorDescriptor
}

// Document is a file attachment sent along with a user turn.
type Document struct {
	Name   string
	Format DocumentFormat
	Bytes  []byte
}

// Unknown keeps a block kind this package cannot interpret. It is inert.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

// ErrorDescriptor is the recoverable error reported back to the model in place of
// a tool's output.
type ErrorDescriptor struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorDescriptor) String() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (*Text) Kind() BlockKind       { return KindText }
func (*ToolUse) Kind() BlockKind    { return KindToolUse }
func (*ToolResult) Kind() BlockKind { return KindToolResult }
func (*Document) Kind() BlockKind   { return KindDocument }
func (u *Unknown) Kind() BlockKind  { return BlockKind(u.Type) }

func (*Text) isBlock()       {}
func (*ToolUse) isBlock()    {}
func (*ToolResult) isBlock() {}
func (*Document) isBlock()   {}
func (*Unknown) isBlock()    {}

// IsError reports whether the result carries an error descriptor.
func (r *ToolResult) IsError() bool {
	return r.Error != nil
}

// --- Constructors ---

func NewText(body string) *Text {
	return &Text{Body: body}
}

func NewToolUse(id, name string, input map[string]any) *ToolUse {
	return &ToolUse{ID: id, Name: name, Input: input}
}

// NewToolResult builds a successful result for the tool use with the given id.
func NewToolResult(toolUseID string, payload map[string]any) *ToolResult {
	if payload == nil {
		payload = map[string]any{}
	}
	return &ToolResult{ToolUseID: toolUseID, Payload: payload}
}

// NewToolError builds a failed result for the tool use with the given id.
func NewToolError(toolUseID, code, message string) *ToolResult {
	return &ToolResult{
		ToolUseID: toolUseID,
		Error:     &ErrorDescriptor{Code: code, Message: message},
	}
}
