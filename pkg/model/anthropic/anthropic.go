// Package anthropic adapts the Claude Messages API to the orchestrator's Model
// contract.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const DefaultModel = anthropic.ModelClaude3_7Sonnet20250219

// Model calls the Claude Messages API.
type Model struct {
	client *anthropic.Client
}

// New creates a Claude model endpoint. Extra request options (base URL, retries)
// are passed through to the SDK client.
func New(apiKey string, opts ...option.RequestOption) (*Model, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Model{client: anthropic.NewClient(opts...)}, nil
}

// Complete implements orchestrator.Model.
func (m *Model) Complete(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	params, err := BuildParams(req)
	if err != nil {
		return nil, err
	}
	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "claude messages.new")
	}
	log.Debug().
		Int64("input_tokens", msg.Usage.InputTokens).
		Int64("output_tokens", msg.Usage.OutputTokens).
		Str("stop_reason", string(msg.StopReason)).
		Msg("claude response")
	return Decode(msg)
}

// --- Encoding ---

// BuildParams converts an orchestrator request into Messages API parameters.
func BuildParams(req orchestrator.Request) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = string(DefaultModel)
	}
	messages, err := EncodeTurns(req.Turns)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(model)),
		MaxTokens: anthropic.F(req.MaxTokens),
		Messages:  anthropic.F(messages),
	}
	if req.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{anthropic.NewTextBlock(req.System)})
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropic.F(EncodeTools(req.Tools))
	}
	return params, nil
}

func EncodeTools(specs []toolkit.Spec) []anthropic.ToolUnionUnionParam {
	tools := make([]anthropic.ToolUnionUnionParam, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, anthropic.ToolParam{
			Name:        anthropic.F(spec.Name),
			Description: anthropic.F(spec.Description),
			InputSchema: anthropic.F[interface{}](map[string]interface{}(spec.InputSchema)),
		})
	}
	return tools
}

// EncodeTurns converts turns to messages. Consecutive turns of the same role are
// merged, since the API requires roles to alternate. Unknown blocks are not sent.
func EncodeTurns(turns []conversation.Turn) ([]anthropic.MessageParam, error) {
	var (
		messages []anthropic.MessageParam
		role     conversation.Role
		content  []anthropic.ContentBlockParamUnion
	)
	flush := func() {
		if len(content) == 0 {
			return
		}
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.F(messageRole(role)),
			Content: anthropic.F(content),
		})
		content = nil
	}

	for _, turn := range turns {
		var encoded []anthropic.ContentBlockParamUnion
		for _, b := range turn.Blocks {
			param, ok, err := encodeBlock(b)
			if err != nil {
				return nil, err
			}
			if ok {
				encoded = append(encoded, param)
			}
		}
		// a turn with nothing to send must not break up its neighbours
		if len(encoded) == 0 {
			continue
		}
		if turn.Role != role {
			flush()
			role = turn.Role
		}
		content = append(content, encoded...)
	}
	flush()
	return messages, nil
}

func messageRole(r conversation.Role) anthropic.MessageParamRole {
	if r == conversation.RoleAssistant {
		return anthropic.MessageParamRoleAssistant
	}
	return anthropic.MessageParamRoleUser
}

func encodeBlock(b conversation.Block) (anthropic.ContentBlockParamUnion, bool, error) {
	switch v := b.(type) {
	case *conversation.Text:
		return anthropic.NewTextBlock(v.Body), true, nil
	case *conversation.ToolUse:
		input := v.Input
		if input == nil {
			input = map[string]any{}
		}
		return anthropic.NewToolUseBlockParam(v.ID, v.Name, input), true, nil
	case *conversation.ToolResult:
		content, err := ToolResultContent(v)
		if err != nil {
			return nil, false, err
		}
		return anthropic.NewToolResultBlock(v.ToolUseID, content, v.IsError()), true, nil
	case *conversation.Document:
		return encodeDocument(v), true, nil
	case *conversation.Unknown:
		log.Debug().Str("block_type", v.Type).Msg("not sending inert block to claude")
		return nil, false, nil
	default:
		return nil, false, errors.Errorf("anthropic: unsupported block %T", b)
	}
}

// ToolResultContent renders a tool result as the JSON text sent back to the model.
func ToolResultContent(r *conversation.ToolResult) (string, error) {
	var v interface{} = r.Payload
	if r.IsError() {
		v = map[string]interface{}{"error": r.Error}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(err, "encode result of %s", r.ToolUseID)
	}
	return string(data), nil
}

func encodeDocument(d *conversation.Document) anthropic.DocumentBlockParam {
	var source anthropic.DocumentBlockParamSourceUnion
	if d.IsText() {
		source = anthropic.PlainTextSourceParam{
			Data:      anthropic.F(string(d.Bytes)),
			MediaType: anthropic.F(anthropic.PlainTextSourceMediaTypeTextPlain),
			Type:      anthropic.F(anthropic.PlainTextSourceTypeText),
		}
	} else {
		source = anthropic.Base64PDFSourceParam{
			Data:      anthropic.F(base64.StdEncoding.EncodeToString(d.Bytes)),
			MediaType: anthropic.F(anthropic.Base64PDFSourceMediaTypeApplicationPDF),
			Type:      anthropic.F(anthropic.Base64PDFSourceTypeBase64),
		}
	}
	return anthropic.DocumentBlockParam{
		Source: anthropic.F(source),
		Type:   anthropic.F(anthropic.DocumentBlockParamTypeDocument),
		Title:  anthropic.F(d.Name),
	}
}

// --- Decoding ---

// Decode converts a Messages API response into an assistant turn.
func Decode(msg *anthropic.Message) (*orchestrator.Response, error) {
	if msg == nil {
		return nil, errors.New("anthropic: nil message")
	}
	blocks := make([]conversation.Block, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch b := block.AsUnion().(type) {
		case anthropic.TextBlock:
			blocks = append(blocks, conversation.NewText(b.Text))
		case anthropic.ToolUseBlock:
			input := map[string]any{}
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &input); err != nil {
					return nil, errors.Wrapf(err, "anthropic: decode input of tool %s", b.Name)
				}
			}
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, conversation.NewToolUse(b.ID, b.Name, input))
		default:
			raw := block.JSON.RawJSON()
			blocks = append(blocks, &conversation.Unknown{Type: string(block.Type), Raw: json.RawMessage(raw)})
		}
	}

	return &orchestrator.Response{
		Turn:       conversation.NewAssistantTurn(blocks...),
		StopReason: StopReason(msg.StopReason),
		Usage: orchestrator.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

func StopReason(r anthropic.MessageStopReason) orchestrator.StopReason {
	switch r {
	case anthropic.MessageStopReasonToolUse:
		return orchestrator.StopToolUse
	case anthropic.MessageStopReasonEndTurn:
		return orchestrator.StopEndTurn
	default:
		return orchestrator.StopOther
	}
}
