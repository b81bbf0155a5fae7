// Package openai adapts OpenAI-compatible chat-completion endpoints to the
// orchestrator's Model contract.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const DefaultModel = go_openai.GPT4o

type Model struct {
	client *go_openai.Client
}

// New creates a chat-completions endpoint. An empty baseURL keeps the OpenAI default.
func New(apiKey, baseURL string) (*Model, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Model{client: go_openai.NewClientWithConfig(config)}, nil
}

func (m *Model) Complete(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	chatReq, err := BuildRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, errors.Wrap(err, "openai chat completion")
	}
	log.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai response")
	return Decode(resp)
}

// --- Encoding ---

func BuildRequest(req orchestrator.Request) (go_openai.ChatCompletionRequest, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	var messages []go_openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	encoded, err := EncodeTurns(req.Turns)
	if err != nil {
		return go_openai.ChatCompletionRequest{}, err
	}
	messages = append(messages, encoded...)

	chatReq := go_openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: int(req.MaxTokens),
		Messages:  messages,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = EncodeTools(req.Tools)
		chatReq.ToolChoice = "auto"
	}
	return chatReq, nil
}

func EncodeTools(specs []toolkit.Spec) []go_openai.Tool {
	tools := make([]go_openai.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  map[string]interface{}(spec.InputSchema),
			},
		})
	}
	return tools
}

// EncodeTurns converts turns to chat messages. Tool results become "tool" messages
// placed before any text of the same user turn, so they directly follow the
// assistant message that requested them.
func EncodeTurns(turns []conversation.Turn) ([]go_openai.ChatCompletionMessage, error) {
	var messages []go_openai.ChatCompletionMessage
	for _, turn := range turns {
		var (
			texts []string
			calls []go_openai.ToolCall
			tools []go_openai.ChatCompletionMessage
		)
		for _, b := range turn.Blocks {
			switch v := b.(type) {
			case *conversation.Text:
				texts = append(texts, v.Body)
			case *conversation.Document:
				texts = append(texts, inlineDocument(v))
			case *conversation.ToolUse:
				args, err := json.Marshal(v.Input)
				if err != nil {
					return nil, errors.Wrapf(err, "encode arguments of %s", v.ID)
				}
				calls = append(calls, go_openai.ToolCall{
					ID:       v.ID,
					Type:     go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{Name: v.Name, Arguments: string(args)},
				})
			case *conversation.ToolResult:
				content, err := resultContent(v)
				if err != nil {
					return nil, err
				}
				tools = append(tools, go_openai.ChatCompletionMessage{
					Role:       go_openai.ChatMessageRoleTool,
					Content:    content,
					ToolCallID: v.ToolUseID,
				})
			case *conversation.Unknown:
				log.Debug().Str("block_type", v.Type).Msg("not sending inert block to openai")
			default:
				return nil, errors.Errorf("openai: unsupported block %T", b)
			}
		}

		messages = append(messages, tools...)
		text := strings.Join(texts, "\n\n")
		switch turn.Role {
		case conversation.RoleAssistant:
			if text == "" && len(calls) == 0 {
				continue
			}
			messages = append(messages, go_openai.ChatCompletionMessage{
				Role:      go_openai.ChatMessageRoleAssistant,
				Content:   text,
				ToolCalls: calls,
			})
		default:
			if text == "" {
				continue
			}
			messages = append(messages, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleUser,
				Content: text,
			})
		}
	}
	return messages, nil
}

// inlineDocument renders an attachment as message text. Chat completions take no
// binary documents, so PDFs are announced but not sent.
func inlineDocument(d *conversation.Document) string {
	if !d.IsText() {
		return fmt.Sprintf("[attached document %s (%s) omitted: binary documents are not supported by this endpoint]", d.Name, d.Format)
	}
	return fmt.Sprintf("Attached document %s:\n%s", d.Name, string(d.Bytes))
}

func resultContent(r *conversation.ToolResult) (string, error) {
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

// --- Decoding ---

func Decode(resp go_openai.ChatCompletionResponse) (*orchestrator.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: response has no choices")
	}
	choice := resp.Choices[0]

	var blocks []conversation.Block
	if choice.Message.Content != "" {
		blocks = append(blocks, conversation.NewText(choice.Message.Content))
	}
	for _, call := range choice.Message.ToolCalls {
		input := map[string]any{}
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			if err := json.Unmarshal([]byte(args), &input); err != nil {
				return nil, errors.Wrapf(err, "openai: decode arguments of tool %s", call.Function.Name)
			}
		}
		if input == nil {
			input = map[string]any{}
		}
		blocks = append(blocks, conversation.NewToolUse(call.ID, call.Function.Name, input))
	}

	return &orchestrator.Response{
		Turn:       conversation.NewAssistantTurn(blocks...),
		StopReason: StopReason(choice.FinishReason),
		Usage: orchestrator.Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}, nil
}

func StopReason(r go_openai.FinishReason) orchestrator.StopReason {
	switch r {
	case go_openai.FinishReasonToolCalls, go_openai.FinishReasonFunctionCall:
		return orchestrator.StopToolUse
	case go_openai.FinishReasonStop:
		return orchestrator.StopEndTurn
	default:
		return orchestrator.StopOther
	}
}
