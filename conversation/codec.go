package conversation

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// wireBlock is the JSON shape of every block variant, discriminated by Type.
type wireBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   map[string]any   `json:"content,omitempty"`
	Error     *ErrorDescriptor `json:"error,omitempty"`

	Format DocumentFormat `json:"format,omitempty"`
	Bytes  []byte         `json:"bytes,omitempty"`
}

type wireTurn struct {
	Role    Role              `json:"role"`
	Content []json.RawMessage `json:"content"`
}

// MarshalBlock encodes a single block with its "type" discriminator.
func MarshalBlock(b Block) ([]byte, error) {
	switch v := b.(type) {
	case *Text:
		return json.Marshal(wireBlock{Type: string(KindText), Text: v.Body})
	case *ToolUse:
		input := v.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(wireBlock{Type: string(KindToolUse), ID: v.ID, Name: v.Name, Input: input})
	case *ToolResult:
		return json.Marshal(wireBlock{Type: string(KindToolResult), ToolUseID: v.ToolUseID, Content: v.Payload, Error: v.Error})
	case *Document:
		return json.Marshal(wireBlock{Type: string(KindDocument), Name: v.Name, Format: v.Format, Bytes: v.Bytes})
	case *Unknown:
		if len(v.Raw) == 0 {
			return json.Marshal(map[string]string{"type": v.Type})
		}
		return v.Raw, nil
	default:
		return nil, errors.Errorf("conversation: cannot encode block of type %T", b)
	}
}

// UnmarshalBlock decodes a block. Unrecognized types come back as *Unknown with
// the raw JSON preserved.
func UnmarshalBlock(data []byte) (Block, error) {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "conversation: decode block")
	}
	switch BlockKind(w.Type) {
	case KindText:
		return &Text{Body: w.Text}, nil
	case KindToolUse:
		if w.Input == nil {
			w.Input = map[string]any{}
		}
		return &ToolUse{ID: w.ID, Name: w.Name, Input: w.Input}, nil
	case KindToolResult:
		if w.Error == nil && w.Content == nil {
			w.Content = map[string]any{}
		}
		return &ToolResult{ToolUseID: w.ToolUseID, Payload: w.Content, Error: w.Error}, nil
	case KindDocument:
		if w.Bytes == nil {
			w.Bytes = []byte{}
		}
		return &Document{Name: w.Name, Format: w.Format, Bytes: w.Bytes}, nil
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return &Unknown{Type: w.Type, Raw: raw}, nil
	}
}

func (t Turn) MarshalJSON() ([]byte, error) {
	w := wireTurn{Role: t.Role, Content: make([]json.RawMessage, 0, len(t.Blocks))}
	for _, b := range t.Blocks {
		raw, err := MarshalBlock(b)
		if err != nil {
			return nil, err
		}
		w.Content = append(w.Content, raw)
	}
	return json.Marshal(w)
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var w wireTurn
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Wrap(err, "conversation: decode turn")
	}
	if w.Role != RoleUser && w.Role != RoleAssistant {
		return errors.Errorf("conversation: unknown role %q", w.Role)
	}
	t.Role = w.Role
	t.Blocks = make([]Block, 0, len(w.Content))
	for _, raw := range w.Content {
		b, err := UnmarshalBlock(raw)
		if err != nil {
			return err
		}
		t.Blocks = append(t.Blocks, b)
	}
	return nil
}

// MarshalJSON encodes the conversation as an ordered list of turns.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	turns := c.Turns()
	if turns == nil {
		turns = []Turn{}
	}
	return json.Marshal(turns)
}

func (c *Conversation) UnmarshalJSON(data []byte) error {
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return err
	}
	c.turns = turns
	return nil
}
