package conversation

import (
	clone "github.com/huandu/go-clone"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-attributed unit of conversation. Block order is the order in
// which blocks are rendered and sent.
type Turn struct {
	Role   Role
	Blocks []Block
}

func NewUserTurn(blocks ...Block) Turn {
	return Turn{Role: RoleUser, Blocks: blocks}
}

func NewAssistantTurn(blocks ...Block) Turn {
	return Turn{Role: RoleAssistant, Blocks: blocks}
}

// ToolUses returns the tool-invocation requests of the turn in block order.
func (t Turn) ToolUses() []*ToolUse {
	var out []*ToolUse
	for _, b := range t.Blocks {
		if tu, ok := b.(*ToolUse); ok {
			out = append(out, tu)
		}
	}
	return out
}

// Text joins the bodies of all Text blocks, separated by blank lines.
func (t Turn) Text() string {
	s := ""
	for _, b := range t.Blocks {
		if tb, ok := b.(*Text); ok {
			if s != "" {
				s += "\n\n"
			}
			s += tb.Body
		}
	}
	return s
}

// Conversation is the ordered, append-only sequence of turns owned by one session.
//
// Turns are never edited in place. The only removals are KeepLast and Replace,
// which exist for the operator-initiated summarize-and-reset.
type Conversation struct {
	turns []Turn
}

func New(turns ...Turn) *Conversation {
	c := &Conversation{}
	for _, t := range turns {
		c.Append(t)
	}
	return c
}

// Append adds a turn at the end of the conversation.
func (c *Conversation) Append(t Turn) {
	c.turns = append(c.turns, t)
}

func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.turns)
}

// Turns returns a copy of the turn slice. The blocks themselves are shared.
func (c *Conversation) Turns() []Turn {
	if c == nil || len(c.turns) == 0 {
		return nil
	}
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Last returns the final turn, if any.
func (c *Conversation) Last() (Turn, bool) {
	if c.Len() == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// KeepLast truncates the conversation to its final n turns.
func (c *Conversation) KeepLast(n int) {
	if n < 0 {
		n = 0
	}
	if len(c.turns) <= n {
		return
	}
	kept := make([]Turn, n)
	copy(kept, c.turns[len(c.turns)-n:])
	c.turns = kept
}

// Replace discards the whole history and starts over from the given turns.
func (c *Conversation) Replace(turns ...Turn) {
	c.turns = append([]Turn(nil), turns...)
}

// Clone returns a deep copy, including block payloads and attachment bytes.
func (c *Conversation) Clone() *Conversation {
	if c.Len() == 0 {
		return New()
	}
	return &Conversation{turns: clone.Clone(c.turns).([]Turn)}
}
