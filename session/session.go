// Package session persists conversations by session identifier.
//
// A Store keeps one snapshot per session id (last write wins). Loads always return
// an independent copy, so two loads without an intervening save are equal and do
// not share state.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
)

var ErrNotFound = errors.New("session not found")

// Session is a conversation plus its metadata.
type Session struct {
	ID           string
	Conversation *conversation.Conversation
	LastUpdated  time.Time
}

// Summary is what List returns for operator selection.
type Summary struct {
	ID          string    `json:"session_id" yaml:"session_id"`
	LastUpdated time.Time `json:"last_updated" yaml:"last_updated"`
}

// Store is the durable mapping from session id to snapshot.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]Summary, error)
}

// New creates a session with a fresh id and an empty conversation. It is not
// persisted until saved.
func New() *Session {
	return &Session{
		ID:           uuid.NewString(),
		Conversation: conversation.New(),
		LastUpdated:  Now(),
	}
}

// Now is the clock used for LastUpdated. Timestamps are kept in UTC at millisecond
// precision so every store round-trips them exactly.
var Now = func() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ShortID is the id prefix shown in listings.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// --- Record codec shared by the stores ---

type record struct {
	SessionID           string                     `json:"session_id"`
	ConversationHistory *conversation.Conversation `json:"conversation_history"`
	LastUpdated         time.Time                  `json:"last_updated"`
}

func encode(s *Session) ([]byte, error) {
	if s == nil || s.ID == "" {
		return nil, errors.New("session: missing id")
	}
	conv := s.Conversation
	if conv == nil {
		conv = conversation.New()
	}
	data, err := json.Marshal(record{
		SessionID:           s.ID,
		ConversationHistory: conv,
		LastUpdated:         s.LastUpdated.UTC(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "encode session %s", s.ID)
	}
	return data, nil
}

func decode(data []byte) (*Session, error) {
	var r record
	r.ConversationHistory = conversation.New()
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	if r.ConversationHistory == nil {
		r.ConversationHistory = conversation.New()
	}
	return &Session{
		ID:           r.SessionID,
		Conversation: r.ConversationHistory,
		LastUpdated:  r.LastUpdated.UTC(),
	}, nil
}

// touch stamps the session before it is written.
func touch(s *Session) {
	s.LastUpdated = Now()
}
