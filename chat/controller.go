// Package chat binds one session to the orchestrator for an interactive operator.
//
// The Controller owns the pending-attachment slot, saves the session after every
// completed exchange and implements the summarize-then-truncate reset.
package chat

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hamzaessahbaoui/taskpilot/conversation"
	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
	"github.com/hamzaessahbaoui/taskpilot/session"
)

// SummaryPrompt is sent when the operator asks to summarize and reset the session.
const SummaryPrompt = "If I am in the state where I am planning social media posts, please generate a table of " +
	"what I am working on and a list of the tasks created so far. Otherwise, write a summary of what I have " +
	"been doing in this session. I am about to clear the contents."

var ErrEmptyInput = errors.New("empty input")

// Engine runs exchanges on a conversation. *orchestrator.Orchestrator implements it.
type Engine interface {
	Run(ctx context.Context, conv *conversation.Conversation, user conversation.Turn) (*orchestrator.Result, error)
	Resume(ctx context.Context, conv *conversation.Conversation) (*orchestrator.Result, error)
}

type Controller struct {
	engine  Engine
	store   session.Store
	session *session.Session
	pending *conversation.Document
}

func NewController(engine Engine, store session.Store, sess *session.Session) (*Controller, error) {
	if engine == nil {
		return nil, errors.New("chat: engine is nil")
	}
	if store == nil {
		return nil, errors.New("chat: store is nil")
	}
	if sess == nil {
		sess = session.New()
	}
	if sess.Conversation == nil {
		sess.Conversation = conversation.New()
	}
	return &Controller{engine: engine, store: store, session: sess}, nil
}

func (c *Controller) Session() *session.Session {
	return c.session
}

// Pending returns the attachment queued for the next outgoing user turn, if any.
func (c *Controller) Pending() *conversation.Document {
	return c.pending
}

// Attach loads a document from disk and queues it. A newer attachment replaces an
// older one that has not been sent yet.
func (c *Controller) Attach(path string) (*conversation.Document, error) {
	doc, err := conversation.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	c.AttachDocument(doc)
	return doc, nil
}

func (c *Controller) AttachDocument(doc *conversation.Document) {
	if c.pending != nil {
		log.Info().Str("document", c.pending.Name).Msg("replacing pending attachment")
	}
	c.pending = doc
}

// Send runs one exchange for the operator's text. The pending attachment goes out
// with this turn and is cleared whatever the outcome. The session is saved when
// the exchange completes or hits the tool-round cap, and left unsaved on a
// transport failure.
func (c *Controller) Send(ctx context.Context, text string) (*orchestrator.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	_, res, err := c.exchange(ctx, text)
	return res, err
}

// Summarize asks the model for a summary of the session and then truncates the
// conversation to the summary prompt and its reply.
func (c *Controller) Summarize(ctx context.Context) (*orchestrator.Result, error) {
	prompt, res, err := c.exchange(ctx, SummaryPrompt)
	if err != nil {
		return res, err
	}

	conv := c.session.Conversation
	if res.Rounds == 0 {
		conv.KeepLast(2)
	} else {
		// keep no tool result without its request
		conv.Replace(prompt, res.Final)
	}
	log.Info().Str("session_id", c.session.ID).Int("turns", conv.Len()).Msg("session summarized and truncated")

	if err := c.save(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Retry resumes the last exchange after a transport failure or the round cap.
func (c *Controller) Retry(ctx context.Context) (*orchestrator.Result, error) {
	res, err := c.engine.Resume(ctx, c.session.Conversation)
	return res, c.afterExchange(ctx, err)
}

// Save persists the session as it stands.
func (c *Controller) Save(ctx context.Context) error {
	return c.save(ctx)
}

func (c *Controller) exchange(ctx context.Context, text string) (conversation.Turn, *orchestrator.Result, error) {
	blocks := []conversation.Block{conversation.NewText(text)}
	if c.pending != nil {
		blocks = append(blocks, c.pending)
		c.pending = nil
	}
	turn := conversation.NewUserTurn(blocks...)

	res, err := c.engine.Run(ctx, c.session.Conversation, turn)
	return turn, res, c.afterExchange(ctx, err)
}

func (c *Controller) afterExchange(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return c.save(ctx)
	case errors.Is(err, orchestrator.ErrMaxToolRounds):
		if saveErr := c.save(ctx); saveErr != nil {
			log.Error().Err(saveErr).Msg("failed to save session after tool round cap")
		}
		return err
	default:
		log.Warn().Err(err).Str("session_id", c.session.ID).Msg("exchange failed, session not saved")
		return err
	}
}

func (c *Controller) save(ctx context.Context) error {
	if err := c.store.Save(ctx, c.session); err != nil {
		return errors.Wrapf(err, "save session %s", c.session.ID)
	}
	return nil
}
