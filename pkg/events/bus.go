// Package events carries orchestrator events over an in-process watermill bus.
package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
)

const DefaultTopic = "orchestrator.events"

// Bus publishes orchestrator events as JSON watermill messages. It implements
// orchestrator.Sink.
type Bus struct {
	pubsub *gochannel.GoChannel
	topic  string
}

type BusOption func(*busOptions)

type busOptions struct {
	topic  string
	logger watermill.LoggerAdapter
}

func WithTopic(topic string) BusOption {
	return func(o *busOptions) { o.topic = topic }
}

func WithWatermillLogger(l watermill.LoggerAdapter) BusOption {
	return func(o *busOptions) { o.logger = l }
}

// NewBus creates a bus whose Publish blocks until every subscriber has acked,
// so printed output stays in step with the exchange.
func NewBus(opts ...BusOption) *Bus {
	o := busOptions{topic: DefaultTopic, logger: watermill.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, o.logger)
	return &Bus{pubsub: pubsub, topic: o.topic}
}

func (b *Bus) Topic() string {
	return b.topic
}

func (b *Bus) Publish(ctx context.Context, ev orchestrator.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(b.topic, msg); err != nil {
		log.Error().Err(err).Str("topic", b.topic).Msg("failed to publish event")
		return errors.Wrap(err, "publish event")
	}
	log.Trace().Str("topic", b.topic).Str("event_type", string(ev.Type)).Msg("published event")
	return nil
}

// Subscribe returns the messages published after the call. Every message must
// be acked. The channel closes when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	msgs, err := b.pubsub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe")
	}
	return msgs, nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Decode reads an event back from a message payload.
func Decode(msg *message.Message) (orchestrator.Event, error) {
	var ev orchestrator.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return orchestrator.Event{}, errors.Wrapf(err, "decode event %s", msg.UUID)
	}
	return ev, nil
}

var _ orchestrator.Sink = (*Bus)(nil)
