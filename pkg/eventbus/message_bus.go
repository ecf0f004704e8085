package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/relayhq/chatflow/pkg/events"
)

// InboundMessageHandler processes one inbound contact message event.
type InboundMessageHandler func(ctx context.Context, received *events.MessageReceived) error

// MessageBus moves contact messages between channel gateways and the worker.
// It is separate from EventBus: messages are load-bearing traffic on their own
// topics, lifecycle events are observability signals.
type MessageBus interface {
	PublishInbound(ctx context.Context, received *events.MessageReceived) error
	PublishOutbound(ctx context.Context, outbound *events.OutboundMessage) error
	HandleInbound(handler InboundMessageHandler) error
	Subscribe(ctx context.Context) error
	Close() error
}

type watermillMessageBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   []InboundMessageHandler
	logger     *slog.Logger
}

func NewWatermillMessageBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) MessageBus {
	return &watermillMessageBus{
		publisher:  pub,
		subscriber: sub,
		handlers:   make([]InboundMessageHandler, 0),
		logger:     logger.With("module", "message-bus"),
	}
}

func (b *watermillMessageBus) PublishInbound(ctx context.Context, received *events.MessageReceived) error {
	return b.publish(events.InboundMessageTopic, received.Message.ContactID, received)
}

func (b *watermillMessageBus) PublishOutbound(ctx context.Context, outbound *events.OutboundMessage) error {
	return b.publish(events.OutboundMessageTopic, outbound.ContactID, outbound)
}

func (b *watermillMessageBus) publish(topic, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return b.publisher.Publish(topic, msg)
}

func (b *watermillMessageBus) HandleInbound(handler InboundMessageHandler) error {
	b.handlers = append(b.handlers, handler)

	return nil
}

func (b *watermillMessageBus) Subscribe(ctx context.Context) error {
	if len(b.handlers) == 0 {
		b.logger.Warn("No handlers registered for inbound messages")

		return nil
	}

	messages, err := b.subscriber.Subscribe(ctx, events.InboundMessageTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			received := &events.MessageReceived{}
			if err := json.Unmarshal(msg.Payload, received); err != nil {
				b.logger.Error("Failed to unmarshal inbound message", "error", err)
				msg.Nack()

				continue
			}

			failed := false

			for _, handler := range b.handlers {
				if err := handler(ctx, received); err != nil {
					b.logger.Error("Inbound message handler failed",
						"error", err,
						"contact_id", received.Message.ContactID)

					failed = true

					break
				}
			}

			if failed {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (b *watermillMessageBus) Close() error {
	err := b.publisher.Close()
	if err != nil {
		return err
	}

	return b.subscriber.Close()
}
