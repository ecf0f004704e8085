package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/relayhq/chatflow/pkg/channels/gochannel"
	"github.com/relayhq/chatflow/pkg/channels/kafka"
	"github.com/relayhq/chatflow/pkg/eventbus"
)

// NewMessageBus creates a message bus instance based on the provider; brokers
// is the kafka broker list and is ignored by the other providers.
func NewMessageBus(provider, brokers, serviceName string, logger *slog.Logger) eventbus.MessageBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, brokers, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillMessageBus(pub, sub, logger)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
		}

		return eventbus.NewWatermillMessageBus(pub, sub, logger)
	default:
		panic("Unsupported message bus provider: " + provider)
	}
}
