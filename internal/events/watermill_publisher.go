package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// WatermillPublisher adapts any watermill publisher to EventPublisher
type WatermillPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher, logger: logger}
}

// NewKafkaEventPublisher connects a Kafka publisher to the given brokers
func NewKafkaEventPublisher(brokers []string, logger *slog.Logger) (*WatermillPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return NewWatermillPublisher(publisher, logger), nil
}

// NewGoChannelEventPublisher keeps events in process. The returned pub/sub
// can be subscribed to by local consumers and tests.
func NewGoChannelEventPublisher(logger *slog.Logger) (*WatermillPublisher, *gochannel.GoChannel) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	return NewWatermillPublisher(pubSub, logger), pubSub
}

func (p *WatermillPublisher) Publish(ctx context.Context, topic string, events ...Event) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]*message.Message, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
		}

		msg := message.NewMessage(event.ID, payload)
		msg.Metadata.Set("event_type", event.Type)
		msg.Metadata.Set("source", event.Source)
		msg.SetContext(ctx)
		messages = append(messages, msg)
	}

	if err := p.publisher.Publish(topic, messages...); err != nil {
		return fmt.Errorf("failed to publish events to %s: %w", topic, err)
	}

	p.logger.Debug("Events published", "topic", topic, "count", len(messages))
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
