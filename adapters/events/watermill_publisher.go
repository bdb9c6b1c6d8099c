package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/dropwire/dropwire/ports"
)

// SignupTopic carries one event per provisioned account.
const SignupTopic = "dropwire.signup"

// SignupEvent is the published payload.
type SignupEvent struct {
	RootSignPubKey string `json:"root_sign_pub_key"`
	DisplayName    string `json:"display_name"`
}

// WatermillPublisher implements ports.EventPublisher over a watermill
// publisher.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a signup-event publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     SignupTopic,
	}
}

// PublishSignup publishes one signup event.
func (p *WatermillPublisher) PublishSignup(ctx context.Context, rootSignPubKey, displayName string) error {
	payload, err := json.Marshal(SignupEvent{
		RootSignPubKey: rootSignPubKey,
		DisplayName:    displayName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
