package payload

import (
	"context"
	"encoding/json"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/api/dto"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	webhookDto "github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/dto"
)

// SubscriptionPayloadBuilder builds webhook payloads for subscription events
type SubscriptionPayloadBuilder struct {
	services *Services
}

// NewSubscriptionPayloadBuilder creates a new subscription payload builder
func NewSubscriptionPayloadBuilder(services *Services) PayloadBuilder {
	return &SubscriptionPayloadBuilder{
		services: services,
	}
}

// BuildPayload builds the webhook payload for subscription events
func (b *SubscriptionPayloadBuilder) BuildPayload(ctx context.Context, eventType types.WebhookEventType, data json.RawMessage) (json.RawMessage, error) {
	var internalEvent webhookDto.InternalSubscriptionEvent
	if err := json.Unmarshal(data, &internalEvent); err != nil {
		return nil, err
	}

	sub, err := b.services.SubscriptionRepo.Get(ctx, internalEvent.SubscriptionID)
	if err != nil {
		return nil, err
	}

	payload := webhookDto.NewSubscriptionWebhookPayload(dto.NewSubscriptionResponse(sub))

	return json.Marshal(payload)
}
