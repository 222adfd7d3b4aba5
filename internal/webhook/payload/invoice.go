package payload

import (
	"context"
	"encoding/json"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/api/dto"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	webhookDto "github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/dto"
)

// InvoicePayloadBuilder builds webhook payloads for invoice events
type InvoicePayloadBuilder struct {
	services *Services
}

// NewInvoicePayloadBuilder creates a new invoice payload builder
func NewInvoicePayloadBuilder(services *Services) PayloadBuilder {
	return &InvoicePayloadBuilder{
		services: services,
	}
}

// BuildPayload builds the webhook payload for invoice events
func (b *InvoicePayloadBuilder) BuildPayload(ctx context.Context, eventType types.WebhookEventType, data json.RawMessage) (json.RawMessage, error) {
	var internalEvent webhookDto.InternalInvoiceEvent
	if err := json.Unmarshal(data, &internalEvent); err != nil {
		return nil, err
	}

	inv, err := b.services.InvoiceRepo.Get(ctx, internalEvent.InvoiceID)
	if err != nil {
		return nil, err
	}

	payload := webhookDto.NewInvoiceWebhookPayload(dto.NewInvoiceResponse(inv))

	return json.Marshal(payload)
}
