package payload

import (
	"context"
	"encoding/json"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/api/dto"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	webhookDto "github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/dto"
)

// PaymentPayloadBuilder builds webhook payloads for payment events
type PaymentPayloadBuilder struct {
	services *Services
}

// NewPaymentPayloadBuilder creates a new payment payload builder
func NewPaymentPayloadBuilder(services *Services) PayloadBuilder {
	return &PaymentPayloadBuilder{
		services: services,
	}
}

// BuildPayload builds the webhook payload for payment events
func (b *PaymentPayloadBuilder) BuildPayload(ctx context.Context, eventType types.WebhookEventType, data json.RawMessage) (json.RawMessage, error) {
	var internalEvent webhookDto.InternalPaymentEvent
	if err := json.Unmarshal(data, &internalEvent); err != nil {
		return nil, err
	}

	inv, err := b.services.InvoiceRepo.Get(ctx, internalEvent.InvoiceID)
	if err != nil {
		return nil, err
	}

	payload := webhookDto.NewPaymentWebhookPayload(dto.NewInvoiceResponse(inv), internalEvent.Amount)

	return json.Marshal(payload)
}
