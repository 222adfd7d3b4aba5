package payload

import (
	"context"
	"encoding/json"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/subscription"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
)

// PayloadBuilder builds the event-specific webhook payload object from an
// internal event.
type PayloadBuilder interface {
	BuildPayload(ctx context.Context, eventType types.WebhookEventType, data json.RawMessage) (json.RawMessage, error)
}

// Services bundles the dependencies payload builders need to load entities.
type Services struct {
	InvoiceRepo      invoice.Repository
	SubscriptionRepo subscription.Repository
	Logger           *logger.Logger
}

// Registry maps every supported event type to its payload builder.
// Lookup of an unknown event type is an error; the closed event catalog is
// enforced at registration time, so reaching that error indicates a
// publisher bug.
type Registry struct {
	builders map[types.WebhookEventType]PayloadBuilder
}

// NewRegistry builds the table-driven event fan-out registry.
func NewRegistry(services *Services) *Registry {
	invoiceBuilder := NewInvoicePayloadBuilder(services)
	subscriptionBuilder := NewSubscriptionPayloadBuilder(services)
	paymentBuilder := NewPaymentPayloadBuilder(services)

	return &Registry{
		builders: map[types.WebhookEventType]PayloadBuilder{
			types.WebhookEventInvoiceCreated:         invoiceBuilder,
			types.WebhookEventInvoiceSent:            invoiceBuilder,
			types.WebhookEventInvoicePaid:            invoiceBuilder,
			types.WebhookEventInvoiceOverdue:         invoiceBuilder,
			types.WebhookEventInvoiceVoided:          invoiceBuilder,
			types.WebhookEventSubscriptionActivated:  subscriptionBuilder,
			types.WebhookEventSubscriptionCancelled:  subscriptionBuilder,
			types.WebhookEventSubscriptionUpgraded:   subscriptionBuilder,
			types.WebhookEventSubscriptionDowngraded: subscriptionBuilder,
			types.WebhookEventSubscriptionPaused:     subscriptionBuilder,
			types.WebhookEventSubscriptionExpired:    subscriptionBuilder,
			types.WebhookEventPaymentCompleted:       paymentBuilder,
			types.WebhookEventPaymentRefunded:        paymentBuilder,
		},
	}
}

// GetBuilder returns the payload builder for an event type.
func (r *Registry) GetBuilder(eventType types.WebhookEventType) (PayloadBuilder, error) {
	builder, ok := r.builders[eventType]
	if !ok {
		return nil, ierr.NewErrorf("no payload builder registered for event type %s", eventType).
			WithHint("Event type is not part of the supported event catalog").
			Mark(ierr.ErrValidation)
	}
	return builder, nil
}
