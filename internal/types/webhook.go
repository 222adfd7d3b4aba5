package types

import (
	"encoding/json"
	"time"

	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
)

// WebhookEventType is the closed set of domain events that can be delivered
// to tenant webhook endpoints. Unknown event names are rejected when a
// registration is created, not at delivery time.
type WebhookEventType string

const (
	WebhookEventInvoiceCreated         WebhookEventType = "invoice.created"
	WebhookEventInvoiceSent            WebhookEventType = "invoice.sent"
	WebhookEventInvoicePaid            WebhookEventType = "invoice.paid"
	WebhookEventInvoiceOverdue         WebhookEventType = "invoice.overdue"
	WebhookEventInvoiceVoided          WebhookEventType = "invoice.voided"
	WebhookEventSubscriptionActivated  WebhookEventType = "subscription.activated"
	WebhookEventSubscriptionCancelled  WebhookEventType = "subscription.cancelled"
	WebhookEventSubscriptionUpgraded   WebhookEventType = "subscription.upgraded"
	WebhookEventSubscriptionDowngraded WebhookEventType = "subscription.downgraded"
	WebhookEventSubscriptionPaused     WebhookEventType = "subscription.paused"
	WebhookEventSubscriptionExpired    WebhookEventType = "subscription.expired"
	WebhookEventPaymentCompleted       WebhookEventType = "payment.completed"
	WebhookEventPaymentRefunded        WebhookEventType = "payment.refunded"
)

// AllWebhookEventTypes lists every valid event type for registration UIs.
var AllWebhookEventTypes = []WebhookEventType{
	WebhookEventInvoiceCreated,
	WebhookEventInvoiceSent,
	WebhookEventInvoicePaid,
	WebhookEventInvoiceOverdue,
	WebhookEventInvoiceVoided,
	WebhookEventSubscriptionActivated,
	WebhookEventSubscriptionCancelled,
	WebhookEventSubscriptionUpgraded,
	WebhookEventSubscriptionDowngraded,
	WebhookEventSubscriptionPaused,
	WebhookEventSubscriptionExpired,
	WebhookEventPaymentCompleted,
	WebhookEventPaymentRefunded,
}

func (e WebhookEventType) Validate() error {
	for _, known := range AllWebhookEventTypes {
		if e == known {
			return nil
		}
	}
	return ierr.NewError("invalid webhook event type").
		WithHint("Event type is not part of the supported event catalog").
		WithReportableDetails(map[string]interface{}{
			"event_type": string(e),
		}).
		Mark(ierr.ErrValidation)
}

// WebhookDeliveryStatus is the lifecycle status of a single delivery-log row.
type WebhookDeliveryStatus string

const (
	WebhookDeliveryStatusPending   WebhookDeliveryStatus = "pending"
	WebhookDeliveryStatusDelivered WebhookDeliveryStatus = "delivered"
	WebhookDeliveryStatusRetrying  WebhookDeliveryStatus = "retrying"
	WebhookDeliveryStatusFailed    WebhookDeliveryStatus = "failed"
)

// IsTerminal reports whether the delivery will never be attempted again.
func (s WebhookDeliveryStatus) IsTerminal() bool {
	return s == WebhookDeliveryStatusDelivered || s == WebhookDeliveryStatusFailed
}

// WebhookEvent is a fired domain event handed to the dispatcher. Payload is
// the internal event (entity ids and context), not the wire body; the
// dispatcher builds the outbound payload per registration.
type WebhookEvent struct {
	ID        string           `json:"id"`
	EventName WebhookEventType `json:"event_name"`
	TenantID  string           `json:"tenant_id"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload"`
}
