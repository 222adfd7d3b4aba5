package webhookDto

import (
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/api/dto"
	"github.com/shopspring/decimal"
)

// InternalInvoiceEvent is the internal event structure for invoice webhooks.
// It carries ids only; the payload builder loads the entity at build time.
type InternalInvoiceEvent struct {
	EventType string `json:"event_type"`
	TenantID  string `json:"tenant_id"`
	InvoiceID string `json:"invoice_id"`
}

// InternalSubscriptionEvent is the internal event structure for
// subscription webhooks.
type InternalSubscriptionEvent struct {
	EventType      string `json:"event_type"`
	TenantID       string `json:"tenant_id"`
	SubscriptionID string `json:"subscription_id"`
}

// InternalPaymentEvent is the internal event structure for payment webhooks.
type InternalPaymentEvent struct {
	EventType string          `json:"event_type"`
	TenantID  string          `json:"tenant_id"`
	InvoiceID string          `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// InvoiceWebhookPayload is the event-specific object delivered for
// invoice.* events.
type InvoiceWebhookPayload struct {
	Invoice *dto.InvoiceResponse `json:"invoice"`
}

func NewInvoiceWebhookPayload(inv *dto.InvoiceResponse) *InvoiceWebhookPayload {
	return &InvoiceWebhookPayload{Invoice: inv}
}

// SubscriptionWebhookPayload is the event-specific object delivered for
// subscription.* events.
type SubscriptionWebhookPayload struct {
	Subscription *dto.SubscriptionResponse `json:"subscription"`
}

func NewSubscriptionWebhookPayload(sub *dto.SubscriptionResponse) *SubscriptionWebhookPayload {
	return &SubscriptionWebhookPayload{Subscription: sub}
}

// PaymentWebhookPayload is the event-specific object delivered for
// payment.* events.
type PaymentWebhookPayload struct {
	Invoice *dto.InvoiceResponse `json:"invoice"`
	Amount  decimal.Decimal      `json:"amount"`
}

func NewPaymentWebhookPayload(inv *dto.InvoiceResponse, amount decimal.Decimal) *PaymentWebhookPayload {
	return &PaymentWebhookPayload{Invoice: inv, Amount: amount}
}
