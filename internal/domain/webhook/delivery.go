package webhook

import (
	"encoding/json"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
)

// DeliveryLog tracks one (registration x fired event) delivery through its
// whole lifecycle: pending -> delivered | retrying -> ... -> failed.
// Owned by the dispatcher; one row per fan-out target.
type DeliveryLog struct {
	ID        string `json:"id"`
	WebhookID string `json:"webhook_id"`

	EventType types.WebhookEventType `json:"event_type"`

	// EventID is the idempotency key for the delivery itself, sent as
	// X-Webhook-ID. It identifies the fired event, not the business entity.
	EventID string `json:"event_id"`

	DeliveryStatus types.WebhookDeliveryStatus `json:"delivery_status"`

	AttemptCount int        `json:"attempt_count"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`

	// Payload is the exact wire body so retries resend identical content.
	Payload json.RawMessage `json:"payload"`

	ResponseStatusCode *int    `json:"response_status_code,omitempty"`
	ResponseBody       *string `json:"response_body,omitempty"`
	LastError          *string `json:"last_error,omitempty"`

	types.BaseModel
}
