package subscription

import (
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
)

// History is an immutable audit record of a single lifecycle transition.
// The history is append-only and is never the source of truth for the
// subscription's current status.
type History struct {
	ID             string                         `json:"id"`
	TenantID       string                         `json:"tenant_id"`
	SubscriptionID string                         `json:"subscription_id"`
	EventType      types.SubscriptionHistoryEvent `json:"event_type"`
	FromStatus     types.SubscriptionStatus       `json:"from_status"`
	ToStatus       types.SubscriptionStatus       `json:"to_status"`
	Actor          string                         `json:"actor"`
	Timestamp      time.Time                      `json:"timestamp"`
}
