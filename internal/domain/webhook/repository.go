package webhook

import (
	"context"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
)

// RegistrationRepository defines the interface for webhook registration
// persistence operations. The dispatcher only reads registrations.
type RegistrationRepository interface {
	// Create creates a new registration after validation
	Create(ctx context.Context, reg *Registration) error

	// Get retrieves a registration by its tenant-scoped id
	Get(ctx context.Context, id string) (*Registration, error)

	// Update persists changes to an existing registration
	Update(ctx context.Context, reg *Registration) error

	// ListActiveByEvent returns the tenant's enabled registrations
	// subscribed to the given event type
	ListActiveByEvent(ctx context.Context, tenantID string, eventType types.WebhookEventType) ([]*Registration, error)
}

// DeliveryRepository defines the interface for delivery-log persistence
// operations. Owned by the dispatcher for the row's whole lifetime.
type DeliveryRepository interface {
	// Create inserts a new delivery-log row
	Create(ctx context.Context, log *DeliveryLog) error

	// Update persists a delivery attempt's outcome
	Update(ctx context.Context, log *DeliveryLog) error

	// Get retrieves a delivery-log row by id
	Get(ctx context.Context, id string) (*DeliveryLog, error)

	// ListDueForRetry returns retrying rows across all tenants whose
	// next_retry_at has elapsed
	ListDueForRetry(ctx context.Context, asOf time.Time) ([]*DeliveryLog, error)
}
