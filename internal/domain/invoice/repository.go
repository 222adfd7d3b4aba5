package invoice

import (
	"context"
	"time"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// CreateWithLineItems inserts the invoice, its line items and its tax
	// breakdown rows as one atomic unit. Partial insertion must never be
	// observable.
	CreateWithLineItems(ctx context.Context, inv *Invoice) error

	// Get retrieves an invoice (with line items and tax rows) by its
	// tenant-scoped id
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update persists mutations to an existing invoice's status and
	// payment fields
	Update(ctx context.Context, inv *Invoice) error

	// GetBySubscriptionAndPeriod returns the non-void invoice for the
	// given subscription and billing period start, if one exists
	GetBySubscriptionAndPeriod(ctx context.Context, subscriptionID string, periodStart time.Time) (*Invoice, error)

	// ListOverdueCandidates returns sent invoices across all tenants whose
	// due date has passed
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]*Invoice, error)

	// NextSequence returns the next invoice sequence number for the tenant
	// and year-month bucket
	NextSequence(ctx context.Context, tenantID, yearMonth string) (int, error)
}
