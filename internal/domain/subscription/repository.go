package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription persistence operations.
// Sweep listings (ListDueForRenewal and friends) intentionally span all
// tenants; the scheduler establishes the tenant context per item.
type Repository interface {
	// Create creates a new subscription together with its initial history
	// record as one atomic unit
	Create(ctx context.Context, sub *Subscription, hist *History) error

	// Get retrieves a subscription by its tenant-scoped id
	Get(ctx context.Context, id string) (*Subscription, error)

	// UpdateWithHistory persists a subscription mutation and appends the
	// history record atomically
	UpdateWithHistory(ctx context.Context, sub *Subscription, hist *History) error

	// ExistsActiveForPlan reports whether the customer already holds a
	// non-terminal subscription to the plan
	ExistsActiveForPlan(ctx context.Context, customerID, planID string) (bool, error)

	// ListDueForRenewal returns subscriptions with auto_renew enabled,
	// status active and next_billing_date at or before the given cutoff
	ListDueForRenewal(ctx context.Context, cutoff time.Time) ([]*Subscription, error)

	// ListExpiredTrials returns subscriptions still in trial whose
	// trial_ends_at has elapsed
	ListExpiredTrials(ctx context.Context, asOf time.Time) ([]*Subscription, error)

	// ListDueForCancellation returns subscriptions flagged
	// cancel_at_period_end whose current period has ended
	ListDueForCancellation(ctx context.Context, asOf time.Time) ([]*Subscription, error)

	// ListHistory returns the subscription's history records in
	// chronological order
	ListHistory(ctx context.Context, subscriptionID string) ([]*History, error)
}
