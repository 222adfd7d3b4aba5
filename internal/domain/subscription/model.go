package subscription

import (
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription represents a customer's recurring subscription to a plan.
// It is owned exclusively by the lifecycle service: status and period fields
// are mutated only through defined transitions and rows are never deleted,
// only moved to terminal states.
type Subscription struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	PlanID     string `json:"plan_id"`

	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`

	Currency string          `json:"currency"`
	Quantity decimal.Decimal `json:"quantity"`

	// Current-cycle pricing snapshot, recomputed on creation, renewal and
	// plan change.
	UnitAmount      decimal.Decimal `json:"unit_amount"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`

	BillingCycle    types.BillingCycle `json:"billing_cycle"`
	BillingInterval int                `json:"billing_interval"`

	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	NextBillingDate    time.Time  `json:"next_billing_date"`

	AutoRenew         bool       `json:"auto_renew"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`

	Metadata types.Metadata `json:"metadata,omitempty"`

	types.BaseModel
}

// IsTerminal reports whether the subscription permits no further transitions.
func (s *Subscription) IsTerminal() bool {
	return s.SubscriptionStatus.IsTerminal()
}
