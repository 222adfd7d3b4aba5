package dto

import (
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/subscription"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateSubscriptionRequest is the request to subscribe a customer to a plan.
type CreateSubscriptionRequest struct {
	CustomerID      string          `json:"customer_id" validate:"required"`
	PlanID          string          `json:"plan_id" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	AutoRenew       bool            `json:"auto_renew"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Quantity.IsNegative() || r.Quantity.IsZero() {
		return ierr.NewError("quantity must be positive").
			WithHint("Subscription quantity must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.DiscountPercent.IsNegative() || r.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("discount percent out of range").
			WithHint("Discount percent must be between 0 and 100").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CancelSubscriptionRequest cancels a subscription, either immediately or
// at the end of the current paid period.
type CancelSubscriptionRequest struct {
	CancelAtPeriodEnd bool `json:"cancel_at_period_end"`
}

// ChangePlanRequest re-prices a subscription in place from a new plan.
type ChangePlanRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

func (r *ChangePlanRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// SubscriptionResponse is the wire projection of a subscription.
type SubscriptionResponse struct {
	*subscription.Subscription
}

func NewSubscriptionResponse(sub *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{Subscription: sub}
}
