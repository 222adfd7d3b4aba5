package dto

import (
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/validator"
	"github.com/shopspring/decimal"
)

// ComposeInvoiceRequest is the request to price and persist a draft invoice
// from line items, an invoice-level discount and a set of tax rules.
type ComposeInvoiceRequest struct {
	CustomerID      string                   `json:"customer_id" validate:"required"`
	SubscriptionID  *string                  `json:"subscription_id,omitempty"`
	Currency        string                   `json:"currency" validate:"required"`
	LineItems       []ComposeLineItemRequest `json:"line_items" validate:"required,min=1,dive"`
	DiscountPercent decimal.Decimal          `json:"discount_percent"`
	TaxRules        []TaxRuleRequest         `json:"tax_rules"`
	PeriodStart     *time.Time               `json:"period_start,omitempty"`
	PeriodEnd       *time.Time               `json:"period_end,omitempty"`
	IdempotencyKey  *string                  `json:"idempotency_key,omitempty"`
	Metadata        types.Metadata           `json:"metadata,omitempty"`
}

// ComposeLineItemRequest is a single line to be priced onto the invoice.
type ComposeLineItemRequest struct {
	DisplayName     string          `json:"display_name" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// TaxRuleRequest is one tax rule applied to the invoice's taxable amount.
type TaxRuleRequest struct {
	Name                 string          `json:"name"`
	Rate                 decimal.Decimal `json:"rate"`
	TenantJurisdiction   string          `json:"tenant_jurisdiction"`
	CustomerJurisdiction string          `json:"customer_jurisdiction"`
}

func (r *ComposeInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.DiscountPercent.IsNegative() || r.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("discount percent out of range").
			WithHint("Discount percent must be between 0 and 100").
			Mark(ierr.ErrValidation)
	}
	for _, item := range r.LineItems {
		if item.Quantity.IsNegative() {
			return ierr.NewError("line item quantity cannot be negative").
				WithHint("Line item quantities must be 0 or greater").
				WithReportableDetails(map[string]interface{}{
					"display_name": item.DisplayName,
				}).
				Mark(ierr.ErrValidation)
		}
		if item.UnitPrice.IsNegative() {
			return ierr.NewError("line item unit price cannot be negative").
				WithHint("Line item unit prices must be 0 or greater").
				WithReportableDetails(map[string]interface{}{
					"display_name": item.DisplayName,
				}).
				Mark(ierr.ErrValidation)
		}
		if item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
			return ierr.NewError("line item discount percent out of range").
				WithHint("Line item discount percent must be between 0 and 100").
				WithReportableDetails(map[string]interface{}{
					"display_name": item.DisplayName,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	for _, rule := range r.TaxRules {
		if rule.Rate.IsNegative() {
			return ierr.NewError("tax rate cannot be negative").
				WithHint("Tax rates must be 0 or greater").
				WithReportableDetails(map[string]interface{}{
					"name": rule.Name,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// ApplyPaymentRequest records a payment against an invoice.
type ApplyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r *ApplyPaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RefundPaymentRequest refunds part or all of an invoice's paid amount.
type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r *RefundPaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ierr.NewError("refund amount must be positive").
			WithHint("Refund amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceResponse is the wire projection of an invoice with its line items
// and tax breakdown.
type InvoiceResponse struct {
	*invoice.Invoice
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{Invoice: inv}
}
