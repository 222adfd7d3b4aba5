package invoice

import (
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice represents a priced invoice with its line items and tax breakdown.
// Created exactly once per billing event; afterwards only payment
// application and status transitions mutate it.
type Invoice struct {
	ID             string  `json:"id"`
	InvoiceNumber  string  `json:"invoice_number"`
	CustomerID     string  `json:"customer_id"`
	SubscriptionID *string `json:"subscription_id,omitempty"`

	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	Currency      string              `json:"currency"`

	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`

	BillingPeriodStart *time.Time `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time `json:"billing_period_end,omitempty"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountDue      decimal.Decimal `json:"amount_due"`

	// IdempotencyKey guards against duplicate invoice generation for the
	// same (subscription, billing_period_start) pair across repeated sweeps.
	IdempotencyKey *string `json:"idempotency_key,omitempty"`

	LineItems    []*LineItem   `json:"line_items,omitempty"`
	TaxBreakdown []*TaxApplied `json:"tax_breakdown,omitempty"`

	Metadata types.Metadata `json:"metadata,omitempty"`

	types.BaseModel
}

// RecalculateAmountDue restores the amount_due invariant:
// amount_due = total_amount - amount_paid, clamped at zero.
func (i *Invoice) RecalculateAmountDue() {
	due := i.TotalAmount.Sub(i.AmountPaid)
	if due.IsNegative() {
		due = decimal.Zero
	}
	i.AmountDue = due
}

// LineItem is a single priced line on an invoice, immutable once the
// invoice is created.
type LineItem struct {
	ID          string `json:"id"`
	InvoiceID   string `json:"invoice_id"`
	DisplayName string `json:"display_name"`

	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`

	// Amount is the net amount after the line-level discount.
	Amount decimal.Decimal `json:"amount"`

	types.BaseModel
}

// TaxApplied is a single entry in an invoice's tax breakdown, immutable
// once the invoice is created.
type TaxApplied struct {
	ID        string        `json:"id"`
	InvoiceID string        `json:"invoice_id"`
	Name      string        `json:"name"`
	TaxType   types.TaxType `json:"tax_type"`

	Rate          decimal.Decimal `json:"rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`

	types.BaseModel
}
