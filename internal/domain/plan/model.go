package plan

import (
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/shopspring/decimal"
)

// Plan represents a billable plan customers can subscribe to.
type Plan struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	LookupKey       string             `json:"lookup_key,omitempty"`
	Description     string             `json:"description,omitempty"`
	UnitAmount      decimal.Decimal    `json:"unit_amount"`
	Currency        string             `json:"currency"`
	BillingCycle    types.BillingCycle `json:"billing_cycle"`
	BillingInterval int                `json:"billing_interval"`
	TrialDays       int                `json:"trial_days"`

	// TaxRate overrides the tenant default tax rate when set.
	TaxRate *decimal.Decimal `json:"tax_rate,omitempty"`

	// Jurisdiction is the tax jurisdiction (state code) the tenant bills from.
	Jurisdiction string `json:"jurisdiction,omitempty"`

	Metadata types.Metadata `json:"metadata,omitempty"`

	types.BaseModel
}
