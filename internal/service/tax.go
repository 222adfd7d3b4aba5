package service

import (
	"context"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/shopspring/decimal"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// TaxBreakdownEntry is one computed entry of a tax split.
type TaxBreakdownEntry struct {
	Name          string          `json:"name"`
	TaxType       types.TaxType   `json:"tax_type"`
	Rate          decimal.Decimal `json:"rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}

// TaxBreakdown is the result of splitting a tax rule over a taxable amount.
// The entry amounts always sum exactly to TotalTax.
type TaxBreakdown struct {
	Entries  []TaxBreakdownEntry `json:"entries"`
	TotalTax decimal.Decimal     `json:"total_tax"`
}

// TaxService computes jurisdiction-aware tax breakdowns.
type TaxService struct {
	logger *logger.Logger
}

func NewTaxService(logger *logger.Logger) *TaxService {
	return &TaxService{logger: logger}
}

// Split computes the tax breakdown for a taxable amount under a single rule.
// Matching non-empty jurisdictions produce an intra-state CGST+SGST split at
// half rate each; differing jurisdictions produce a single IGST entry.
// Missing jurisdiction codes degrade to the inter-state path with a logged
// warning so billing never stalls on incomplete address data.
//
// Rounding is applied once at the total, and entries are derived from the
// rounded total (SGST = total - CGST) so the entries always sum exactly.
func (s *TaxService) Split(ctx context.Context, taxableAmount, rate decimal.Decimal, tenantJurisdiction, customerJurisdiction string) TaxBreakdown {
	if !rate.IsPositive() || taxableAmount.IsZero() {
		return TaxBreakdown{TotalTax: decimal.Zero}
	}

	totalTax := taxableAmount.Mul(rate).Div(hundred).Round(2)

	if tenantJurisdiction == "" || customerJurisdiction == "" {
		s.logger.WithContext(ctx).Warnw("missing tax jurisdiction, defaulting to inter-state tax treatment",
			"tenant_jurisdiction", tenantJurisdiction,
			"customer_jurisdiction", customerJurisdiction,
		)
		return s.interStateBreakdown(taxableAmount, rate, totalTax)
	}

	if tenantJurisdiction != customerJurisdiction {
		return s.interStateBreakdown(taxableAmount, rate, totalTax)
	}

	halfRate := rate.Div(two)
	cgst := totalTax.Div(two).Round(2)
	sgst := totalTax.Sub(cgst)

	return TaxBreakdown{
		TotalTax: totalTax,
		Entries: []TaxBreakdownEntry{
			{
				Name:          "CGST",
				TaxType:       types.TaxTypeCGST,
				Rate:          halfRate,
				TaxableAmount: taxableAmount,
				TaxAmount:     cgst,
			},
			{
				Name:          "SGST",
				TaxType:       types.TaxTypeSGST,
				Rate:          halfRate,
				TaxableAmount: taxableAmount,
				TaxAmount:     sgst,
			},
		},
	}
}

func (s *TaxService) interStateBreakdown(taxableAmount, rate, totalTax decimal.Decimal) TaxBreakdown {
	return TaxBreakdown{
		TotalTax: totalTax,
		Entries: []TaxBreakdownEntry{
			{
				Name:          "IGST",
				TaxType:       types.TaxTypeIGST,
				Rate:          rate,
				TaxableAmount: taxableAmount,
				TaxAmount:     totalTax,
			},
		},
	}
}
