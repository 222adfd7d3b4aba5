package types

import ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"

// InvoiceStatus is the lifecycle status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusVoid          InvoiceStatus = "void"
)

func (s InvoiceStatus) Validate() error {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusPartiallyPaid, InvoiceStatusOverdue, InvoiceStatusVoid:
		return nil
	default:
		return ierr.NewError("invalid invoice status").
			WithHint("Unknown invoice status").
			WithReportableDetails(map[string]interface{}{
				"status": string(s),
			}).
			Mark(ierr.ErrValidation)
	}
}

// TaxType identifies a tax breakdown entry. Intra-state transactions split
// into CGST+SGST; inter-state transactions carry a single IGST entry.
type TaxType string

const (
	TaxTypeCGST  TaxType = "cgst"
	TaxTypeSGST  TaxType = "sgst"
	TaxTypeIGST  TaxType = "igst"
	TaxTypeOther TaxType = "other"
)
