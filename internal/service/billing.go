package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/api/dto"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/clock"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/config"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook"
	webhookDto "github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/dto"
	"github.com/shopspring/decimal"
)

// BillingService composes priced invoices from line items, discounts and
// tax rules. The invoice, its line items and its tax breakdown are written
// as one atomic unit; a partially inserted invoice is never observable.
type BillingService struct {
	invoiceRepo invoice.Repository
	taxService  *TaxService
	publisher   webhook.Publisher
	cfg         *config.Configuration
	logger      *logger.Logger
	clock       clock.Clock
}

func NewBillingService(
	invoiceRepo invoice.Repository,
	taxService *TaxService,
	publisher webhook.Publisher,
	cfg *config.Configuration,
	logger *logger.Logger,
	clk clock.Clock,
) *BillingService {
	return &BillingService{
		invoiceRepo: invoiceRepo,
		taxService:  taxService,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
		clock:       clk,
	}
}

// ComposeInvoice prices the request into a draft invoice and persists it.
func (s *BillingService) ComposeInvoice(ctx context.Context, req *dto.ComposeInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	subtotal := decimal.Zero
	lineItems := make([]*invoice.LineItem, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		net := item.Quantity.
			Mul(item.UnitPrice).
			Mul(hundred.Sub(item.DiscountPercent)).
			Div(hundred).
			Round(2)
		subtotal = subtotal.Add(net)
		lineItems = append(lineItems, &invoice.LineItem{
			ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			DisplayName:     item.DisplayName,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			Amount:          net,
			BaseModel:       types.GetDefaultBaseModel(ctx),
		})
	}

	discountAmount := subtotal.Mul(req.DiscountPercent).Div(hundred).Round(2)
	taxableAmount := subtotal.Sub(discountAmount)

	taxAmount := decimal.Zero
	taxRows := make([]*invoice.TaxApplied, 0)
	for _, rule := range req.TaxRules {
		breakdown := s.taxService.Split(ctx, taxableAmount, rule.Rate, rule.TenantJurisdiction, rule.CustomerJurisdiction)
		taxAmount = taxAmount.Add(breakdown.TotalTax)
		for _, entry := range breakdown.Entries {
			taxRows = append(taxRows, &invoice.TaxApplied{
				ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_APPLIED),
				Name:          entry.Name,
				TaxType:       entry.TaxType,
				Rate:          entry.Rate,
				TaxableAmount: entry.TaxableAmount,
				TaxAmount:     entry.TaxAmount,
				BaseModel:     types.GetDefaultBaseModel(ctx),
			})
		}
	}

	totalAmount := taxableAmount.Add(taxAmount)

	invoiceNumber, err := s.nextInvoiceNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	inv := &invoice.Invoice{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber:      invoiceNumber,
		CustomerID:         req.CustomerID,
		SubscriptionID:     req.SubscriptionID,
		InvoiceStatus:      types.InvoiceStatusDraft,
		Currency:           req.Currency,
		IssueDate:          now,
		DueDate:            now.AddDate(0, 0, s.cfg.Billing.DueDateDays),
		BillingPeriodStart: req.PeriodStart,
		BillingPeriodEnd:   req.PeriodEnd,
		Subtotal:           subtotal,
		DiscountAmount:     discountAmount,
		TaxableAmount:      taxableAmount,
		TaxAmount:          taxAmount,
		TotalAmount:        totalAmount,
		AmountPaid:         decimal.Zero,
		AmountDue:          totalAmount,
		IdempotencyKey:     req.IdempotencyKey,
		Metadata:           req.Metadata,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	for _, li := range lineItems {
		li.InvoiceID = inv.ID
	}
	for _, tr := range taxRows {
		tr.InvoiceID = inv.ID
	}
	inv.LineItems = lineItems
	inv.TaxBreakdown = taxRows

	if err := s.invoiceRepo.CreateWithLineItems(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Infow("composed invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"subtotal", inv.Subtotal,
		"tax_amount", inv.TaxAmount,
		"total_amount", inv.TotalAmount,
	)

	s.publishInvoiceEvent(ctx, types.WebhookEventInvoiceCreated, inv.ID)

	return dto.NewInvoiceResponse(inv), nil
}

// GetInvoice retrieves an invoice by id.
func (s *BillingService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *BillingService) nextInvoiceNumber(ctx context.Context, now time.Time) (string, error) {
	yearMonth := now.Format("200601")
	seq, err := s.invoiceRepo.NextSequence(ctx, types.GetTenantID(ctx), yearMonth)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to allocate invoice number").
			Mark(ierr.ErrDatabase)
	}
	return fmt.Sprintf("%s-%s-%05d", s.cfg.Billing.InvoiceNumberPrefix, yearMonth, seq), nil
}

func (s *BillingService) publishInvoiceEvent(ctx context.Context, eventType types.WebhookEventType, invoiceID string) {
	payload, err := json.Marshal(webhookDto.InternalInvoiceEvent{
		EventType: string(eventType),
		TenantID:  types.GetTenantID(ctx),
		InvoiceID: invoiceID,
	})
	if err != nil {
		s.logger.WithContext(ctx).Errorw("failed to marshal internal invoice event", "error", err)
		return
	}

	event := &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: eventType,
		TenantID:  types.GetTenantID(ctx),
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}
	if err := s.publisher.PublishWebhook(ctx, event); err != nil {
		// Webhook failures never surface to the billing transaction.
		s.logger.WithContext(ctx).Errorw("failed to publish invoice webhook event",
			"event_name", eventType,
			"invoice_id", invoiceID,
			"error", err,
		)
	}
}
