package service

import (
	"context"
	"encoding/json"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/api/dto"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/clock"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook"
	webhookDto "github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/dto"
	"github.com/shopspring/decimal"
)

// InvoiceService owns invoice status transitions and payment application.
// Line items and tax rows are immutable once the invoice exists; only
// status and the paid/due amounts change here.
type InvoiceService struct {
	invoiceRepo invoice.Repository
	publisher   webhook.Publisher
	logger      *logger.Logger
	clock       clock.Clock
}

func NewInvoiceService(
	invoiceRepo invoice.Repository,
	publisher webhook.Publisher,
	logger *logger.Logger,
	clk clock.Clock,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		publisher:   publisher,
		logger:      logger,
		clock:       clk,
	}
}

// SendInvoice issues a draft invoice to the customer.
func (s *InvoiceService) SendInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceStatus != types.InvoiceStatusDraft {
		return nil, s.statusError(inv, "only draft invoices can be sent")
	}

	inv.InvoiceStatus = types.InvoiceStatusSent
	inv.UpdatedAt = s.clock.Now()
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.publishInvoiceEvent(ctx, types.WebhookEventInvoiceSent, inv.ID)
	return dto.NewInvoiceResponse(inv), nil
}

// VoidInvoice cancels an unpaid invoice. Void invoices no longer count
// toward the one-invoice-per-period constraint.
func (s *InvoiceService) VoidInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch inv.InvoiceStatus {
	case types.InvoiceStatusDraft, types.InvoiceStatusSent, types.InvoiceStatusOverdue:
	default:
		return nil, s.statusError(inv, "only draft, sent or overdue invoices can be voided")
	}

	inv.InvoiceStatus = types.InvoiceStatusVoid
	inv.UpdatedAt = s.clock.Now()
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.publishInvoiceEvent(ctx, types.WebhookEventInvoiceVoided, inv.ID)
	return dto.NewInvoiceResponse(inv), nil
}

// MarkOverdue flips a sent invoice past its due date to overdue. Driven by
// the scheduler's overdue sweep.
func (s *InvoiceService) MarkOverdue(ctx context.Context, id string) error {
	inv, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.InvoiceStatus != types.InvoiceStatusSent {
		return s.statusError(inv, "only sent invoices can become overdue")
	}
	if inv.DueDate.After(s.clock.Now()) {
		return ierr.NewError("invoice is not yet due").
			WithHint("The invoice due date has not passed").
			WithReportableDetails(map[string]interface{}{
				"invoice_id": inv.ID,
				"due_date":   inv.DueDate,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	inv.InvoiceStatus = types.InvoiceStatusOverdue
	inv.UpdatedAt = s.clock.Now()
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	s.publishInvoiceEvent(ctx, types.WebhookEventInvoiceOverdue, inv.ID)
	return nil
}

// ApplyPayment records a payment against an invoice. Full payment settles
// the invoice; partial payment leaves it partially paid.
func (s *InvoiceService) ApplyPayment(ctx context.Context, id string, req *dto.ApplyPaymentRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch inv.InvoiceStatus {
	case types.InvoiceStatusSent, types.InvoiceStatusPartiallyPaid, types.InvoiceStatusOverdue:
	default:
		return nil, s.statusError(inv, "invoice is not payable in its current status")
	}

	if req.Amount.GreaterThan(inv.AmountDue) {
		return nil, ierr.NewError("payment amount exceeds invoice amount due").
			WithHintf("The payment cannot exceed the outstanding amount of %s", inv.AmountDue).
			WithReportableDetails(map[string]interface{}{
				"invoice_id": inv.ID,
				"amount":     req.Amount,
				"amount_due": inv.AmountDue,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	inv.AmountPaid = inv.AmountPaid.Add(req.Amount)
	inv.RecalculateAmountDue()
	if inv.AmountDue.IsZero() {
		inv.InvoiceStatus = types.InvoiceStatusPaid
	} else {
		inv.InvoiceStatus = types.InvoiceStatusPartiallyPaid
	}
	inv.UpdatedAt = s.clock.Now()

	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Infow("applied payment",
		"invoice_id", inv.ID,
		"amount", req.Amount,
		"amount_due", inv.AmountDue,
		"status", inv.InvoiceStatus,
	)

	s.publishPaymentEvent(ctx, types.WebhookEventPaymentCompleted, inv.ID, req.Amount)
	if inv.InvoiceStatus == types.InvoiceStatusPaid {
		s.publishInvoiceEvent(ctx, types.WebhookEventInvoicePaid, inv.ID)
	}

	return dto.NewInvoiceResponse(inv), nil
}

// RefundPayment returns part or all of an invoice's paid amount.
func (s *InvoiceService) RefundPayment(ctx context.Context, id string, req *dto.RefundPaymentRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Amount.GreaterThan(inv.AmountPaid) {
		return nil, ierr.NewError("refund amount exceeds refundable amount").
			WithHint("The refund cannot exceed what has been paid").
			WithReportableDetails(map[string]interface{}{
				"invoice_id":  inv.ID,
				"amount":      req.Amount,
				"amount_paid": inv.AmountPaid,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	inv.AmountPaid = inv.AmountPaid.Sub(req.Amount)
	inv.RecalculateAmountDue()
	if inv.AmountPaid.IsZero() {
		inv.InvoiceStatus = types.InvoiceStatusSent
	} else if inv.AmountDue.IsPositive() {
		inv.InvoiceStatus = types.InvoiceStatusPartiallyPaid
	}
	inv.UpdatedAt = s.clock.Now()

	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.publishPaymentEvent(ctx, types.WebhookEventPaymentRefunded, inv.ID, req.Amount)
	return dto.NewInvoiceResponse(inv), nil
}

func (s *InvoiceService) statusError(inv *invoice.Invoice, msg string) error {
	return ierr.NewError(msg).
		WithHint("The invoice status does not permit this operation").
		WithReportableDetails(map[string]interface{}{
			"invoice_id": inv.ID,
			"status":     inv.InvoiceStatus,
		}).
		Mark(ierr.ErrInvalidOperation)
}

func (s *InvoiceService) publishInvoiceEvent(ctx context.Context, eventType types.WebhookEventType, invoiceID string) {
	payload, err := json.Marshal(webhookDto.InternalInvoiceEvent{
		EventType: string(eventType),
		TenantID:  types.GetTenantID(ctx),
		InvoiceID: invoiceID,
	})
	if err != nil {
		s.logger.WithContext(ctx).Errorw("failed to marshal internal invoice event", "error", err)
		return
	}
	s.publish(ctx, eventType, payload)
}

func (s *InvoiceService) publishPaymentEvent(ctx context.Context, eventType types.WebhookEventType, invoiceID string, amount decimal.Decimal) {
	payload, err := json.Marshal(webhookDto.InternalPaymentEvent{
		EventType: string(eventType),
		TenantID:  types.GetTenantID(ctx),
		InvoiceID: invoiceID,
		Amount:    amount,
	})
	if err != nil {
		s.logger.WithContext(ctx).Errorw("failed to marshal internal payment event", "error", err)
		return
	}
	s.publish(ctx, eventType, payload)
}

func (s *InvoiceService) publish(ctx context.Context, eventType types.WebhookEventType, payload json.RawMessage) {
	event := &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: eventType,
		TenantID:  types.GetTenantID(ctx),
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}
	if err := s.publisher.PublishWebhook(ctx, event); err != nil {
		s.logger.WithContext(ctx).Errorw("failed to publish invoice webhook event",
			"event_name", eventType,
			"error", err,
		)
	}
}
