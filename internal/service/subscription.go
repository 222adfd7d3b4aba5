package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/api/dto"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/clock"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/config"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/customer"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/plan"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/subscription"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/idempotency"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook"
	webhookDto "github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/dto"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// allowedTransitions is the subscription state machine. Terminal states
// (cancelled, expired) have no outbound edges.
var allowedTransitions = map[types.SubscriptionStatus][]types.SubscriptionStatus{
	types.SubscriptionStatusTrial: {
		types.SubscriptionStatusActive,
		types.SubscriptionStatusExpired,
		types.SubscriptionStatusCancelled,
	},
	types.SubscriptionStatusActive: {
		types.SubscriptionStatusActive,
		types.SubscriptionStatusPaused,
		types.SubscriptionStatusPastDue,
		types.SubscriptionStatusCancelled,
	},
	types.SubscriptionStatusPastDue: {
		types.SubscriptionStatusActive,
		types.SubscriptionStatusCancelled,
	},
	types.SubscriptionStatusPaused: {
		types.SubscriptionStatusActive,
	},
	types.SubscriptionStatusCancelled: {},
	types.SubscriptionStatusExpired:   {},
}

func canTransition(from, to types.SubscriptionStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SubscriptionService owns the subscription lifecycle: creation, pause and
// resume, cancellation, plan changes, renewal and trial expiry. All status
// mutations go through the transition table and append a history record.
type SubscriptionService struct {
	subRepo        subscription.Repository
	planRepo       plan.Repository
	customerRepo   customer.Repository
	invoiceRepo    invoice.Repository
	billingService *BillingService
	publisher      webhook.Publisher
	cfg            *config.Configuration
	logger         *logger.Logger
	clock          clock.Clock
}

func NewSubscriptionService(
	subRepo subscription.Repository,
	planRepo plan.Repository,
	customerRepo customer.Repository,
	invoiceRepo invoice.Repository,
	billingService *BillingService,
	publisher webhook.Publisher,
	cfg *config.Configuration,
	logger *logger.Logger,
	clk clock.Clock,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:        subRepo,
		planRepo:       planRepo,
		customerRepo:   customerRepo,
		invoiceRepo:    invoiceRepo,
		billingService: billingService,
		publisher:      publisher,
		cfg:            cfg,
		logger:         logger,
		clock:          clk,
	}
}

// CreateSubscription subscribes a customer to a plan. The subscription
// starts in trial when the plan has trial days, active otherwise.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.planRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	cust, err := s.customerRepo.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := p.BillingCycle.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.subRepo.ExistsActiveForPlan(ctx, req.CustomerID, req.PlanID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ierr.NewError("customer already has an active subscription to this plan").
			WithHint("Cancel the existing subscription before creating a new one").
			WithReportableDetails(map[string]interface{}{
				"customer_id": req.CustomerID,
				"plan_id":     req.PlanID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	now := s.clock.Now()
	periodEnd, err := types.NextBillingDate(now, p.BillingCycle, p.BillingInterval)
	if err != nil {
		return nil, err
	}

	status := types.SubscriptionStatusActive
	var trialEndsAt *time.Time
	if p.TrialDays > 0 {
		status = types.SubscriptionStatusTrial
		trialEndsAt = lo.ToPtr(types.CalculateTrialEnd(now, p.TrialDays))
	}

	subtotal, taxAmount, totalAmount := s.priceSnapshot(ctx, p, cust, req.Quantity, req.DiscountPercent)

	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID:         req.CustomerID,
		PlanID:             req.PlanID,
		SubscriptionStatus: status,
		Currency:           p.Currency,
		Quantity:           req.Quantity,
		UnitAmount:         p.UnitAmount,
		DiscountPercent:    req.DiscountPercent,
		Subtotal:           subtotal,
		TaxAmount:          taxAmount,
		TotalAmount:        totalAmount,
		BillingCycle:       p.BillingCycle,
		BillingInterval:    p.BillingInterval,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
		TrialEndsAt:        trialEndsAt,
		NextBillingDate:    periodEnd,
		AutoRenew:          req.AutoRenew,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}

	hist := s.newHistory(ctx, sub, types.SubscriptionHistoryEventCreated, "", status)
	if err := s.subRepo.Create(ctx, sub, hist); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Infow("created subscription",
		"subscription_id", sub.ID,
		"plan_id", sub.PlanID,
		"status", sub.SubscriptionStatus,
	)

	if status == types.SubscriptionStatusActive {
		s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionActivated, sub.ID)
	}

	return dto.NewSubscriptionResponse(sub), nil
}

// GetSubscription retrieves a subscription by id.
func (s *SubscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

// PauseSubscription stops further billing until the subscription resumes.
func (s *SubscriptionService) PauseSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.CancelAtPeriodEnd {
		// A paused subscription has no cancelled transition, so pausing
		// here would strand the scheduled cancellation.
		return nil, ierr.NewError("subscription has a scheduled cancellation").
			WithHint("A subscription scheduled for cancellation cannot be paused").
			WithReportableDetails(map[string]interface{}{
				"subscription_id":    sub.ID,
				"current_period_end": sub.CurrentPeriodEnd,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if err := s.transition(ctx, sub, types.SubscriptionStatusPaused, types.SubscriptionHistoryEventPaused); err != nil {
		return nil, err
	}
	s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionPaused, sub.ID)
	return dto.NewSubscriptionResponse(sub), nil
}

// ResumeSubscription returns a paused subscription to active billing.
func (s *SubscriptionService) ResumeSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusPaused {
		return nil, ierr.NewError("only paused subscriptions can be resumed").
			WithHint("The subscription is not paused").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if err := s.transition(ctx, sub, types.SubscriptionStatusActive, types.SubscriptionHistoryEventResumed); err != nil {
		return nil, err
	}
	s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionActivated, sub.ID)
	return dto.NewSubscriptionResponse(sub), nil
}

// CancelSubscription cancels a subscription, either immediately or at the
// end of the current paid period. Deferred cancellation only sets a flag;
// the status transition fires at the period boundary sweep.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, id string, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, s.terminalError(sub)
	}

	if req != nil && req.CancelAtPeriodEnd {
		from := sub.SubscriptionStatus
		if !canTransition(from, types.SubscriptionStatusCancelled) {
			// Same gate as an immediate cancel. Deferring from a state
			// with no cancelled transition would leave the flag
			// unfulfillable at the period boundary.
			return nil, ierr.NewError("subscription status transition not allowed").
				WithHint("Cancellation cannot be scheduled from the current status").
				WithReportableDetails(map[string]interface{}{
					"subscription_id": sub.ID,
					"status":          from,
				}).
				Mark(ierr.ErrInvalidOperation)
		}
		sub.CancelAtPeriodEnd = true
		hist := s.newHistory(ctx, sub, types.SubscriptionHistoryEventCancelScheduled, from, from)
		if err := s.subRepo.UpdateWithHistory(ctx, sub, hist); err != nil {
			return nil, err
		}
		s.logger.WithContext(ctx).Infow("scheduled cancellation at period end",
			"subscription_id", sub.ID,
			"current_period_end", sub.CurrentPeriodEnd,
		)
		return dto.NewSubscriptionResponse(sub), nil
	}

	sub.CancelledAt = lo.ToPtr(s.clock.Now())
	if err := s.transition(ctx, sub, types.SubscriptionStatusCancelled, types.SubscriptionHistoryEventCancelled); err != nil {
		return nil, err
	}
	s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionCancelled, sub.ID)
	return dto.NewSubscriptionResponse(sub), nil
}

// ChangePlan re-prices the subscription in place from a new plan without
// changing its status. Recorded as a history event, not a transition.
func (s *SubscriptionService) ChangePlan(ctx context.Context, id string, req *dto.ChangePlanRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.subRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, s.terminalError(sub)
	}

	newPlan, err := s.planRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if newPlan.Currency != sub.Currency {
		return nil, ierr.NewError("plan change cannot switch currency").
			WithHint("The new plan must use the subscription's currency").
			WithReportableDetails(map[string]interface{}{
				"subscription_currency": sub.Currency,
				"plan_currency":         newPlan.Currency,
			}).
			Mark(ierr.ErrValidation)
	}
	cust, err := s.customerRepo.Get(ctx, sub.CustomerID)
	if err != nil {
		return nil, err
	}

	upgrade := newPlan.UnitAmount.GreaterThanOrEqual(sub.UnitAmount)

	from := sub.SubscriptionStatus
	sub.PlanID = newPlan.ID
	sub.UnitAmount = newPlan.UnitAmount
	sub.BillingCycle = newPlan.BillingCycle
	sub.BillingInterval = newPlan.BillingInterval
	sub.Subtotal, sub.TaxAmount, sub.TotalAmount = s.priceSnapshot(ctx, newPlan, cust, sub.Quantity, sub.DiscountPercent)

	hist := s.newHistory(ctx, sub, types.SubscriptionHistoryEventPlanChanged, from, from)
	if err := s.subRepo.UpdateWithHistory(ctx, sub, hist); err != nil {
		return nil, err
	}

	eventType := types.WebhookEventSubscriptionUpgraded
	if !upgrade {
		eventType = types.WebhookEventSubscriptionDowngraded
	}
	s.publishSubscriptionEvent(ctx, eventType, sub.ID)

	return dto.NewSubscriptionResponse(sub), nil
}

// RenewSubscription generates the renewal invoice for the elapsed period
// and advances the subscription into its next billing period. Safe to call
// repeatedly: if the period's invoice already exists the invoice step is
// skipped and only the period advance is repaired if needed.
func (s *SubscriptionService) RenewSubscription(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	sub, err := s.subRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, s.terminalError(sub)
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusActive && sub.SubscriptionStatus != types.SubscriptionStatusTrial {
		return nil, ierr.NewError("subscription is not renewable in its current status").
			WithHint("Only trial and active subscriptions renew").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	// Idempotency: at most one non-void invoice per (subscription, period
	// start). A second sweep over the same window must not double-bill.
	existing, err := s.invoiceRepo.GetBySubscriptionAndPeriod(ctx, sub.ID, sub.CurrentPeriodStart)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		s.logger.WithContext(ctx).Infow("renewal invoice already exists, skipping generation",
			"subscription_id", sub.ID,
			"invoice_id", existing.ID,
			"period_start", sub.CurrentPeriodStart,
		)
		if err := s.advancePeriod(ctx, sub); err != nil {
			return nil, err
		}
		return dto.NewInvoiceResponse(existing), nil
	}

	p, err := s.planRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	cust, err := s.customerRepo.Get(ctx, sub.CustomerID)
	if err != nil {
		return nil, err
	}

	idemKey := idempotency.GenerateKey(idempotency.ScopeRenewalInvoice, map[string]interface{}{
		"subscription_id": sub.ID,
		"period_start":    sub.CurrentPeriodStart.UTC().Format(time.RFC3339),
	})

	invResp, err := s.billingService.ComposeInvoice(ctx, &dto.ComposeInvoiceRequest{
		CustomerID:     sub.CustomerID,
		SubscriptionID: lo.ToPtr(sub.ID),
		Currency:       sub.Currency,
		LineItems: []dto.ComposeLineItemRequest{
			{
				DisplayName: p.Name,
				Quantity:    sub.Quantity,
				UnitPrice:   sub.UnitAmount,
			},
		},
		DiscountPercent: sub.DiscountPercent,
		TaxRules: []dto.TaxRuleRequest{
			{
				Name:                 "GST",
				Rate:                 s.taxRate(p),
				TenantJurisdiction:   p.Jurisdiction,
				CustomerJurisdiction: cust.Jurisdiction,
			},
		},
		PeriodStart:    lo.ToPtr(sub.CurrentPeriodStart),
		PeriodEnd:      lo.ToPtr(sub.CurrentPeriodEnd),
		IdempotencyKey: lo.ToPtr(idemKey),
	})
	if err != nil {
		return nil, err
	}

	fromStatus := sub.SubscriptionStatus
	if err := s.advancePeriod(ctx, sub); err != nil {
		return nil, err
	}

	if fromStatus == types.SubscriptionStatusTrial {
		s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionActivated, sub.ID)
	}

	return invResp, nil
}

// advancePeriod moves the subscription into its next billing period and
// appends the renewal history record. A trial subscription converts to
// active here.
func (s *SubscriptionService) advancePeriod(ctx context.Context, sub *subscription.Subscription) error {
	newStart := sub.CurrentPeriodEnd
	newEnd, err := types.NextBillingDate(newStart, sub.BillingCycle, sub.BillingInterval)
	if err != nil {
		return err
	}

	from := sub.SubscriptionStatus
	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.CurrentPeriodStart = newStart
	sub.CurrentPeriodEnd = newEnd
	sub.NextBillingDate = newEnd

	hist := s.newHistory(ctx, sub, types.SubscriptionHistoryEventRenewed, from, sub.SubscriptionStatus)
	if err := s.subRepo.UpdateWithHistory(ctx, sub, hist); err != nil {
		return err
	}

	s.logger.WithContext(ctx).Infow("advanced subscription period",
		"subscription_id", sub.ID,
		"period_start", sub.CurrentPeriodStart,
		"period_end", sub.CurrentPeriodEnd,
	)
	return nil
}

// ExpireTrial moves a trial subscription whose trial window has elapsed to
// the terminal expired state.
func (s *SubscriptionService) ExpireTrial(ctx context.Context, id string) error {
	sub, err := s.subRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusTrial {
		return ierr.NewError("subscription is not in trial").
			WithHint("Only trial subscriptions can expire").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if err := s.transition(ctx, sub, types.SubscriptionStatusExpired, types.SubscriptionHistoryEventExpired); err != nil {
		return err
	}
	s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionExpired, sub.ID)
	return nil
}

// FinalizePeriodEndCancellation fires the deferred cancelled transition for
// a subscription flagged cancel_at_period_end once its period has ended.
func (s *SubscriptionService) FinalizePeriodEndCancellation(ctx context.Context, id string) error {
	sub, err := s.subRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub.IsTerminal() {
		return nil
	}
	if !sub.CancelAtPeriodEnd || sub.CurrentPeriodEnd.After(s.clock.Now()) {
		return nil
	}

	sub.CancelledAt = lo.ToPtr(s.clock.Now())
	if err := s.transition(ctx, sub, types.SubscriptionStatusCancelled, types.SubscriptionHistoryEventCancelled); err != nil {
		return err
	}
	s.publishSubscriptionEvent(ctx, types.WebhookEventSubscriptionCancelled, sub.ID)
	return nil
}

// ListHistory returns the subscription's audit trail in chronological order.
func (s *SubscriptionService) ListHistory(ctx context.Context, id string) ([]*subscription.History, error) {
	if _, err := s.subRepo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.subRepo.ListHistory(ctx, id)
}

func (s *SubscriptionService) transition(ctx context.Context, sub *subscription.Subscription, to types.SubscriptionStatus, event types.SubscriptionHistoryEvent) error {
	from := sub.SubscriptionStatus
	if !canTransition(from, to) {
		return ierr.NewError("subscription status transition not allowed").
			WithHint("The requested transition is not permitted from the current status").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"from":            from,
				"to":              to,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	sub.SubscriptionStatus = to
	hist := s.newHistory(ctx, sub, event, from, to)
	if err := s.subRepo.UpdateWithHistory(ctx, sub, hist); err != nil {
		sub.SubscriptionStatus = from
		return err
	}

	s.logger.WithContext(ctx).Infow("subscription status transition",
		"subscription_id", sub.ID,
		"from", from,
		"to", to,
		"event", event,
	)
	return nil
}

func (s *SubscriptionService) newHistory(ctx context.Context, sub *subscription.Subscription, event types.SubscriptionHistoryEvent, from, to types.SubscriptionStatus) *subscription.History {
	return &subscription.History{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_HISTORY),
		TenantID:       types.GetTenantID(ctx),
		SubscriptionID: sub.ID,
		EventType:      event,
		FromStatus:     from,
		ToStatus:       to,
		Actor:          types.GetUserID(ctx),
		Timestamp:      s.clock.Now(),
	}
}

// priceSnapshot computes the subscription's current-cycle pricing snapshot.
func (s *SubscriptionService) priceSnapshot(ctx context.Context, p *plan.Plan, cust *customer.Customer, quantity, discountPercent decimal.Decimal) (subtotal, taxAmount, totalAmount decimal.Decimal) {
	subtotal = quantity.Mul(p.UnitAmount).Round(2)
	discountAmount := subtotal.Mul(discountPercent).Div(hundred).Round(2)
	taxable := subtotal.Sub(discountAmount)

	breakdown := s.billingService.taxService.Split(ctx, taxable, s.taxRate(p), p.Jurisdiction, cust.Jurisdiction)
	taxAmount = breakdown.TotalTax
	totalAmount = taxable.Add(taxAmount)
	return subtotal, taxAmount, totalAmount
}

// taxRate resolves the plan's tax rate, falling back to the tenant-wide
// default. The default applies to every customer regardless of tax
// category until product defines zero-rating rules.
func (s *SubscriptionService) taxRate(p *plan.Plan) decimal.Decimal {
	if p.TaxRate != nil {
		return *p.TaxRate
	}
	return decimal.NewFromFloat(s.cfg.Billing.DefaultTaxRate)
}

func (s *SubscriptionService) terminalError(sub *subscription.Subscription) error {
	return ierr.NewError("subscription is in a terminal state").
		WithHint("Cancelled and expired subscriptions cannot be modified").
		WithReportableDetails(map[string]interface{}{
			"subscription_id": sub.ID,
			"status":          sub.SubscriptionStatus,
		}).
		Mark(ierr.ErrInvalidOperation)
}

func (s *SubscriptionService) publishSubscriptionEvent(ctx context.Context, eventType types.WebhookEventType, subscriptionID string) {
	payload, err := json.Marshal(webhookDto.InternalSubscriptionEvent{
		EventType:      string(eventType),
		TenantID:       types.GetTenantID(ctx),
		SubscriptionID: subscriptionID,
	})
	if err != nil {
		s.logger.WithContext(ctx).Errorw("failed to marshal internal subscription event", "error", err)
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
		s.logger.WithContext(ctx).Errorw("failed to publish subscription webhook event",
			"event_name", eventType,
			"subscription_id", subscriptionID,
			"error", err,
		)
	}
}
