package service

import (
	"testing"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/api/dto"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/customer"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/plan"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/testutil"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        *SubscriptionService
	billingService *BillingService
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.billingService = NewBillingService(
		s.GetStores().InvoiceRepo,
		NewTaxService(s.GetLogger()),
		s.GetWebhookPublisher(),
		s.GetConfig(),
		s.GetLogger(),
		s.GetClock(),
	)
	s.service = NewSubscriptionService(
		s.GetStores().SubscriptionRepo,
		s.GetStores().PlanRepo,
		s.GetStores().CustomerRepo,
		s.GetStores().InvoiceRepo,
		s.billingService,
		s.GetWebhookPublisher(),
		s.GetConfig(),
		s.GetLogger(),
		s.GetClock(),
	)
}

func (s *SubscriptionServiceSuite) seedPlan(id string, trialDays int) *plan.Plan {
	p := &plan.Plan{
		ID:              id,
		Name:            "Pro Plan",
		UnitAmount:      decimal.NewFromInt(499),
		Currency:        "INR",
		BillingCycle:    types.BillingCycleMonthly,
		BillingInterval: 1,
		TrialDays:       trialDays,
		Jurisdiction:    "KA",
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PlanRepo.Create(s.GetContext(), p))
	return p
}

func (s *SubscriptionServiceSuite) seedCustomer(id string) *customer.Customer {
	c := &customer.Customer{
		ID:           id,
		Name:         "Acme",
		Jurisdiction: "KA",
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), c))
	return c
}

func (s *SubscriptionServiceSuite) createSubscription(planID, customerID string) *dto.SubscriptionResponse {
	resp, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: customerID,
		PlanID:     planID,
		Quantity:   decimal.NewFromInt(1),
		AutoRenew:  true,
	})
	s.Require().NoError(err)
	return resp
}

func (s *SubscriptionServiceSuite) TestCreateSubscription_ActiveWithoutTrial() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")

	resp := s.createSubscription("plan-1", "cust-1")

	s.Equal(types.SubscriptionStatusActive, resp.SubscriptionStatus)
	s.Nil(resp.TrialEndsAt)
	s.True(resp.CurrentPeriodStart.Equal(s.GetClock().Now()))
	s.True(resp.CurrentPeriodEnd.Equal(s.GetClock().Now().AddDate(0, 1, 0)))
	s.True(resp.NextBillingDate.Equal(resp.CurrentPeriodEnd))

	// Pricing snapshot: 499 + 18% GST intra-state.
	s.Equal("499.00", resp.Subtotal.StringFixed(2))
	s.Equal("89.82", resp.TaxAmount.StringFixed(2))
	s.Equal("588.82", resp.TotalAmount.StringFixed(2))

	history, err := s.service.ListHistory(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Require().Len(history, 1)
	s.Equal(types.SubscriptionHistoryEventCreated, history[0].EventType)
	s.Equal(types.SubscriptionStatusActive, history[0].ToStatus)
}

func (s *SubscriptionServiceSuite) TestCreateSubscription_TrialPlan() {
	s.seedPlan("plan-trial", 14)
	s.seedCustomer("cust-1")

	resp := s.createSubscription("plan-trial", "cust-1")

	s.Equal(types.SubscriptionStatusTrial, resp.SubscriptionStatus)
	s.Require().NotNil(resp.TrialEndsAt)
	s.True(resp.TrialEndsAt.Equal(s.GetClock().Now().AddDate(0, 0, 14)))
}

func (s *SubscriptionServiceSuite) TestCreateSubscription_DuplicatePlanRejected() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	s.createSubscription("plan-1", "cust-1")

	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		CustomerID: "cust-1",
		PlanID:     "plan-1",
		Quantity:   decimal.NewFromInt(1),
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestCreateSubscription_AllowedAfterCancellation() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	first := s.createSubscription("plan-1", "cust-1")

	_, err := s.service.CancelSubscription(s.GetContext(), first.ID, nil)
	s.NoError(err)

	second := s.createSubscription("plan-1", "cust-1")
	s.NotEqual(first.ID, second.ID)
}

func (s *SubscriptionServiceSuite) TestPauseAndResume() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-1", "cust-1")

	paused, err := s.service.PauseSubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPaused, paused.SubscriptionStatus)

	// A paused subscription cannot pause again.
	_, err = s.service.PauseSubscription(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	resumed, err := s.service.ResumeSubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, resumed.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestResume_RequiresPaused() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-1", "cust-1")

	_, err := s.service.ResumeSubscription(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestCancelImmediate() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-1", "cust-1")

	cancelled, err := s.service.CancelSubscription(s.GetContext(), sub.ID, nil)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, cancelled.SubscriptionStatus)
	s.Require().NotNil(cancelled.CancelledAt)
	s.True(cancelled.CancelledAt.Equal(s.GetClock().Now()))

	// Terminal states reject every further operation.
	_, err = s.service.CancelSubscription(s.GetContext(), sub.ID, nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	_, err = s.service.PauseSubscription(s.GetContext(), sub.ID)
	s.Error(err)
}

func (s *SubscriptionServiceSuite) TestCancelAtPeriodEnd_DefersTransition() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-1", "cust-1")

	resp, err := s.service.CancelSubscription(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{CancelAtPeriodEnd: true})
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, resp.SubscriptionStatus)
	s.True(resp.CancelAtPeriodEnd)
	s.Nil(resp.CancelledAt)

	// Before the period boundary the finalizer is a no-op.
	s.NoError(s.service.FinalizePeriodEndCancellation(s.GetContext(), sub.ID))
	current, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, current.SubscriptionStatus)

	// Past the boundary it fires the deferred cancellation.
	s.GetClock().Advance(32 * 24 * time.Hour)
	s.NoError(s.service.FinalizePeriodEndCancellation(s.GetContext(), sub.ID))
	current, err = s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, current.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestCancelAtPeriodEnd_RejectedWhilePaused() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-1", "cust-1")

	_, err := s.service.PauseSubscription(s.GetContext(), sub.ID)
	s.NoError(err)

	// Paused has no cancelled transition, so the deferral must be refused
	// up front rather than stranding the flag.
	_, err = s.service.CancelSubscription(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{CancelAtPeriodEnd: true})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	current, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.False(current.CancelAtPeriodEnd)
}

func (s *SubscriptionServiceSuite) TestPause_RejectedAfterScheduledCancellation() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-1", "cust-1")

	_, err := s.service.CancelSubscription(s.GetContext(), sub.ID, &dto.CancelSubscriptionRequest{CancelAtPeriodEnd: true})
	s.NoError(err)

	_, err = s.service.PauseSubscription(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// The scheduled cancellation still fires at the boundary.
	s.GetClock().Advance(32 * 24 * time.Hour)
	s.NoError(s.service.FinalizePeriodEndCancellation(s.GetContext(), sub.ID))
	current, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, current.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestChangePlan() {
	s.seedPlan("plan-basic", 0)
	s.seedCustomer("cust-1")
	premium := &plan.Plan{
		ID:              "plan-premium",
		Name:            "Premium Plan",
		UnitAmount:      decimal.NewFromInt(999),
		Currency:        "INR",
		BillingCycle:    types.BillingCycleMonthly,
		BillingInterval: 1,
		Jurisdiction:    "KA",
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PlanRepo.Create(s.GetContext(), premium))

	sub := s.createSubscription("plan-basic", "cust-1")
	periodEnd := sub.CurrentPeriodEnd

	changed, err := s.service.ChangePlan(s.GetContext(), sub.ID, &dto.ChangePlanRequest{PlanID: "plan-premium"})
	s.NoError(err)
	s.Equal("plan-premium", changed.PlanID)
	s.Equal("999", changed.UnitAmount.String())
	s.Equal(types.SubscriptionStatusActive, changed.SubscriptionStatus)
	// The billing anchor does not move on plan change.
	s.True(changed.CurrentPeriodEnd.Equal(periodEnd))

	history, err := s.service.ListHistory(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Require().Len(history, 2)
	s.Equal(types.SubscriptionHistoryEventPlanChanged, history[1].EventType)
}

func (s *SubscriptionServiceSuite) TestChangePlan_CurrencyMismatch() {
	s.seedPlan("plan-basic", 0)
	s.seedCustomer("cust-1")
	usd := &plan.Plan{
		ID:              "plan-usd",
		Name:            "USD Plan",
		UnitAmount:      decimal.NewFromInt(10),
		Currency:        "USD",
		BillingCycle:    types.BillingCycleMonthly,
		BillingInterval: 1,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PlanRepo.Create(s.GetContext(), usd))

	sub := s.createSubscription("plan-basic", "cust-1")

	_, err := s.service.ChangePlan(s.GetContext(), sub.ID, &dto.ChangePlanRequest{PlanID: "plan-usd"})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestRenewSubscription_GeneratesInvoiceAndAdvancesPeriod() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-1", "cust-1")
	firstPeriodStart := sub.CurrentPeriodStart
	firstPeriodEnd := sub.CurrentPeriodEnd

	invResp, err := s.service.RenewSubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Require().NotNil(invResp)

	s.Require().NotNil(invResp.BillingPeriodStart)
	s.True(invResp.BillingPeriodStart.Equal(firstPeriodStart))
	s.Equal("588.82", invResp.TotalAmount.StringFixed(2))
	s.Equal(types.InvoiceStatusDraft, invResp.InvoiceStatus)

	renewed, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.True(renewed.CurrentPeriodStart.Equal(firstPeriodEnd))
	s.True(renewed.CurrentPeriodEnd.Equal(firstPeriodEnd.AddDate(0, 1, 0)))
	s.True(renewed.NextBillingDate.Equal(renewed.CurrentPeriodEnd))
}

func (s *SubscriptionServiceSuite) TestRenewSubscription_IdempotentPerPeriod() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-1", "cust-1")

	first, err := s.service.RenewSubscription(s.GetContext(), sub.ID)
	s.NoError(err)

	// Repair path: reset the period back as if the advance was lost, then
	// renew again. The existing invoice is returned instead of a second one.
	stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	stored.CurrentPeriodStart = sub.CurrentPeriodStart
	stored.CurrentPeriodEnd = sub.CurrentPeriodEnd
	stored.NextBillingDate = sub.NextBillingDate
	s.NoError(s.GetStores().SubscriptionRepo.UpdateWithHistory(s.GetContext(), stored, nil))

	second, err := s.service.RenewSubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	// The period advance was repaired.
	repaired, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.True(repaired.CurrentPeriodStart.Equal(sub.CurrentPeriodEnd))
}

func (s *SubscriptionServiceSuite) TestRenewSubscription_TrialConvertsToActive() {
	s.seedPlan("plan-trial", 14)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-trial", "cust-1")
	s.Equal(types.SubscriptionStatusTrial, sub.SubscriptionStatus)

	_, err := s.service.RenewSubscription(s.GetContext(), sub.ID)
	s.NoError(err)

	converted, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, converted.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestRenewSubscription_RejectsNonRenewableStatuses() {
	s.seedPlan("plan-1", 0)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-1", "cust-1")

	_, err := s.service.PauseSubscription(s.GetContext(), sub.ID)
	s.NoError(err)

	_, err = s.service.RenewSubscription(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestExpireTrial() {
	s.seedPlan("plan-trial", 14)
	s.seedCustomer("cust-1")
	sub := s.createSubscription("plan-trial", "cust-1")

	s.NoError(s.service.ExpireTrial(s.GetContext(), sub.ID))

	expired, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusExpired, expired.SubscriptionStatus)

	// Expired is terminal.
	err = s.service.ExpireTrial(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestPlanTaxRateOverride() {
	override := &plan.Plan{
		ID:              "plan-5pct",
		Name:            "Concession Plan",
		UnitAmount:      decimal.NewFromInt(100),
		Currency:        "INR",
		BillingCycle:    types.BillingCycleMonthly,
		BillingInterval: 1,
		TaxRate:         lo.ToPtr(decimal.NewFromInt(5)),
		Jurisdiction:    "KA",
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PlanRepo.Create(s.GetContext(), override))
	s.seedCustomer("cust-1")

	resp := s.createSubscription("plan-5pct", "cust-1")
	s.Equal("5.00", resp.TaxAmount.StringFixed(2))
	s.Equal("105.00", resp.TotalAmount.StringFixed(2))
}
