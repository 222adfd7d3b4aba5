// Package scheduler drives the time-based billing sweeps: renewals, trial
// expiry, overdue marking and webhook retries. The scheduler is an explicit
// component with start/stop lifecycle calls and an injectable clock so
// sweeps can be driven deterministically in tests.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/clock"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/config"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/subscription"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/service"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook"
	"github.com/sourcegraph/conc/pool"
)

type SweepName string

const (
	SweepRenewals     SweepName = "renewals"
	SweepTrialExpiry  SweepName = "trial_expiry"
	SweepOverdue      SweepName = "overdue"
	SweepWebhookRetry SweepName = "webhook_retry"
)

// ItemError records one failed item of a sweep.
type ItemError struct {
	ID  string
	Err error
}

// SweepResult is the aggregated outcome of one sweep run. Sweeps never
// raise on individual items; failures land here and in the logs.
type SweepResult struct {
	Sweep     SweepName
	Processed int
	Succeeded int
	Failed    int
	Errors    []ItemError
}

// sweepItem is one unit of work inside a sweep, executed under the owning
// tenant's context.
type sweepItem struct {
	TenantID string
	ID       string
	Run      func(ctx context.Context) error
}

// Scheduler owns the periodic background sweeps for the process lifetime.
type Scheduler struct {
	subRepo             subscription.Repository
	invoiceRepo         invoice.Repository
	subscriptionService *service.SubscriptionService
	invoiceService      *service.InvoiceService
	webhookService      *webhook.Service
	cfg                 *config.Configuration
	logger              *logger.Logger
	clock               clock.Clock

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(
	subRepo subscription.Repository,
	invoiceRepo invoice.Repository,
	subscriptionService *service.SubscriptionService,
	invoiceService *service.InvoiceService,
	webhookService *webhook.Service,
	cfg *config.Configuration,
	log *logger.Logger,
	clk clock.Clock,
) *Scheduler {
	return &Scheduler{
		subRepo:             subRepo,
		invoiceRepo:         invoiceRepo,
		subscriptionService: subscriptionService,
		invoiceService:      invoiceService,
		webhookService:      webhookService,
		cfg:                 cfg,
		logger:              log,
		clock:               clk,
	}
}

// Start launches the sweep loops. They run until Stop or context
// cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.startLoop(runCtx, s.cfg.Scheduler.RenewalInterval, func(ctx context.Context) {
		s.logResult(s.RunRenewalSweep(ctx))
	})
	s.startLoop(runCtx, s.cfg.Scheduler.TrialExpiryInterval, func(ctx context.Context) {
		s.logResult(s.RunTrialExpirySweep(ctx))
	})
	s.startLoop(runCtx, s.cfg.Scheduler.OverdueInterval, func(ctx context.Context) {
		s.logResult(s.RunOverdueSweep(ctx))
	})
	s.startLoop(runCtx, s.cfg.Scheduler.WebhookRetryInterval, func(ctx context.Context) {
		if _, err := s.webhookService.RetryPending(ctx); err != nil {
			s.logger.Errorw("webhook retry sweep failed", "error", err)
		}
	})

	s.logger.Infow("scheduler started",
		"renewal_interval", s.cfg.Scheduler.RenewalInterval,
		"trial_expiry_interval", s.cfg.Scheduler.TrialExpiryInterval,
		"overdue_interval", s.cfg.Scheduler.OverdueInterval,
		"webhook_retry_interval", s.cfg.Scheduler.WebhookRetryInterval,
	)
}

// Stop halts all sweep loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Infow("scheduler stopped")
}

func (s *Scheduler) startLoop(ctx context.Context, interval time.Duration, run func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(interval):
				run(ctx)
			}
		}
	}()
}

// RunRenewalSweep finalizes period-end cancellations and renews due
// subscriptions. Candidates are selected up to the configured look-ahead so
// invoices are issued ahead of the billing date.
func (s *Scheduler) RunRenewalSweep(ctx context.Context) SweepResult {
	now := s.clock.Now()
	items := make([]sweepItem, 0)

	// Deferred cancellations fire at the period boundary, before any
	// renewal could re-bill the subscription.
	dueCancels, err := s.subRepo.ListDueForCancellation(ctx, now)
	if err != nil {
		s.logger.Errorw("failed to list subscriptions due for cancellation", "error", err)
	} else {
		for _, sub := range dueCancels {
			sub := sub
			items = append(items, sweepItem{
				TenantID: sub.TenantID,
				ID:       sub.ID,
				Run: func(ctx context.Context) error {
					return s.subscriptionService.FinalizePeriodEndCancellation(ctx, sub.ID)
				},
			})
		}
	}

	cutoff := now.Add(time.Duration(s.cfg.Billing.RenewalLookaheadHours) * time.Hour)
	due, err := s.subRepo.ListDueForRenewal(ctx, cutoff)
	if err != nil {
		// The cancellation items are already queued; run them so a
		// renewal listing failure cannot strand due cancellations.
		s.logger.Errorw("failed to list subscriptions due for renewal", "error", err)
		return s.processItems(ctx, SweepRenewals, items)
	}
	for _, sub := range due {
		if sub.CancelAtPeriodEnd {
			continue
		}
		sub := sub
		items = append(items, sweepItem{
			TenantID: sub.TenantID,
			ID:       sub.ID,
			Run: func(ctx context.Context) error {
				_, err := s.subscriptionService.RenewSubscription(ctx, sub.ID)
				return err
			},
		})
	}

	return s.processItems(ctx, SweepRenewals, items)
}

// RunTrialExpirySweep expires trial subscriptions whose trial window has
// elapsed.
func (s *Scheduler) RunTrialExpirySweep(ctx context.Context) SweepResult {
	expired, err := s.subRepo.ListExpiredTrials(ctx, s.clock.Now())
	if err != nil {
		s.logger.Errorw("failed to list expired trials", "error", err)
		return SweepResult{Sweep: SweepTrialExpiry}
	}

	items := make([]sweepItem, 0, len(expired))
	for _, sub := range expired {
		sub := sub
		items = append(items, sweepItem{
			TenantID: sub.TenantID,
			ID:       sub.ID,
			Run: func(ctx context.Context) error {
				return s.subscriptionService.ExpireTrial(ctx, sub.ID)
			},
		})
	}

	return s.processItems(ctx, SweepTrialExpiry, items)
}

// RunOverdueSweep marks sent invoices past their due date as overdue.
func (s *Scheduler) RunOverdueSweep(ctx context.Context) SweepResult {
	candidates, err := s.invoiceRepo.ListOverdueCandidates(ctx, s.clock.Now())
	if err != nil {
		s.logger.Errorw("failed to list overdue candidates", "error", err)
		return SweepResult{Sweep: SweepOverdue}
	}

	items := make([]sweepItem, 0, len(candidates))
	for _, inv := range candidates {
		inv := inv
		items = append(items, sweepItem{
			TenantID: inv.TenantID,
			ID:       inv.ID,
			Run: func(ctx context.Context) error {
				return s.invoiceService.MarkOverdue(ctx, inv.ID)
			},
		})
	}

	return s.processItems(ctx, SweepOverdue, items)
}

// processItems runs the sweep's items on a bounded worker pool with
// per-item failure isolation: one item's error or panic never aborts the
// batch.
func (s *Scheduler) processItems(ctx context.Context, sweep SweepName, items []sweepItem) SweepResult {
	result := SweepResult{Sweep: sweep, Processed: len(items)}
	if len(items) == 0 {
		return result
	}

	workers := s.cfg.Scheduler.BatchWorkers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(workers)
	for _, item := range items {
		item := item
		p.Go(func() {
			err := s.runItem(ctx, item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, ItemError{ID: item.ID, Err: err})
			} else {
				result.Succeeded++
			}
		})
	}
	p.Wait()

	return result
}

// runItem executes one sweep item under its tenant's context, converting
// panics into errors so the pool never re-panics.
func (s *Scheduler) runItem(ctx context.Context, item sweepItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing sweep item %s: %v", item.ID, r)
		}
	}()

	// Each item gets its own request id so its log lines correlate.
	itemCtx := types.SetRequestID(types.SetTenantID(ctx, item.TenantID), types.GenerateUUID())
	if err := item.Run(itemCtx); err != nil {
		s.logger.WithContext(itemCtx).Errorw("sweep item failed",
			"item_id", item.ID,
			"error", err,
		)
		return err
	}
	return nil
}

func (s *Scheduler) logResult(result SweepResult) {
	s.logger.Infow("sweep completed",
		"sweep", result.Sweep,
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
}
