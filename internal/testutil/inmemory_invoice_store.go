package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	mu        sync.Mutex
	sequences map[string]int
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		sequences:     make(map[string]int),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	copied := *inv
	copied.Metadata = lo.Assign(types.Metadata{}, inv.Metadata)
	if inv.SubscriptionID != nil {
		id := *inv.SubscriptionID
		copied.SubscriptionID = &id
	}
	if inv.BillingPeriodStart != nil {
		t := *inv.BillingPeriodStart
		copied.BillingPeriodStart = &t
	}
	if inv.BillingPeriodEnd != nil {
		t := *inv.BillingPeriodEnd
		copied.BillingPeriodEnd = &t
	}
	if inv.IdempotencyKey != nil {
		k := *inv.IdempotencyKey
		copied.IdempotencyKey = &k
	}
	copied.LineItems = lo.Map(inv.LineItems, func(li *invoice.LineItem, _ int) *invoice.LineItem {
		c := *li
		return &c
	})
	copied.TaxBreakdown = lo.Map(inv.TaxBreakdown, func(tx *invoice.TaxApplied, _ int) *invoice.TaxApplied {
		c := *tx
		return &c
	})
	return &copied
}

func (s *InMemoryInvoiceStore) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	if inv.SubscriptionID != nil && inv.BillingPeriodStart != nil {
		existing, err := s.GetBySubscriptionAndPeriod(ctx, *inv.SubscriptionID, *inv.BillingPeriodStart)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			return ierr.NewError("invoice already exists for billing period").
				WithHint("An invoice for this subscription and period was already generated").
				WithReportableDetails(map[string]interface{}{
					"subscription_id":      *inv.SubscriptionID,
					"billing_period_start": inv.BillingPeriodStart,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	return s.InMemoryStore.Update(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) GetBySubscriptionAndPeriod(ctx context.Context, subscriptionID string, periodStart time.Time) (*invoice.Invoice, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, inv *invoice.Invoice) bool {
		return inv.SubscriptionID != nil &&
			*inv.SubscriptionID == subscriptionID &&
			inv.BillingPeriodStart != nil &&
			inv.BillingPeriodStart.Equal(periodStart) &&
			inv.InvoiceStatus != types.InvoiceStatusVoid
	})
	if len(matches) == 0 {
		return nil, ierr.NewError("invoice not found").
			WithHint("No invoice exists for this subscription and billing period").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(matches[0]), nil
}

func (s *InMemoryInvoiceStore) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]*invoice.Invoice, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, inv *invoice.Invoice) bool {
		return inv.InvoiceStatus == types.InvoiceStatusSent && inv.DueDate.Before(asOf)
	})
	return lo.Map(matches, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

func (s *InMemoryInvoiceStore) NextSequence(ctx context.Context, tenantID, yearMonth string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%s:%s", tenantID, yearMonth)
	s.sequences[key]++
	return s.sequences[key], nil
}
