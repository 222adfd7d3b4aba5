package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/subscription"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]

	mu      sync.RWMutex
	history []*subscription.History

	// renewalListErr, when set, is returned by ListDueForRenewal so sweep
	// tests can exercise listing failures.
	renewalListErr error
}

// SetRenewalListError makes subsequent ListDueForRenewal calls fail with err.
// Pass nil to restore normal behaviour.
func (s *InMemorySubscriptionStore) SetRenewalListError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renewalListErr = err
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
		history:       make([]*subscription.History, 0),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	copied.Metadata = lo.Assign(types.Metadata{}, sub.Metadata)
	if sub.TrialEndsAt != nil {
		t := *sub.TrialEndsAt
		copied.TrialEndsAt = &t
	}
	if sub.CancelledAt != nil {
		t := *sub.CancelledAt
		copied.CancelledAt = &t
	}
	return &copied
}

func copyHistory(h *subscription.History) *subscription.History {
	if h == nil {
		return nil
	}
	copied := *h
	return &copied
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription, hist *subscription.History) error {
	if err := s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub)); err != nil {
		return err
	}
	s.appendHistory(hist)
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) UpdateWithHistory(ctx context.Context, sub *subscription.Subscription, hist *subscription.History) error {
	if err := s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub)); err != nil {
		return err
	}
	s.appendHistory(hist)
	return nil
}

func (s *InMemorySubscriptionStore) ExistsActiveForPlan(ctx context.Context, customerID, planID string) (bool, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.TenantID == types.GetTenantID(ctx) &&
			sub.CustomerID == customerID &&
			sub.PlanID == planID &&
			!sub.IsTerminal()
	})
	return len(matches) > 0, nil
}

func (s *InMemorySubscriptionStore) ListDueForRenewal(ctx context.Context, cutoff time.Time) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	listErr := s.renewalListErr
	s.mu.RUnlock()
	if listErr != nil {
		return nil, listErr
	}

	matches := s.InMemoryStore.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.AutoRenew &&
			sub.SubscriptionStatus == types.SubscriptionStatusActive &&
			!sub.NextBillingDate.After(cutoff)
	})
	return lo.Map(matches, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) ListExpiredTrials(ctx context.Context, asOf time.Time) ([]*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.SubscriptionStatus == types.SubscriptionStatusTrial &&
			sub.TrialEndsAt != nil &&
			sub.TrialEndsAt.Before(asOf)
	})
	return lo.Map(matches, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) ListDueForCancellation(ctx context.Context, asOf time.Time) ([]*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.CancelAtPeriodEnd &&
			!sub.IsTerminal() &&
			!sub.CurrentPeriodEnd.After(asOf)
	})
	return lo.Map(matches, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) ListHistory(ctx context.Context, subscriptionID string) ([]*subscription.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.History, 0)
	for _, h := range s.history {
		if h.SubscriptionID == subscriptionID {
			result = append(result, copyHistory(h))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func (s *InMemorySubscriptionStore) appendHistory(hist *subscription.History) {
	if hist == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, copyHistory(hist))
}
