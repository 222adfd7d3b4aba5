package testutil

import (
	"context"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/webhook"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/samber/lo"
)

// InMemoryWebhookRegistrationStore implements webhook.RegistrationRepository
type InMemoryWebhookRegistrationStore struct {
	*InMemoryStore[*webhook.Registration]
}

// NewInMemoryWebhookRegistrationStore creates a new in-memory registration store
func NewInMemoryWebhookRegistrationStore() *InMemoryWebhookRegistrationStore {
	return &InMemoryWebhookRegistrationStore{
		InMemoryStore: NewInMemoryStore[*webhook.Registration](),
	}
}

func copyRegistration(reg *webhook.Registration) *webhook.Registration {
	if reg == nil {
		return nil
	}
	copied := *reg
	copied.EventTypes = append([]types.WebhookEventType(nil), reg.EventTypes...)
	return &copied
}

func (s *InMemoryWebhookRegistrationStore) Create(ctx context.Context, reg *webhook.Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, reg.ID, copyRegistration(reg))
}

func (s *InMemoryWebhookRegistrationStore) Get(ctx context.Context, id string) (*webhook.Registration, error) {
	reg, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyRegistration(reg), nil
}

func (s *InMemoryWebhookRegistrationStore) Update(ctx context.Context, reg *webhook.Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, reg.ID, copyRegistration(reg))
}

func (s *InMemoryWebhookRegistrationStore) ListActiveByEvent(ctx context.Context, tenantID string, eventType types.WebhookEventType) ([]*webhook.Registration, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, reg *webhook.Registration) bool {
		return reg.TenantID == tenantID && reg.Enabled && reg.SubscribesTo(eventType)
	})
	return lo.Map(matches, func(reg *webhook.Registration, _ int) *webhook.Registration {
		return copyRegistration(reg)
	}), nil
}

// InMemoryWebhookDeliveryStore implements webhook.DeliveryRepository
type InMemoryWebhookDeliveryStore struct {
	*InMemoryStore[*webhook.DeliveryLog]
}

// NewInMemoryWebhookDeliveryStore creates a new in-memory delivery-log store
func NewInMemoryWebhookDeliveryStore() *InMemoryWebhookDeliveryStore {
	return &InMemoryWebhookDeliveryStore{
		InMemoryStore: NewInMemoryStore[*webhook.DeliveryLog](),
	}
}

func copyDeliveryLog(log *webhook.DeliveryLog) *webhook.DeliveryLog {
	if log == nil {
		return nil
	}
	copied := *log
	if log.NextRetryAt != nil {
		t := *log.NextRetryAt
		copied.NextRetryAt = &t
	}
	if log.DeliveredAt != nil {
		t := *log.DeliveredAt
		copied.DeliveredAt = &t
	}
	if log.ResponseStatusCode != nil {
		c := *log.ResponseStatusCode
		copied.ResponseStatusCode = &c
	}
	if log.ResponseBody != nil {
		b := *log.ResponseBody
		copied.ResponseBody = &b
	}
	if log.LastError != nil {
		e := *log.LastError
		copied.LastError = &e
	}
	copied.Payload = append([]byte(nil), log.Payload...)
	return &copied
}

func (s *InMemoryWebhookDeliveryStore) Create(ctx context.Context, log *webhook.DeliveryLog) error {
	return s.InMemoryStore.Create(ctx, log.ID, copyDeliveryLog(log))
}

func (s *InMemoryWebhookDeliveryStore) Update(ctx context.Context, log *webhook.DeliveryLog) error {
	return s.InMemoryStore.Update(ctx, log.ID, copyDeliveryLog(log))
}

func (s *InMemoryWebhookDeliveryStore) Get(ctx context.Context, id string) (*webhook.DeliveryLog, error) {
	log, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyDeliveryLog(log), nil
}

func (s *InMemoryWebhookDeliveryStore) ListDueForRetry(ctx context.Context, asOf time.Time) ([]*webhook.DeliveryLog, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, log *webhook.DeliveryLog) bool {
		return log.DeliveryStatus == types.WebhookDeliveryStatusRetrying &&
			log.NextRetryAt != nil &&
			!log.NextRetryAt.After(asOf)
	})
	return lo.Map(matches, func(log *webhook.DeliveryLog, _ int) *webhook.DeliveryLog {
		return copyDeliveryLog(log)
	}), nil
}
