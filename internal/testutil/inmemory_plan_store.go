package testutil

import (
	"context"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/plan"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/samber/lo"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

// NewInMemoryPlanStore creates a new in-memory plan store
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

func copyPlan(p *plan.Plan) *plan.Plan {
	if p == nil {
		return nil
	}
	copied := *p
	if p.TaxRate != nil {
		copied.TaxRate = lo.ToPtr(*p.TaxRate)
	}
	copied.Metadata = lo.Assign(types.Metadata{}, p.Metadata)
	return &copied
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	return s.InMemoryStore.Create(ctx, p.ID, copyPlan(p))
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyPlan(p), nil
}

func (s *InMemoryPlanStore) List(ctx context.Context) ([]*plan.Plan, error) {
	tenantID := types.GetTenantID(ctx)
	plans := s.InMemoryStore.List(ctx, func(ctx context.Context, p *plan.Plan) bool {
		return tenantID == "" || p.TenantID == tenantID
	})
	result := make([]*plan.Plan, 0, len(plans))
	for _, p := range plans {
		result = append(result, copyPlan(p))
	}
	return result, nil
}
