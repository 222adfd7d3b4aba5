package plan

import "context"

// Repository defines the interface for plan persistence operations
type Repository interface {
	// Create creates a new plan
	Create(ctx context.Context, plan *Plan) error

	// Get retrieves a plan by its tenant-scoped id
	Get(ctx context.Context, id string) (*Plan, error)

	// List retrieves all plans for the tenant in context
	List(ctx context.Context) ([]*Plan, error)
}
