package customer

import "context"

// Repository defines the interface for customer persistence operations
type Repository interface {
	// Create creates a new customer
	Create(ctx context.Context, customer *Customer) error

	// Get retrieves a customer by its tenant-scoped id
	Get(ctx context.Context, id string) (*Customer, error)
}
