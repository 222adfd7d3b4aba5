package customer

import "github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"

// Customer represents a billable customer of a tenant.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`

	// Jurisdiction is the customer's tax jurisdiction (state code). An empty
	// value degrades tax splitting to the inter-state path.
	Jurisdiction string `json:"jurisdiction,omitempty"`

	Metadata types.Metadata `json:"metadata,omitempty"`

	types.BaseModel
}
