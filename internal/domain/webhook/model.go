package webhook

import (
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
)

// Registration is a tenant-configured webhook endpoint. Created and edited
// by tenant admins; read-only to the dispatcher.
type Registration struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Secret string `json:"secret"`

	// EventTypes is the set of events this endpoint subscribes to.
	// Validated against the event catalog at create/update time.
	EventTypes []types.WebhookEventType `json:"event_types"`

	RetryCount     int  `json:"retry_count"`
	TimeoutSeconds int  `json:"timeout_seconds"`
	Enabled        bool `json:"enabled"`

	types.BaseModel
}

// Validate checks the registration against the event catalog and basic
// endpoint requirements.
func (r *Registration) Validate() error {
	if r.URL == "" {
		return ierr.NewError("webhook url is required").
			WithHint("Webhook registrations must have a target URL").
			Mark(ierr.ErrValidation)
	}
	if r.Secret == "" {
		return ierr.NewError("webhook secret is required").
			WithHint("Webhook registrations must have a signing secret").
			Mark(ierr.ErrValidation)
	}
	if len(r.EventTypes) == 0 {
		return ierr.NewError("webhook must subscribe to at least one event type").
			WithHint("Select one or more event types from the event catalog").
			Mark(ierr.ErrValidation)
	}
	for _, et := range r.EventTypes {
		if err := et.Validate(); err != nil {
			return err
		}
	}
	if r.RetryCount < 0 {
		return ierr.NewError("retry count cannot be negative").
			WithHint("Retry count must be 0 or greater").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscribesTo reports whether the registration subscribes to the event.
func (r *Registration) SubscribesTo(eventType types.WebhookEventType) bool {
	for _, et := range r.EventTypes {
		if et == eventType {
			return true
		}
	}
	return false
}
