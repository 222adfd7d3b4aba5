package types

import ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"

// SubscriptionStatus is the lifecycle status of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusPastDue,
		SubscriptionStatusPaused, SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return nil
	default:
		return ierr.NewError("invalid subscription status").
			WithHint("Unknown subscription status").
			WithReportableDetails(map[string]interface{}{
				"status": string(s),
			}).
			Mark(ierr.ErrValidation)
	}
}

// IsTerminal reports whether the status permits no outbound transitions.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// SubscriptionHistoryEvent identifies a lifecycle transition in the
// append-only subscription history.
type SubscriptionHistoryEvent string

const (
	SubscriptionHistoryEventCreated         SubscriptionHistoryEvent = "created"
	SubscriptionHistoryEventActivated       SubscriptionHistoryEvent = "activated"
	SubscriptionHistoryEventRenewed         SubscriptionHistoryEvent = "renewed"
	SubscriptionHistoryEventPaused          SubscriptionHistoryEvent = "paused"
	SubscriptionHistoryEventResumed         SubscriptionHistoryEvent = "resumed"
	SubscriptionHistoryEventCancelScheduled SubscriptionHistoryEvent = "cancel_scheduled"
	SubscriptionHistoryEventCancelled       SubscriptionHistoryEvent = "cancelled"
	SubscriptionHistoryEventExpired         SubscriptionHistoryEvent = "expired"
	SubscriptionHistoryEventPlanChanged     SubscriptionHistoryEvent = "plan_changed"
)
