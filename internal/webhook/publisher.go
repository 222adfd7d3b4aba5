package webhook

import (
	"context"
	"encoding/json"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/config"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/pubsub"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher hands fired domain events to the dispatcher. Publishing happens
// after the business transaction commits and must never block or fail the
// caller's flow; services log publish errors and continue.
type Publisher interface {
	PublishWebhook(ctx context.Context, event *types.WebhookEvent) error
	Close() error
}

type publisher struct {
	pubSub pubsub.Publisher
	topic  string
	cfg    *config.Configuration
	logger *logger.Logger
}

// NewPublisher creates a webhook event publisher over the pub/sub channel.
func NewPublisher(pubSub pubsub.Publisher, cfg *config.Configuration, logger *logger.Logger) Publisher {
	return &publisher{
		pubSub: pubSub,
		topic:  cfg.Webhook.Topic,
		cfg:    cfg,
		logger: logger,
	}
}

func (p *publisher) PublishWebhook(ctx context.Context, event *types.WebhookEvent) error {
	if !p.cfg.Webhook.Enabled {
		p.logger.Debugw("webhook publishing disabled, skipping event",
			"event_name", event.EventName,
			"tenant_id", event.TenantID,
		)
		return nil
	}

	if err := event.EventName.Validate(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT)
	}
	if event.TenantID == "" {
		event.TenantID = types.GetTenantID(ctx)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal webhook event").
			Mark(ierr.ErrInternal)
	}

	msg := message.NewMessage(event.ID, body)
	if err := p.pubSub.Publish(ctx, p.topic, msg); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish webhook event").
			WithReportableDetails(map[string]interface{}{
				"event_name": event.EventName,
				"event_id":   event.ID,
			}).
			Mark(ierr.ErrInternal)
	}

	p.logger.Debugw("published webhook event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"tenant_id", event.TenantID,
	)
	return nil
}

func (p *publisher) Close() error {
	return nil
}
