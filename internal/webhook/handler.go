package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/clock"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/config"
	webhookDomain "github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/webhook"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/pubsub"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/payload"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/samber/lo"
)

// WirePayload is the JSON body delivered to webhook endpoints.
type WirePayload struct {
	ID      string          `json:"id"`
	Event   string          `json:"event"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// Service consumes fired events from the pub/sub channel, fans them out to
// subscribed registrations, and owns each delivery-log row through its
// pending / retrying / delivered / failed lifecycle.
type Service struct {
	regRepo      webhookDomain.RegistrationRepository
	deliveryRepo webhookDomain.DeliveryRepository
	registry     *payload.Registry
	subscriber   pubsub.Subscriber
	client       *retryablehttp.Client
	cfg          *config.Configuration
	logger       *logger.Logger
	clock        clock.Clock

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the webhook dispatcher service.
func NewService(
	regRepo webhookDomain.RegistrationRepository,
	deliveryRepo webhookDomain.DeliveryRepository,
	registry *payload.Registry,
	subscriber pubsub.Subscriber,
	cfg *config.Configuration,
	log *logger.Logger,
	clk clock.Clock,
) *Service {
	client := retryablehttp.NewClient()
	// The delivery log owns the retry policy; each call here is exactly one
	// HTTP attempt.
	client.RetryMax = 0
	client.Logger = log.GetRetryableHTTPLogger()

	return &Service{
		regRepo:      regRepo,
		deliveryRepo: deliveryRepo,
		registry:     registry,
		subscriber:   subscriber,
		client:       client,
		cfg:          cfg,
		logger:       log,
		clock:        clk,
	}
}

// Start begins consuming fired events. It returns once the consumer
// goroutine is running.
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	messages, err := s.subscriber.Subscribe(runCtx, s.cfg.Webhook.Topic)
	if err != nil {
		cancel()
		return ierr.WithError(err).
			WithHint("Failed to subscribe to webhook event topic").
			Mark(ierr.ErrInternal)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for msg := range messages {
			s.processMessage(runCtx, msg.Payload)
			msg.Ack()
		}
	}()

	s.logger.Infow("webhook dispatcher started", "topic", s.cfg.Webhook.Topic)
	return nil
}

// Stop halts event consumption and waits for in-flight work to finish.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Service) processMessage(ctx context.Context, body []byte) {
	var event types.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Errorw("failed to unmarshal webhook event, dropping", "error", err)
		return
	}

	ctx = types.SetTenantID(ctx, event.TenantID)
	if err := s.FanOut(ctx, &event); err != nil {
		s.logger.WithContext(ctx).Errorw("webhook fan-out failed",
			"event_id", event.ID,
			"event_name", event.EventName,
			"error", err,
		)
	}
}

// FanOut delivers a fired event to every enabled registration subscribed to
// its type. Each target gets its own delivery-log row; a failing endpoint
// only affects its own row.
func (s *Service) FanOut(ctx context.Context, event *types.WebhookEvent) error {
	regs, err := s.regRepo.ListActiveByEvent(ctx, event.TenantID, event.EventName)
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		return nil
	}

	builder, err := s.registry.GetBuilder(event.EventName)
	if err != nil {
		return err
	}

	data, err := builder.BuildPayload(ctx, event.EventName, event.Payload)
	if err != nil {
		return err
	}

	for _, reg := range regs {
		eventID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT)
		wireBody, err := json.Marshal(WirePayload{
			ID:      eventID,
			Event:   string(event.EventName),
			Created: s.clock.Now().Unix(),
			Data:    data,
		})
		if err != nil {
			s.logger.WithContext(ctx).Errorw("failed to marshal wire payload", "error", err)
			continue
		}

		deliveryLog := &webhookDomain.DeliveryLog{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_DELIVERY),
			WebhookID:      reg.ID,
			EventType:      event.EventName,
			EventID:        eventID,
			DeliveryStatus: types.WebhookDeliveryStatusPending,
			Payload:        wireBody,
			BaseModel:      types.GetDefaultBaseModel(ctx),
		}
		if err := s.deliveryRepo.Create(ctx, deliveryLog); err != nil {
			s.logger.WithContext(ctx).Errorw("failed to create delivery log",
				"webhook_id", reg.ID,
				"error", err,
			)
			continue
		}

		s.Attempt(ctx, reg, deliveryLog)
	}

	return nil
}

// Attempt performs exactly one delivery attempt and records its outcome on
// the delivery-log row. It never returns an error; failures feed the retry
// policy instead.
func (s *Service) Attempt(ctx context.Context, reg *webhookDomain.Registration, deliveryLog *webhookDomain.DeliveryLog) {
	deliveryLog.AttemptCount++

	statusCode, respBody, err := s.post(ctx, reg, deliveryLog)
	now := s.clock.Now()

	if err == nil && statusCode >= 200 && statusCode < 300 {
		deliveryLog.DeliveryStatus = types.WebhookDeliveryStatusDelivered
		deliveryLog.DeliveredAt = lo.ToPtr(now)
		deliveryLog.NextRetryAt = nil
		deliveryLog.ResponseStatusCode = lo.ToPtr(statusCode)
		deliveryLog.ResponseBody = lo.ToPtr(respBody)
		deliveryLog.LastError = nil
	} else {
		if err != nil {
			errResp := ierr.NewErrorResponse(err)
			deliveryLog.LastError = lo.ToPtr(errResp.Error.Code + ": " + errResp.Error.Message)
		} else {
			deliveryLog.ResponseStatusCode = lo.ToPtr(statusCode)
			deliveryLog.ResponseBody = lo.ToPtr(respBody)
			deliveryLog.LastError = lo.ToPtr("endpoint returned non-2xx status " + strconv.Itoa(statusCode))
		}

		// Per-endpoint retry counts are capped by the global limit.
		retryLimit := reg.RetryCount
		if retryLimit > s.cfg.Webhook.MaxRetries {
			retryLimit = s.cfg.Webhook.MaxRetries
		}
		if deliveryLog.AttemptCount > retryLimit {
			// Retries exhausted, terminal.
			deliveryLog.DeliveryStatus = types.WebhookDeliveryStatusFailed
			deliveryLog.NextRetryAt = nil
		} else {
			delay := s.cfg.Webhook.RetryBaseDelay * time.Duration(1<<uint(deliveryLog.AttemptCount-1))
			deliveryLog.DeliveryStatus = types.WebhookDeliveryStatusRetrying
			deliveryLog.NextRetryAt = lo.ToPtr(now.Add(delay))
		}
	}

	deliveryLog.UpdatedAt = now
	if updateErr := s.deliveryRepo.Update(ctx, deliveryLog); updateErr != nil {
		s.logger.WithContext(ctx).Errorw("failed to update delivery log",
			"delivery_id", deliveryLog.ID,
			"error", updateErr,
		)
	}

	s.logger.WithContext(ctx).Infow("webhook delivery attempt",
		"delivery_id", deliveryLog.ID,
		"webhook_id", reg.ID,
		"event_type", deliveryLog.EventType,
		"attempt", deliveryLog.AttemptCount,
		"status", deliveryLog.DeliveryStatus,
	)
}

func (s *Service) post(ctx context.Context, reg *webhookDomain.Registration, deliveryLog *webhookDomain.DeliveryLog) (int, string, error) {
	timeout := s.cfg.Webhook.DefaultTimeout
	if reg.TimeoutSeconds > 0 {
		timeout = time.Duration(reg.TimeoutSeconds) * time.Second
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(attemptCtx, "POST", reg.URL, bytes.NewReader(deliveryLog.Payload))
	if err != nil {
		return 0, "", ierr.WithError(err).
			WithHint("Failed to build webhook request").
			Mark(ierr.ErrHTTPClient)
	}

	timestamp := s.clock.Now().Unix()
	signature := ComputeSignature(reg.Secret, timestamp, deliveryLog.Payload)

	req.Header.Set(HeaderContentType, "application/json")
	req.Header.Set(HeaderEvent, string(deliveryLog.EventType))
	req.Header.Set(HeaderWebhookID, deliveryLog.EventID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderSignature, SignatureHeader(signature))
	req.Header.Set("User-Agent", s.cfg.Webhook.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", ierr.WithError(err).
			WithHint("Webhook endpoint request failed").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	// Keep a bounded excerpt of the response for the delivery log.
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return resp.StatusCode, string(excerpt), nil
}

// RetryPending re-delivers retrying rows whose next_retry_at has elapsed.
// Returns how many rows were attempted.
func (s *Service) RetryPending(ctx context.Context) (int, error) {
	due, err := s.deliveryRepo.ListDueForRetry(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	for _, deliveryLog := range due {
		itemCtx := types.SetTenantID(ctx, deliveryLog.TenantID)

		reg, err := s.regRepo.Get(itemCtx, deliveryLog.WebhookID)
		if err != nil || !reg.Enabled {
			// The registration is gone or disabled; the delivery can never
			// succeed, so stop retrying it.
			deliveryLog.DeliveryStatus = types.WebhookDeliveryStatusFailed
			deliveryLog.NextRetryAt = nil
			deliveryLog.LastError = lo.ToPtr("webhook registration missing or disabled")
			if updateErr := s.deliveryRepo.Update(itemCtx, deliveryLog); updateErr != nil {
				s.logger.Errorw("failed to fail orphaned delivery",
					"delivery_id", deliveryLog.ID,
					"error", updateErr,
				)
			}
			continue
		}

		s.Attempt(itemCtx, reg, deliveryLog)
	}

	return len(due), nil
}
