package webhook_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	webhookDomain "github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/webhook"
	ierr "github.com/Ashwinashu-12/billflow-saas-sub000/internal/errors"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/testutil"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook"
	webhookDto "github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/dto"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/payload"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// receivedRequest captures one request seen by the test endpoint.
type receivedRequest struct {
	Headers http.Header
	Body    []byte
}

type WebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	service *webhook.Service

	mu       sync.Mutex
	received []receivedRequest
	respCode int
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.received = nil
	s.respCode = http.StatusOK

	registry := payload.NewRegistry(&payload.Services{
		InvoiceRepo:      s.GetStores().InvoiceRepo,
		SubscriptionRepo: s.GetStores().SubscriptionRepo,
		Logger:           s.GetLogger(),
	})
	s.service = webhook.NewService(
		s.GetStores().WebhookRegistrationRepo,
		s.GetStores().WebhookDeliveryRepo,
		registry,
		s.GetPubSub(),
		s.GetConfig(),
		s.GetLogger(),
		s.GetClock(),
	)
}

// newEndpoint starts a test endpoint recording every delivery and answering
// with the suite's configured status code.
func (s *WebhookServiceSuite) newEndpoint() *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.received = append(s.received, receivedRequest{Headers: r.Header.Clone(), Body: body})
		code := s.respCode
		s.mu.Unlock()
		w.WriteHeader(code)
	}))
	s.T().Cleanup(srv.Close)
	return srv
}

func (s *WebhookServiceSuite) setRespCode(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respCode = code
}

func (s *WebhookServiceSuite) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func (s *WebhookServiceSuite) seedInvoice(id string) {
	inv := &invoice.Invoice{
		ID:            id,
		InvoiceNumber: "INV-202501-00001",
		CustomerID:    "cust-1",
		InvoiceStatus: types.InvoiceStatusDraft,
		Currency:      "INR",
		TotalAmount:   decimal.NewFromInt(100),
		AmountDue:     decimal.NewFromInt(100),
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().InvoiceRepo.CreateWithLineItems(s.GetContext(), inv))
}

func (s *WebhookServiceSuite) seedRegistration(url string, retryCount int, eventTypes ...types.WebhookEventType) *webhookDomain.Registration {
	reg := &webhookDomain.Registration{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK),
		URL:        url,
		Secret:     "whsec_test",
		EventTypes: eventTypes,
		RetryCount: retryCount,
		Enabled:    true,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().WebhookRegistrationRepo.Create(s.GetContext(), reg))
	return reg
}

func (s *WebhookServiceSuite) invoiceEvent(invoiceID string) *types.WebhookEvent {
	data, err := json.Marshal(webhookDto.InternalInvoiceEvent{
		EventType: string(types.WebhookEventInvoiceCreated),
		TenantID:  testutil.TestTenantID,
		InvoiceID: invoiceID,
	})
	s.Require().NoError(err)
	return &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: types.WebhookEventInvoiceCreated,
		TenantID:  testutil.TestTenantID,
		Timestamp: s.GetClock().Now(),
		Payload:   data,
	}
}

func (s *WebhookServiceSuite) listDeliveries() []*webhookDomain.DeliveryLog {
	store := s.GetStores().WebhookDeliveryRepo.(*testutil.InMemoryWebhookDeliveryStore)
	return store.List(context.Background(), nil)
}

func (s *WebhookServiceSuite) TestFanOut_DeliversSignedPayload() {
	srv := s.newEndpoint()
	reg := s.seedRegistration(srv.URL, 3, types.WebhookEventInvoiceCreated)
	s.seedInvoice("inv-1")

	s.Require().NoError(s.service.FanOut(s.GetContext(), s.invoiceEvent("inv-1")))

	s.Require().Equal(1, s.requestCount())
	req := s.received[0]

	// Wire body carries the event envelope with the loaded invoice.
	var wire webhook.WirePayload
	s.Require().NoError(json.Unmarshal(req.Body, &wire))
	s.Equal(string(types.WebhookEventInvoiceCreated), wire.Event)
	var data webhookDto.InvoiceWebhookPayload
	s.Require().NoError(json.Unmarshal(wire.Data, &data))
	s.Equal("inv-1", data.Invoice.ID)

	// Headers identify and sign the delivery.
	s.Equal(string(types.WebhookEventInvoiceCreated), req.Headers.Get(webhook.HeaderEvent))
	s.Equal(wire.ID, req.Headers.Get(webhook.HeaderWebhookID))
	ts, err := strconv.ParseInt(req.Headers.Get(webhook.HeaderTimestamp), 10, 64)
	s.Require().NoError(err)
	expected := webhook.SignatureHeader(webhook.ComputeSignature(reg.Secret, ts, req.Body))
	s.Equal(expected, req.Headers.Get(webhook.HeaderSignature))

	// Delivery log recorded the success.
	rows := s.listDeliveries()
	s.Require().Len(rows, 1)
	row := rows[0]
	s.Equal(types.WebhookDeliveryStatusDelivered, row.DeliveryStatus)
	s.Equal(1, row.AttemptCount)
	s.NotNil(row.DeliveredAt)
	s.Nil(row.NextRetryAt)
	s.Equal(wire.ID, row.EventID)
}

func (s *WebhookServiceSuite) TestFanOut_MultipleRegistrations() {
	srv := s.newEndpoint()
	s.seedRegistration(srv.URL, 3, types.WebhookEventInvoiceCreated)
	s.seedRegistration(srv.URL, 3, types.WebhookEventInvoiceCreated, types.WebhookEventInvoicePaid)
	s.seedInvoice("inv-1")

	s.Require().NoError(s.service.FanOut(s.GetContext(), s.invoiceEvent("inv-1")))

	s.Equal(2, s.requestCount())
	s.Len(s.listDeliveries(), 2)
}

func (s *WebhookServiceSuite) TestFanOut_NoSubscribedRegistrations() {
	srv := s.newEndpoint()
	s.seedRegistration(srv.URL, 3, types.WebhookEventInvoicePaid)
	s.seedInvoice("inv-1")

	s.Require().NoError(s.service.FanOut(s.GetContext(), s.invoiceEvent("inv-1")))

	s.Equal(0, s.requestCount())
	s.Empty(s.listDeliveries())
}

func (s *WebhookServiceSuite) TestFanOut_DisabledRegistrationSkipped() {
	srv := s.newEndpoint()
	reg := s.seedRegistration(srv.URL, 3, types.WebhookEventInvoiceCreated)
	reg.Enabled = false
	s.Require().NoError(s.GetStores().WebhookRegistrationRepo.Update(s.GetContext(), reg))
	s.seedInvoice("inv-1")

	s.Require().NoError(s.service.FanOut(s.GetContext(), s.invoiceEvent("inv-1")))

	s.Equal(0, s.requestCount())
	s.Empty(s.listDeliveries())
}

func (s *WebhookServiceSuite) TestFanOut_FailureSchedulesBackoffRetries() {
	srv := s.newEndpoint()
	s.setRespCode(http.StatusInternalServerError)
	s.seedRegistration(srv.URL, 2, types.WebhookEventInvoiceCreated)
	s.seedInvoice("inv-1")

	s.Require().NoError(s.service.FanOut(s.GetContext(), s.invoiceEvent("inv-1")))

	// First attempt failed; first retry is due after the base delay.
	rows := s.listDeliveries()
	s.Require().Len(rows, 1)
	row := rows[0]
	s.Equal(types.WebhookDeliveryStatusRetrying, row.DeliveryStatus)
	s.Equal(1, row.AttemptCount)
	s.Require().NotNil(row.NextRetryAt)
	s.True(row.NextRetryAt.Equal(s.GetClock().Now().Add(5 * time.Minute)))

	// Before the delay elapses nothing is due.
	attempted, err := s.service.RetryPending(s.GetContext())
	s.NoError(err)
	s.Equal(0, attempted)

	// First retry fails; the next delay doubles.
	s.GetClock().Advance(5 * time.Minute)
	attempted, err = s.service.RetryPending(s.GetContext())
	s.NoError(err)
	s.Equal(1, attempted)

	row = s.listDeliveries()[0]
	s.Equal(types.WebhookDeliveryStatusRetrying, row.DeliveryStatus)
	s.Equal(2, row.AttemptCount)
	s.Require().NotNil(row.NextRetryAt)
	s.True(row.NextRetryAt.Equal(s.GetClock().Now().Add(10 * time.Minute)))

	// Second retry exhausts the budget; the delivery is terminal.
	s.GetClock().Advance(10 * time.Minute)
	attempted, err = s.service.RetryPending(s.GetContext())
	s.NoError(err)
	s.Equal(1, attempted)

	row = s.listDeliveries()[0]
	s.Equal(types.WebhookDeliveryStatusFailed, row.DeliveryStatus)
	s.Equal(3, row.AttemptCount)
	s.Nil(row.NextRetryAt)
	s.Require().NotNil(row.LastError)

	// Terminal rows never come due again.
	s.GetClock().Advance(time.Hour)
	attempted, err = s.service.RetryPending(s.GetContext())
	s.NoError(err)
	s.Equal(0, attempted)

	// One initial attempt plus exactly retry_count retries.
	s.Equal(3, s.requestCount())
}

func (s *WebhookServiceSuite) TestFanOut_TransportErrorRecordsErrorCode() {
	srv := s.newEndpoint()
	url := srv.URL
	srv.Close()

	s.seedRegistration(url, 3, types.WebhookEventInvoiceCreated)
	s.seedInvoice("inv-1")

	s.Require().NoError(s.service.FanOut(s.GetContext(), s.invoiceEvent("inv-1")))

	rows := s.listDeliveries()
	s.Require().Len(rows, 1)
	row := rows[0]
	s.Equal(types.WebhookDeliveryStatusRetrying, row.DeliveryStatus)
	s.Require().NotNil(row.LastError)
	s.Contains(*row.LastError, ierr.ErrCodeHTTPClient)
}

func (s *WebhookServiceSuite) TestFanOut_RecoversOnRetry() {
	srv := s.newEndpoint()
	s.setRespCode(http.StatusServiceUnavailable)
	s.seedRegistration(srv.URL, 5, types.WebhookEventInvoiceCreated)
	s.seedInvoice("inv-1")

	s.Require().NoError(s.service.FanOut(s.GetContext(), s.invoiceEvent("inv-1")))
	s.Equal(types.WebhookDeliveryStatusRetrying, s.listDeliveries()[0].DeliveryStatus)

	s.setRespCode(http.StatusOK)
	s.GetClock().Advance(5 * time.Minute)
	attempted, err := s.service.RetryPending(s.GetContext())
	s.NoError(err)
	s.Equal(1, attempted)

	row := s.listDeliveries()[0]
	s.Equal(types.WebhookDeliveryStatusDelivered, row.DeliveryStatus)
	s.Equal(2, row.AttemptCount)
	s.NotNil(row.DeliveredAt)
}

func (s *WebhookServiceSuite) TestRetryPending_FailsOrphanedDeliveries() {
	srv := s.newEndpoint()
	s.setRespCode(http.StatusInternalServerError)
	reg := s.seedRegistration(srv.URL, 5, types.WebhookEventInvoiceCreated)
	s.seedInvoice("inv-1")

	s.Require().NoError(s.service.FanOut(s.GetContext(), s.invoiceEvent("inv-1")))

	// Disabling the registration strands the retrying row.
	reg.Enabled = false
	s.Require().NoError(s.GetStores().WebhookRegistrationRepo.Update(s.GetContext(), reg))

	s.GetClock().Advance(5 * time.Minute)
	_, err := s.service.RetryPending(s.GetContext())
	s.NoError(err)

	row := s.listDeliveries()[0]
	s.Equal(types.WebhookDeliveryStatusFailed, row.DeliveryStatus)
	s.Require().NotNil(row.LastError)
	s.Contains(*row.LastError, "disabled")

	// No further request was made for the orphaned row.
	s.Equal(1, s.requestCount())
}

func (s *WebhookServiceSuite) TestRegistration_RejectsUnknownEventType() {
	reg := &webhookDomain.Registration{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK),
		URL:        "https://example.com/hook",
		Secret:     "whsec_test",
		EventTypes: []types.WebhookEventType{"invoice.exploded"},
		RetryCount: 3,
		Enabled:    true,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	err := s.GetStores().WebhookRegistrationRepo.Create(s.GetContext(), reg)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
