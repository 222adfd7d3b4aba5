package testutil

import (
	"context"
	"time"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/config"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/customer"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/plan"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/subscription"
	webhookDomain "github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/webhook"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/pubsub"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/types"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook"
	"github.com/stretchr/testify/suite"
)

// TestTenantID is the tenant every suite context is scoped to.
const TestTenantID = "tenant_test"

// Stores bundles the in-memory repositories used by service tests.
type Stores struct {
	PlanRepo                plan.Repository
	CustomerRepo            customer.Repository
	SubscriptionRepo        subscription.Repository
	InvoiceRepo             invoice.Repository
	WebhookRegistrationRepo webhookDomain.RegistrationRepository
	WebhookDeliveryRepo     webhookDomain.DeliveryRepository
}

// BaseServiceTestSuite provides the shared fixture for service tests: a
// tenant-scoped context, fresh in-memory stores, a manually advanced clock
// and a webhook publisher over an in-process pub/sub.
type BaseServiceTestSuite struct {
	suite.Suite

	ctx              context.Context
	stores           Stores
	clock            *TestClock
	logger           *logger.Logger
	config           *config.Configuration
	pubSub           *pubsub.InMemoryPubSub
	webhookPublisher webhook.Publisher
}

// SetupTest initializes a fresh fixture before each test.
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetUserID(types.SetTenantID(context.Background(), TestTenantID), "user_test")
	s.clock = NewTestClock(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	s.logger = logger.GetLogger()
	s.config = config.GetDefaultConfig()
	s.stores = Stores{
		PlanRepo:                NewInMemoryPlanStore(),
		CustomerRepo:            NewInMemoryCustomerStore(),
		SubscriptionRepo:        NewInMemorySubscriptionStore(),
		InvoiceRepo:             NewInMemoryInvoiceStore(),
		WebhookRegistrationRepo: NewInMemoryWebhookRegistrationStore(),
		WebhookDeliveryRepo:     NewInMemoryWebhookDeliveryStore(),
	}
	s.pubSub = pubsub.NewInMemoryPubSub(s.logger)
	s.webhookPublisher = webhook.NewPublisher(s.pubSub, s.config, s.logger)
}

// TearDownTest closes the fixture's pub/sub channel.
func (s *BaseServiceTestSuite) TearDownTest() {
	if s.pubSub != nil {
		_ = s.pubSub.Close()
	}
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetClock() *TestClock {
	return s.clock
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetPubSub() *pubsub.InMemoryPubSub {
	return s.pubSub
}

func (s *BaseServiceTestSuite) GetWebhookPublisher() webhook.Publisher {
	return s.webhookPublisher
}
