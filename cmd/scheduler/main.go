package main

import (
	"context"
	"log"

	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/clock"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/config"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/customer"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/invoice"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/plan"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/subscription"
	webhookDomain "github.com/Ashwinashu-12/billflow-saas-sub000/internal/domain/webhook"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/logger"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/pubsub"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/scheduler"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/service"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/testutil"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook"
	"github.com/Ashwinashu-12/billflow-saas-sub000/internal/webhook/payload"
	"go.uber.org/fx"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			logger.NewLogger,
			clock.New,
			provideRepositories,
			providePubSub,
			providePayloadRegistry,
			webhook.NewPublisher,
			service.NewTaxService,
			service.NewBillingService,
			service.NewInvoiceService,
			service.NewSubscriptionService,
			webhook.NewService,
			scheduler.New,
		),
		fx.Invoke(registerHooks),
	)

	app.Run()
}

// repositories bundles the persistence set behind the domain interfaces.
// The scheduler binary wires the process-local stores; a SQL-backed set
// plugs in here without touching the services.
type repositories struct {
	fx.Out

	Plan         plan.Repository
	Customer     customer.Repository
	Subscription subscription.Repository
	Invoice      invoice.Repository
	Registration webhookDomain.RegistrationRepository
	Delivery     webhookDomain.DeliveryRepository
}

func provideRepositories() repositories {
	return repositories{
		Plan:         testutil.NewInMemoryPlanStore(),
		Customer:     testutil.NewInMemoryCustomerStore(),
		Subscription: testutil.NewInMemorySubscriptionStore(),
		Invoice:      testutil.NewInMemoryInvoiceStore(),
		Registration: testutil.NewInMemoryWebhookRegistrationStore(),
		Delivery:     testutil.NewInMemoryWebhookDeliveryStore(),
	}
}

type pubSubOut struct {
	fx.Out

	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber
}

func providePubSub(log *logger.Logger) pubSubOut {
	ps := pubsub.NewInMemoryPubSub(log)
	return pubSubOut{
		Publisher:  ps,
		Subscriber: ps,
	}
}

func providePayloadRegistry(
	invoiceRepo invoice.Repository,
	subRepo subscription.Repository,
	log *logger.Logger,
) *payload.Registry {
	return payload.NewRegistry(&payload.Services{
		InvoiceRepo:      invoiceRepo,
		SubscriptionRepo: subRepo,
		Logger:           log,
	})
}

func registerHooks(
	lc fx.Lifecycle,
	webhookService *webhook.Service,
	sched *scheduler.Scheduler,
	publisher webhook.Publisher,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := webhookService.Start(context.Background()); err != nil {
				return err
			}
			sched.Start(context.Background())
			log.Infow("billing scheduler started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sched.Stop()
			webhookService.Stop()
			if err := publisher.Close(); err != nil {
				log.Errorw("failed to close webhook publisher", "error", err)
			}
			log.Infow("billing scheduler stopped")
			return nil
		},
	})
}
