package config

import (
	"context"
	"fmt"
	"log"

	"github.com/commercelab/order-saga/order-service/application"
	"github.com/commercelab/order-saga/order-service/handlers"
	"github.com/commercelab/order-saga/order-service/infrastructure"
	sharedinfra "github.com/commercelab/order-saga/shared/infrastructure"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/commercelab/order-saga/shared/telemetry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Repositories
	OrderRepository *infrastructure.PostgresOrderRepository

	// LRA protocol
	CoordinatorClient *lra.CoordinatorClient
	Enlister          *lra.Enlister

	// Use Cases
	CreateOrder *application.CreateOrder
	GetOrder    *application.GetOrder

	// HTTP Handlers
	OrderHandlers *handlers.OrderHandlers

	// Infrastructure
	EventPublisher *sharedinfra.SNSPublisherAdapter

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.OrderServiceConfig.WithOTLPEndpoint(config.Telemetry.OTLPEndpoint)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			log.Printf("Failed to initialize telemetry: %v", err)
			// Continue without telemetry rather than failing
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	deps.DB = db

	coordinatorClient, err := lra.NewCoordinatorClient(config.LRA.CoordinatorURL, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create coordinator client: %w", err)
	}
	deps.CoordinatorClient = coordinatorClient

	// the order service owns its LRAs; it is not a participant, so the
	// resource path is only used for tagging
	deps.Enlister = lra.NewEnlister(coordinatorClient, config.ServiceName, config.BaseURL, "/orders")

	eventPublisher, err := sharedinfra.NewSNSPublisherAdapter(config.AWS.SNSTopicArn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create SNS publisher: %w", err)
	}
	deps.EventPublisher = eventPublisher

	deps.OrderRepository = infrastructure.NewPostgresOrderRepository(db)

	participantClient := infrastructure.NewHTTPParticipantClient(
		config.Saga.InventoryBaseURL,
		config.Saga.PaymentBaseURL,
		nil,
	)

	deps.CreateOrder = application.NewCreateOrder(deps.OrderRepository, participantClient, eventPublisher)
	deps.GetOrder = application.NewGetOrder(deps.OrderRepository)

	deps.OrderHandlers = handlers.NewOrderHandlers(deps.CreateOrder, deps.GetOrder, deps.Enlister)

	return deps, nil
}

// Close releases all resources
func (d *Dependencies) Close() error {
	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}
	if d.EventPublisher != nil {
		d.EventPublisher.Close()
	}
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
