package config

import (
	"context"
	"fmt"
	"log"

	"github.com/commercelab/order-saga/inventory-service/application"
	"github.com/commercelab/order-saga/inventory-service/handlers"
	"github.com/commercelab/order-saga/inventory-service/infrastructure"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/commercelab/order-saga/shared/telemetry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Repositories
	ReservationStore *infrastructure.PostgresReservationStore

	// LRA protocol
	CoordinatorClient *lra.CoordinatorClient
	Enlister          *lra.Enlister
	Participant       *lra.ParticipantResource

	// Use Cases
	ReserveStock   *application.ReserveStock
	GetReservation *application.GetReservation

	// HTTP Handlers
	InventoryHandlers *handlers.InventoryHandlers

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.InventoryServiceConfig.WithOTLPEndpoint(config.Telemetry.OTLPEndpoint)
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

	// callbacks are served under /inventory, so the enlister advertises
	// termination URIs rooted there
	deps.Enlister = lra.NewEnlister(coordinatorClient, config.ServiceName, config.BaseURL, "/inventory")

	deps.ReservationStore = infrastructure.NewPostgresReservationStore(db)
	deps.Participant = lra.NewParticipantResource(deps.ReservationStore, "inventory")

	deps.ReserveStock = application.NewReserveStock(deps.ReservationStore)
	deps.GetReservation = application.NewGetReservation(deps.ReservationStore)

	deps.InventoryHandlers = handlers.NewInventoryHandlers(deps.ReserveStock, deps.GetReservation, deps.Participant, deps.Enlister)

	return deps, nil
}

// Close releases all resources
func (d *Dependencies) Close() error {
	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
