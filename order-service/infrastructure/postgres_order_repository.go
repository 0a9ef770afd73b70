package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/commercelab/order-saga/order-service/domain"
	"github.com/commercelab/order-saga/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ domain.OrderRepository = (*PostgresOrderRepository)(nil)

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *sqlx.DB
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *sqlx.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// postgresOrder represents an order in the database
type postgresOrder struct {
	OrderID         string    `db:"order_id"`
	Status          string    `db:"status"`
	LRAID           string    `db:"lra_id"`
	InventoryStatus string    `db:"inventory_status"`
	PaymentStatus   string    `db:"payment_status"`
	Payload         string    `db:"payload"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Save upserts the order keyed by order_id
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			order_id, status, lra_id, inventory_status, payment_status,
			payload, created_at, updated_at
		) VALUES (
			:order_id, :status, :lra_id, :inventory_status, :payment_status,
			:payload, :created_at, :updated_at
		)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			inventory_status = EXCLUDED.inventory_status,
			payment_status = EXCLUDED.payment_status,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, r.toPostgres(order))
	if err != nil {
		return errors.Wrap(err, "failed to save order")
	}
	return nil
}

// FindByID finds an order by its ID; returns nil when no order matches
func (r *PostgresOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `SELECT order_id, status, lra_id, inventory_status, payment_status,
		payload, created_at, updated_at
		FROM orders WHERE order_id = $1`

	var row postgresOrder
	err := r.db.GetContext(ctx, &row, query, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}

	return r.toDomain(&row), nil
}

func (r *PostgresOrderRepository) toPostgres(order *domain.Order) *postgresOrder {
	return &postgresOrder{
		OrderID:         order.OrderID,
		Status:          string(order.Status),
		LRAID:           order.LRAID,
		InventoryStatus: string(order.InventoryStatus),
		PaymentStatus:   string(order.PaymentStatus),
		Payload:         order.Payload,
		CreatedAt:       order.Timestamps.CreatedAt,
		UpdatedAt:       order.Timestamps.UpdatedAt,
	}
}

func (r *PostgresOrderRepository) toDomain(row *postgresOrder) *domain.Order {
	return &domain.Order{
		OrderID:         row.OrderID,
		Status:          domain.OrderStatus(row.Status),
		LRAID:           row.LRAID,
		InventoryStatus: domain.StepStatus(row.InventoryStatus),
		PaymentStatus:   domain.StepStatus(row.PaymentStatus),
		Payload:         row.Payload,
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}
}
