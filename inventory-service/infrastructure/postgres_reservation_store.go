package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/commercelab/order-saga/shared/lra"
	"github.com/commercelab/order-saga/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ lra.ParticipantStore = (*PostgresReservationStore)(nil)

// PostgresReservationStore implements lra.ParticipantStore over the
// reservations table
type PostgresReservationStore struct {
	db *sqlx.DB
}

// NewPostgresReservationStore creates a new PostgresReservationStore
func NewPostgresReservationStore(db *sqlx.DB) *PostgresReservationStore {
	return &PostgresReservationStore{db: db}
}

type postgresReservation struct {
	ID        string    `db:"id"`
	OrderID   string    `db:"order_id"`
	LRAID     string    `db:"lra_id"`
	Status    string    `db:"status"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Save upserts the reservation keyed by its record ID
func (s *PostgresReservationStore) Save(ctx context.Context, record *lra.ParticipantRecord) error {
	query := `
		INSERT INTO reservations (
			id, order_id, lra_id, status, payload, created_at, updated_at
		) VALUES (
			:id, :order_id, :lra_id, :status, :payload, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.NamedExecContext(ctx, query, toPostgres(record))
	if err != nil {
		return errors.Wrap(err, "failed to save reservation")
	}
	return nil
}

// FindMostRecentByLRA finds the latest reservation for an LRA
func (s *PostgresReservationStore) FindMostRecentByLRA(ctx context.Context, lraID string) (*lra.ParticipantRecord, error) {
	return s.findMostRecent(ctx, "lra_id", lraID)
}

// FindMostRecentByBusinessKey finds the latest reservation for an order
func (s *PostgresReservationStore) FindMostRecentByBusinessKey(ctx context.Context, key string) (*lra.ParticipantRecord, error) {
	return s.findMostRecent(ctx, "order_id", key)
}

func (s *PostgresReservationStore) findMostRecent(ctx context.Context, column, value string) (*lra.ParticipantRecord, error) {
	query := `SELECT id, order_id, lra_id, status, payload, created_at, updated_at
		FROM reservations WHERE ` + column + ` = $1
		ORDER BY created_at DESC LIMIT 1`

	var row postgresReservation
	err := s.db.GetContext(ctx, &row, query, value)
	if err == sql.ErrNoRows {
		return nil, lra.ErrRecordNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find reservation")
	}

	return toRecord(&row), nil
}

func toPostgres(record *lra.ParticipantRecord) *postgresReservation {
	return &postgresReservation{
		ID:        record.ID.String(),
		OrderID:   record.BusinessKey,
		LRAID:     record.LRAID,
		Status:    string(record.Status),
		Payload:   record.Payload,
		CreatedAt: record.Timestamps.CreatedAt,
		UpdatedAt: record.Timestamps.UpdatedAt,
	}
}

func toRecord(row *postgresReservation) *lra.ParticipantRecord {
	return &lra.ParticipantRecord{
		ID:          models.ID(row.ID),
		BusinessKey: row.OrderID,
		LRAID:       row.LRAID,
		Status:      lra.RecordStatus(row.Status),
		Payload:     row.Payload,
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}
}
