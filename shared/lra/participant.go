package lra

import (
	"context"
	"log"
	"net/http"

	"github.com/commercelab/order-saga/shared/models"
	"github.com/commercelab/order-saga/shared/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// RecordStatus is the participant's internal view of one enlistment.
type RecordStatus string

const (
	StatusTrying      RecordStatus = "TRYING"
	StatusFailed      RecordStatus = "FAILED"
	StatusCompleted   RecordStatus = "COMPLETED"
	StatusCompensated RecordStatus = "COMPENSATED"
)

// ParticipantStatus is what the coordinator sees. Active tells it the
// participant still needs completing or compensating.
type ParticipantStatus string

const (
	ParticipantActive      ParticipantStatus = "Active"
	ParticipantCompleted   ParticipantStatus = "Completed"
	ParticipantCompensated ParticipantStatus = "Compensated"
)

// ParticipantStatusOf maps an internal record status to the coordinator's
// view. TRYING and FAILED both report Active so the coordinator drives
// compensation.
func ParticipantStatusOf(status RecordStatus) ParticipantStatus {
	switch status {
	case StatusCompleted:
		return ParticipantCompleted
	case StatusCompensated:
		return ParticipantCompensated
	default:
		return ParticipantActive
	}
}

// ErrRecordNotFound is returned by stores when no record matches.
var ErrRecordNotFound = errors.New("participant record not found")

// ParticipantRecord is one enlistment attempt of a participant service.
type ParticipantRecord struct {
	ID          models.ID
	BusinessKey string
	LRAID       string
	Status      RecordStatus
	Payload     string
	Timestamps  models.Timestamps
}

// NewParticipantRecord creates a record for a try step. failed marks a
// business failure that still enlists successfully; the coordinator
// discovers it later through status polling.
func NewParticipantRecord(businessKey, lraID, payload string, failed bool) *ParticipantRecord {
	status := StatusTrying
	if failed {
		status = StatusFailed
	}
	return &ParticipantRecord{
		ID:          models.GenerateUUID(),
		BusinessKey: businessKey,
		LRAID:       lraID,
		Status:      status,
		Payload:     payload,
		Timestamps:  models.NewTimestamps(),
	}
}

// ParticipantStore persists enlistment records. Lookups select the most
// recently created matching record.
type ParticipantStore interface {
	Save(ctx context.Context, record *ParticipantRecord) error
	FindMostRecentByLRA(ctx context.Context, lraID string) (*ParticipantRecord, error)
	FindMostRecentByBusinessKey(ctx context.Context, key string) (*ParticipantRecord, error)
}

// ParticipantResource serves the coordinator-facing callback surface of a
// participant service: complete, compensate, lra-status, forget, leave,
// after.
type ParticipantResource struct {
	store ParticipantStore
	name  string
}

// NewParticipantResource creates the callback resource. name identifies
// the participant in logs and metrics.
func NewParticipantResource(store ParticipantStore, name string) *ParticipantResource {
	return &ParticipantResource{store: store, name: name}
}

// RegisterRoutes mounts the callback endpoints on r.
func (p *ParticipantResource) RegisterRoutes(r chi.Router) {
	r.Put("/complete", p.Complete)
	r.Put("/compensate", p.Compensate)
	r.Get("/lra-status", p.Status)
	r.Put("/forget", p.Ack)
	r.Put("/leave", p.Ack)
	r.Put("/after", p.Ack)
}

// Complete transitions the record for the LRA to COMPLETED. Idempotent,
// and fail-open: an internal error is logged and counted but the callback
// still acknowledges, so coordinator retries never storm a permanently
// broken completion.
func (p *ParticipantResource) Complete(w http.ResponseWriter, r *http.Request) {
	p.terminate(w, r, StatusCompleted, ParticipantCompleted, "complete")
}

// Compensate transitions the record for the LRA to COMPENSATED. Same
// idempotency and fail-open behavior as Complete.
func (p *ParticipantResource) Compensate(w http.ResponseWriter, r *http.Request) {
	p.terminate(w, r, StatusCompensated, ParticipantCompensated, "compensate")
}

func (p *ParticipantResource) terminate(w http.ResponseWriter, r *http.Request, target RecordStatus, ack ParticipantStatus, callback string) {
	lraID := ContextID(r)
	log.Printf("%s %s callback: lraID=%s", p.name, callback, lraID)

	if err := p.transition(r.Context(), lraID, target); err != nil {
		log.Printf("%s %s failed: lraID=%s err=%v", p.name, callback, lraID, err)
		telemetry.RecordCounter(r.Context(), "lra_callback_failures_total",
			"Participant callbacks that failed internally but were acknowledged", 1,
			attribute.String("participant", p.name),
			attribute.String("callback", callback),
		)
	}

	writeText(w, http.StatusOK, string(ack))
}

// transition is idempotent: a record already in the target state is left
// untouched, so duplicate deliveries see the same terminal state.
func (p *ParticipantResource) transition(ctx context.Context, lraID string, target RecordStatus) error {
	if lraID == "" {
		return errors.New("missing LRA context header")
	}

	record, err := p.store.FindMostRecentByLRA(ctx, lraID)
	if err != nil {
		return err
	}
	if record.Status == target {
		return nil
	}

	record.Status = target
	record.Timestamps = record.Timestamps.Update()
	return errors.Wrapf(p.store.Save(ctx, record), "failed to save %s record", target)
}

// Status reports the participant status for an LRA. Unknown handles and
// internal errors report Active: the fail-safe default that keeps the
// coordinator driving compensation.
func (p *ParticipantResource) Status(w http.ResponseWriter, r *http.Request) {
	lraID := ContextID(r)
	if lraID == "" {
		log.Printf("%s lra-status missing LRA header", p.name)
		writeText(w, http.StatusOK, string(ParticipantActive))
		return
	}

	record, err := p.store.FindMostRecentByLRA(r.Context(), lraID)
	if err != nil {
		log.Printf("%s lra-status lookup failed: lraID=%s err=%v", p.name, lraID, err)
		writeText(w, http.StatusOK, string(ParticipantActive))
		return
	}

	status := ParticipantStatusOf(record.Status)
	log.Printf("%s lra-status: key=%s internal=%s reported=%s", p.name, record.BusinessKey, record.Status, status)
	writeText(w, http.StatusOK, string(status))
}

// Ack acknowledges forget/leave/after callbacks without touching state.
func (p *ParticipantResource) Ack(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
