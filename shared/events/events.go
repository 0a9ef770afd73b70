package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/commercelab/order-saga/shared/models"
)

var (
	ErrInvalidTopic   = errors.New("invalid topic")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Saga lifecycle event types published by the order service
const (
	OrderCreatedEvent   = "order.created"
	OrderConfirmedEvent = "order.confirmed"
	OrderCancelledEvent = "order.cancelled"
)

// Topic represents an event topic
type Topic string

func NewTopic(topic string) (Topic, error) {
	if topic == "" {
		return "", ErrInvalidTopic
	}
	return Topic(topic), nil
}

func (t Topic) String() string {
	return string(t)
}

// Metadata represents event metadata
type Metadata map[string]string

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Metadata) Set(key string, value string) {
	if m == nil {
		m = make(Metadata)
	}
	m[key] = value
}

func (m Metadata) Clone() Metadata {
	clone := Metadata{}
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// Event represents a domain event
type Event struct {
	ID            models.ID   `json:"id"`
	AggregateID   models.ID   `json:"aggregate_id"`
	Topic         Topic       `json:"topic"`
	EventType     string      `json:"event_type"`
	Version       string      `json:"version"`
	Data          interface{} `json:"data"`
	Metadata      Metadata    `json:"metadata"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID models.ID   `json:"correlation_id"`
}

// NewEvent creates a new domain event
func NewEvent(aggregateID models.ID, eventType string, data interface{}) *Event {
	topic, _ := NewTopic(eventType) // We'll ignore error since we trust eventType constants
	return &Event{
		ID:          models.GenerateUUID(),
		AggregateID: aggregateID,
		Topic:       topic,
		EventType:   eventType,
		Version:     "1.0",
		Data:        data,
		Metadata:    make(Metadata),
		Timestamp:   time.Now(),
	}
}

// WithCorrelationID sets correlation ID
func (e *Event) WithCorrelationID(correlationID models.ID) *Event {
	e.CorrelationID = correlationID
	return e
}

// WithMetadata adds metadata
func (e *Event) WithMetadata(key string, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata.Set(key, value)
	return e
}

// ToJSON converts event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}

// MarshalPayload marshals the event payload
func (e *Event) MarshalPayload() (json.RawMessage, error) {
	if b, ok := e.Data.([]byte); ok {
		return b, nil
	}

	if b, ok := e.Data.(json.RawMessage); ok {
		return b, nil
	}

	return json.Marshal(e.Data)
}

// Publisher publishes events
type Publisher interface {
	Publish(ctx context.Context, events ...*Event) error
}
