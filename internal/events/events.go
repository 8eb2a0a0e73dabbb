// Package events publishes domain events after a unit of work commits.
// Delivery is best effort: a failed publish is logged and never undoes
// or fails the operation that produced it.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Type string

const (
	UserCreated Type = "user.created"
	UserUpdated Type = "user.updated"
	UserDeleted Type = "user.deleted"

	PropertyCreated Type = "property.created"
	PropertyUpdated Type = "property.updated"
	PropertyDeleted Type = "property.deleted"

	ApartmentCreated       Type = "apartment.created"
	ApartmentUpdated       Type = "apartment.updated"
	ApartmentStatusChanged Type = "apartment.status_changed"
	ApartmentDeleted       Type = "apartment.deleted"

	AppointmentBooked      Type = "appointment.booked"
	AppointmentConfirmed   Type = "appointment.confirmed"
	AppointmentRescheduled Type = "appointment.rescheduled"
	AppointmentCancelled   Type = "appointment.cancelled"

	MessageSent Type = "message.sent"
	MessageRead Type = "message.read"
)

type Event struct {
	ID         string         `json:"event_id"`
	Type       Type           `json:"type"`
	EntityID   int64          `json:"entity_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// New stamps a fresh event id.
func New(t Type, entityID int64, at time.Time, data map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		EntityID:   entityID,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes ev and logs any failure.
func Emit(ctx context.Context, p Publisher, logger *zap.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("event_id", ev.ID),
			zap.String("type", string(ev.Type)),
			zap.Int64("entity_id", ev.EntityID),
			zap.Error(err),
		)
	}
}
