// Package events carries scheduling intents from the request path to the
// background worker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// IntentType names what happened to an appointment.
type IntentType string

const (
	AppointmentBooked      IntentType = "appointment.booked"
	AppointmentRescheduled IntentType = "appointment.rescheduled"
	AppointmentCancelled   IntentType = "appointment.cancelled"
)

// Intent is published after a lifecycle change commits.
type Intent struct {
	ID                  string     `json:"id"`
	Type                IntentType `json:"type"`
	AppointmentID       string     `json:"appointmentId"`
	DoctorID            string     `json:"doctorId"`
	ScheduledAt         time.Time  `json:"scheduledAt"`
	PreviousScheduledAt *time.Time `json:"previousScheduledAt,omitempty"`
	OccurredAt          time.Time  `json:"occurredAt"`
}

// NewIntent stamps an intent with an id and the current time.
func NewIntent(t IntentType, appointmentID, doctorID string, scheduledAt time.Time) Intent {
	return Intent{
		ID:            uuid.New().String(),
		Type:          t,
		AppointmentID: appointmentID,
		DoctorID:      doctorID,
		ScheduledAt:   scheduledAt.UTC(),
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher hands intents to the worker. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, intent Intent) error
}

// Queue is a Publisher that can also be drained.
type Queue interface {
	Publisher
	// Next blocks until an intent is available or ctx is done.
	Next(ctx context.Context) (Intent, error)
}

// ErrQueueFull is returned by MemoryQueue when its buffer is exhausted.
var ErrQueueFull = errors.New("events: queue full")

// Discard drops every intent.
type Discard struct{}

func (Discard) Publish(context.Context, Intent) error { return nil }

func encode(intent Intent) ([]byte, error) {
	return json.Marshal(intent)
}

func decode(raw string) (Intent, error) {
	var intent Intent
	err := json.Unmarshal([]byte(raw), &intent)
	return intent, err
}
