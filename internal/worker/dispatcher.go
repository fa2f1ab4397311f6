// Package worker consumes scheduling intents and runs their side effects:
// reminder planning and waiting-list notification.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinic-appointments-server/internal/events"
	"clinic-appointments-server/internal/metrics"
	"clinic-appointments-server/internal/models"
)

// ReminderScheduler plans and clears reminders.
type ReminderScheduler interface {
	Schedule(ctx context.Context, appointmentID string, scheduledAt time.Time) (int, error)
	Replace(ctx context.Context, appointmentID string, scheduledAt time.Time) (int, error)
	CancelPending(ctx context.Context, appointmentID string) (int64, error)
}

// WaitlistNotifier tells the next waiting patient about a freed slot.
type WaitlistNotifier interface {
	NotifyNext(ctx context.Context, doctorID string, freedAt time.Time) (*models.WaitingListEntry, error)
}

// Dispatcher drains an intent queue.
type Dispatcher struct {
	queue     events.Queue
	reminders ReminderScheduler
	waitlist  WaitlistNotifier
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	backoff   time.Duration
}

func NewDispatcher(queue events.Queue, reminders ReminderScheduler, waitlist WaitlistNotifier, m *metrics.Metrics, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:     queue,
		reminders: reminders,
		waitlist:  waitlist,
		metrics:   m,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		backoff:   time.Second,
	}
}

// Handle runs the side effects of one intent. A failing step is logged and
// does not stop the remaining steps.
func (d *Dispatcher) Handle(ctx context.Context, intent events.Intent) error {
	log := d.logger.With().Str("intent", string(intent.Type)).Str("appointment_id", intent.AppointmentID).Logger()

	var errs []error
	switch intent.Type {
	case events.AppointmentBooked:
		n, err := d.reminders.Schedule(ctx, intent.AppointmentID, intent.ScheduledAt)
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule reminders: %w", err))
		}
		log.Debug().Int("reminders", n).Msg("reminders scheduled")

	case events.AppointmentRescheduled:
		n, err := d.reminders.Replace(ctx, intent.AppointmentID, intent.ScheduledAt)
		if err != nil {
			errs = append(errs, fmt.Errorf("replace reminders: %w", err))
		}
		log.Debug().Int("reminders", n).Msg("reminders replaced")

	case events.AppointmentCancelled:
		if _, err := d.reminders.CancelPending(ctx, intent.AppointmentID); err != nil {
			errs = append(errs, fmt.Errorf("cancel reminders: %w", err))
		}
		if _, err := d.waitlist.NotifyNext(ctx, intent.DoctorID, intent.ScheduledAt); err != nil {
			errs = append(errs, fmt.Errorf("notify waiting list: %w", err))
		}

	default:
		log.Warn().Msg("ignoring unknown intent")
		return nil
	}

	err := errors.Join(errs...)
	if err != nil {
		d.metrics.ObserveIntent(string(intent.Type), "handle_failed")
		log.Error().Err(err).Msg("intent side effects failed")
		return err
	}
	d.metrics.ObserveIntent(string(intent.Type), "handled")
	return nil
}

// Run consumes intents until ctx ends.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		intent, err := d.queue.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error().Err(err).Msg("failed to read intent")
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.backoff):
			}
			continue
		}
		_ = d.Handle(ctx, intent)
	}
}
