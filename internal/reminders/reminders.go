// Package reminders plans appointment reminders and delivers the ones that
// fall due.
package reminders

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clinic-appointments-server/internal/models"
)

// ChannelEmail is the only delivery channel.
const ChannelEmail = "email"

// DefaultOffsets are the lead times used when none are configured.
var DefaultOffsets = []time.Duration{24 * time.Hour, 2 * time.Hour}

// Plan returns the send times for an appointment at scheduledAt, one per
// offset, keeping only those still in the future at now.
func Plan(scheduledAt time.Time, offsets []time.Duration, now time.Time) []time.Time {
	var times []time.Time
	for _, offset := range offsets {
		at := scheduledAt.Add(-offset)
		if at.After(now) {
			times = append(times, at.UTC())
		}
	}
	return times
}

// Store persists reminder rows.
type Store interface {
	Create(ctx context.Context, reminders []models.AppointmentReminder) error
	DeletePending(ctx context.Context, appointmentID string) (int64, error)
	// Due returns pending reminders scheduled at or before now, with their
	// appointment, patient and doctor loaded.
	Due(ctx context.Context, now time.Time, limit int) ([]models.AppointmentReminder, error)
	// Transition moves a reminder from one status to another. It reports
	// false when the row was no longer in from.
	Transition(ctx context.Context, id string, from, to models.ReminderStatus, sentAt *time.Time) (bool, error)
}

// Scheduler creates and clears reminder rows for appointments.
type Scheduler struct {
	store   Store
	offsets []time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

func NewScheduler(store Store, offsets []time.Duration, logger zerolog.Logger) *Scheduler {
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}
	return &Scheduler{
		store:   store,
		offsets: offsets,
		now:     time.Now,
		logger:  logger.With().Str("component", "reminders").Logger(),
	}
}

// Schedule stores the pending reminders of an appointment and returns how many
// were created.
func (s *Scheduler) Schedule(ctx context.Context, appointmentID string, scheduledAt time.Time) (int, error) {
	times := Plan(scheduledAt, s.offsets, s.now())
	if len(times) == 0 {
		return 0, nil
	}
	rows := make([]models.AppointmentReminder, 0, len(times))
	for _, at := range times {
		rows = append(rows, models.AppointmentReminder{
			AppointmentID: appointmentID,
			Channel:       ChannelEmail,
			ScheduledFor:  at,
			Status:        models.ReminderPending,
		})
	}
	if err := s.store.Create(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Replace drops pending reminders and plans new ones for the new time.
func (s *Scheduler) Replace(ctx context.Context, appointmentID string, scheduledAt time.Time) (int, error) {
	if _, err := s.store.DeletePending(ctx, appointmentID); err != nil {
		return 0, err
	}
	return s.Schedule(ctx, appointmentID, scheduledAt)
}

// CancelPending drops reminders that were not sent yet.
func (s *Scheduler) CancelPending(ctx context.Context, appointmentID string) (int64, error) {
	return s.store.DeletePending(ctx, appointmentID)
}
