package reminders

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clinic-appointments-server/internal/metrics"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/notify"
)

const sweepBatchSize = 200

// Sweeper delivers reminders that have fallen due.
type Sweeper struct {
	store     Store
	sender    notify.EmailSender
	loc       *time.Location
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// SweepResult counts what one pass did.
type SweepResult struct {
	Sent    int
	Failed  int
	Skipped int
}

func NewSweeper(store Store, sender notify.EmailSender, loc *time.Location, interval time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:     store,
		sender:    sender,
		loc:       loc,
		interval:  interval,
		batchSize: sweepBatchSize,
		metrics:   m,
		logger:    logger.With().Str("component", "reminder_sweeper").Logger(),
		now:       time.Now,
	}
}

// ProcessDue sends every due reminder at most once, in batches until none
// are left. Each row is claimed (pending to sending) before delivery, so a
// concurrent sweep that read the same row skips it.
func (s *Sweeper) ProcessDue(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	for {
		due, err := s.store.Due(ctx, s.now(), s.batchSize)
		if err != nil {
			return result, err
		}
		for i := range due {
			if err := s.process(ctx, &due[i], &result); err != nil {
				return result, err
			}
		}
		// Every returned row left pending above, so the next batch is new rows.
		if len(due) < s.batchSize {
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
	}
}

func (s *Sweeper) process(ctx context.Context, reminder *models.AppointmentReminder, result *SweepResult) error {
	claimed, err := s.store.Transition(ctx, reminder.ID, models.ReminderPending, models.ReminderSending, nil)
	if err != nil {
		return err
	}
	if !claimed {
		result.Skipped++
		return nil
	}

	status := models.ReminderSent
	var sentAt *time.Time
	if err := s.deliver(ctx, reminder); err != nil {
		s.logger.Warn().Err(err).Str("reminder_id", reminder.ID).
			Str("appointment_id", reminder.AppointmentID).Msg("reminder delivery failed")
		status = models.ReminderFailed
	} else {
		now := s.now().UTC()
		sentAt = &now
	}

	if _, err := s.store.Transition(ctx, reminder.ID, models.ReminderSending, status, sentAt); err != nil {
		// The row stays in sending and is not picked up again.
		s.logger.Error().Err(err).Str("reminder_id", reminder.ID).
			Str("status", string(status)).Msg("failed to record reminder status")
	}
	s.metrics.ObserveReminder(string(status))
	if status == models.ReminderSent {
		result.Sent++
	} else {
		result.Failed++
	}
	return nil
}

func (s *Sweeper) deliver(ctx context.Context, reminder *models.AppointmentReminder) error {
	appt := &reminder.Appointment
	switch appt.Status {
	case models.StatusCancelled, models.StatusNoShow, models.StatusCompleted:
		return errAppointmentClosed
	}
	if appt.Patient.Email == "" {
		return errNoRecipient
	}
	return s.sender.Send(ctx, notify.ReminderEmail(appt, s.loc))
}

// Start runs a sweep immediately and then every interval until ctx ends.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.ProcessDue(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder sweep failed")
		return
	}
	if result.Sent+result.Failed+result.Skipped > 0 {
		s.logger.Info().Int("sent", result.Sent).Int("failed", result.Failed).
			Int("skipped", result.Skipped).Msg("reminder sweep finished")
	}
}
