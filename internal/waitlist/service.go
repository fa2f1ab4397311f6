package waitlist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinic-appointments-server/internal/access"
	"clinic-appointments-server/internal/metrics"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/notify"
	"clinic-appointments-server/internal/scheduling"
)

// AddInput describes a new waiting-list entry.
type AddInput struct {
	PatientID     string
	DoctorID      *string
	PreferredDate *time.Time
	Notes         string
}

// Service manages the waiting list.
type Service struct {
	store   Store
	sender  notify.EmailSender
	loc     *time.Location
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(store Store, sender notify.EmailSender, loc *time.Location, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:   store,
		sender:  sender,
		loc:     loc,
		metrics: m,
		logger:  logger.With().Str("component", "waitlist").Logger(),
		now:     time.Now,
	}
}

// List returns every entry, oldest first.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]models.WaitingListEntry, error) {
	if !access.CanManageWaitingList(actor) {
		return nil, scheduling.ErrNotAllowed
	}
	return s.store.List(ctx)
}

// Add puts a patient on the waiting list.
func (s *Service) Add(ctx context.Context, actor access.Actor, in AddInput) (*models.WaitingListEntry, error) {
	if !access.CanManageWaitingList(actor) {
		return nil, scheduling.ErrNotAllowed
	}
	if in.PatientID == "" {
		return nil, fmt.Errorf("%w: patientId is required", scheduling.ErrValidation)
	}
	entry := &models.WaitingListEntry{
		PatientID:     in.PatientID,
		DoctorID:      in.DoctorID,
		PreferredDate: in.PreferredDate,
		Notes:         in.Notes,
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, entry.ID)
}

// Remove deletes an entry.
func (s *Service) Remove(ctx context.Context, actor access.Actor, id string) error {
	if !access.CanManageWaitingList(actor) {
		return scheduling.ErrNotAllowed
	}
	return s.store.Delete(ctx, id)
}

// NotifyNext tells the longest-waiting patient of doctorID that a slot at
// freedAt opened. The entry is marked notified even when the email fails. It
// returns nil when nobody is waiting for that doctor.
func (s *Service) NotifyNext(ctx context.Context, doctorID string, freedAt time.Time) (*models.WaitingListEntry, error) {
	entry, err := s.store.ClaimOldest(ctx, doctorID, s.now().UTC())
	if err != nil {
		s.metrics.ObserveWaitlistNotification("failed")
		return nil, err
	}
	if entry == nil {
		s.metrics.ObserveWaitlistNotification("empty")
		return nil, nil
	}

	if entry.Patient.Email == "" {
		s.logger.Warn().Str("entry_id", entry.ID).Msg("waiting patient has no email address")
	} else if err := s.sender.Send(ctx, notify.SlotOpenedEmail(&entry.Patient, entry.Doctor, freedAt, s.loc)); err != nil {
		s.logger.Warn().Err(err).Str("entry_id", entry.ID).Msg("failed to email waiting patient")
	}
	s.metrics.ObserveWaitlistNotification("notified")
	s.logger.Info().Str("entry_id", entry.ID).Str("doctor_id", doctorID).Msg("waiting patient notified of freed slot")
	return entry, nil
}
