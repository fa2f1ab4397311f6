package scheduling

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clinic-appointments-server/internal/access"
	"clinic-appointments-server/internal/events"
	"clinic-appointments-server/internal/models"
)

// CreateInput describes a new booking. Zero DurationMinutes and Type take the
// clinic defaults.
type CreateInput struct {
	PatientID       string
	DoctorID        string
	ScheduledAt     time.Time
	DurationMinutes int
	Type            models.AppointmentType
	Notes           string
}

// UpdateInput holds the editable fields of an appointment. Nil fields are left
// unchanged.
type UpdateInput struct {
	Status *models.AppointmentStatus
	Notes  *string
	Type   *models.AppointmentType
}

// RescheduleInput moves an appointment. Zero DurationMinutes keeps the
// current duration.
type RescheduleInput struct {
	ScheduledAt     time.Time
	DurationMinutes int
}

// ListAvailableSlots returns the slots of doctorID on the civil date
// "YYYY-MM-DD".
func (s *Service) ListAvailableSlots(ctx context.Context, actor access.Actor, doctorID, date string) (slots []Slot, err error) {
	ctx, done := s.begin(ctx, "available_slots")
	defer done(&err)

	if !access.CanViewSlots(actor) {
		return nil, ErrNotAllowed
	}
	if doctorID == "" {
		return nil, invalid("doctorId is required")
	}
	return s.GenerateSlots(ctx, doctorID, date)
}

// GenerateSlots loads the day plan for doctorID on date and runs the slot
// generator over it. Results are cached per doctor and date.
func (s *Service) GenerateSlots(ctx context.Context, doctorID, date string) ([]Slot, error) {
	day, err := ParseDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(doctorID, date); ok {
		s.metrics.ObserveSlotLookup(true)
		return cached, nil
	}
	s.metrics.ObserveSlotLookup(false)
	gen := s.cache.Generation(doctorID)

	plan := DayPlan{Day: day, Location: s.loc}

	exception, err := s.store.GetException(ctx, doctorID, date)
	switch {
	case err == nil:
		plan.Exception = exception
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	if exception == nil || !exception.IsBlocked {
		weekly, err := s.store.GetWeekly(ctx, doctorID, int(day.Weekday()))
		switch {
		case err == nil:
			plan.Weekly = weekly
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	if plan.Weekly != nil && plan.Weekly.IsActive && (exception == nil || !exception.IsBlocked) {
		from, to := dayBounds(day, s.loc)
		plan.Appointments, err = s.store.ListStartingBetween(ctx, doctorID, from, to, slotIgnoredStatuses)
		if err != nil {
			return nil, err
		}
	}

	slots, err := GenerateSlots(plan)
	if err != nil {
		return nil, err
	}
	s.cache.Put(doctorID, date, gen, slots)
	return slots, nil
}

// HasConflict reports whether doctorID already holds an appointment
// overlapping [start, start+durationMinutes), ignoring excludeID.
func (s *Service) HasConflict(ctx context.Context, doctorID string, start time.Time, durationMinutes int, excludeID string) (bool, error) {
	return hasConflict(ctx, s.store, doctorID, start, durationMinutes, excludeID)
}

func hasConflict(ctx context.Context, store Store, doctorID string, start time.Time, durationMinutes int, excludeID string) (bool, error) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	existing, err := store.ListOverlapping(ctx, doctorID, start, end, conflictIgnoredStatuses)
	if err != nil {
		return false, err
	}
	return HasConflict(existing, start, durationMinutes, excludeID), nil
}

// Create books a new appointment. The conflict check and the insert share a
// transaction holding the doctor's row lock.
func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (appt *models.Appointment, err error) {
	ctx, done := s.begin(ctx, "create")
	defer done(&err)

	if in.PatientID == "" || in.DoctorID == "" {
		return nil, invalid("patientId and doctorId are required")
	}
	if !access.CanBook(actor, in.DoctorID) {
		return nil, ErrNotAllowed
	}
	if in.ScheduledAt.IsZero() {
		return nil, invalid("scheduledAt is required")
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = s.defaultDuration
	}
	if in.DurationMinutes < 0 {
		return nil, invalid("durationMinutes must be positive")
	}
	if in.Type == "" {
		in.Type = models.TypeConsultation
	}
	if !in.Type.Valid() {
		return nil, invalid("unknown appointment type %q", in.Type)
	}
	if !in.ScheduledAt.After(s.now()) {
		return nil, invalid("appointment must be scheduled in the future")
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("clinic.doctor_id", in.DoctorID))

	created := &models.Appointment{
		PatientID:       in.PatientID,
		DoctorID:        in.DoctorID,
		ScheduledAt:     in.ScheduledAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Status:          models.StatusScheduled,
		Type:            in.Type,
		Notes:           in.Notes,
		QRToken:         s.newToken(),
	}
	err = s.store.WithinTx(ctx, func(tx Store) error {
		if err := tx.LockDoctor(ctx, in.DoctorID); err != nil {
			return err
		}
		conflict, err := hasConflict(ctx, tx, in.DoctorID, created.ScheduledAt, created.DurationMinutes, "")
		if err != nil {
			return err
		}
		if conflict {
			return ErrDoubleBooking
		}
		return tx.CreateAppointment(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, created.DoctorID)
	s.publish(ctx, events.NewIntent(events.AppointmentBooked, created.ID, created.DoctorID, created.ScheduledAt))
	s.logger.Info().Str("appointment_id", created.ID).Str("doctor_id", created.DoctorID).
		Time("scheduled_at", created.ScheduledAt).Msg("appointment booked")

	return s.store.GetAppointment(ctx, created.ID)
}

// Get returns one appointment the actor may see.
func (s *Service) Get(ctx context.Context, actor access.Actor, id string) (appt *models.Appointment, err error) {
	ctx, done := s.begin(ctx, "get")
	defer done(&err)

	appt, err = s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanView(actor, appt) {
		return nil, ErrNotAllowed
	}
	return appt, nil
}

// List returns appointments matching filter. Patients only ever see their own;
// doctors see their own unless they name another doctor.
func (s *Service) List(ctx context.Context, actor access.Actor, filter AppointmentFilter) (appts []models.Appointment, err error) {
	ctx, done := s.begin(ctx, "list")
	defer done(&err)

	switch actor.Role {
	case models.RolePatient:
		filter.PatientID = actor.ID
	case models.RoleDoctor:
		if filter.DoctorID == "" {
			filter.DoctorID = actor.ID
		}
	case models.RoleAdmin, models.RoleNurse, models.RoleReceptionist:
	default:
		return nil, ErrNotAllowed
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown status %q", filter.Status)
	}
	return s.store.ListAppointments(ctx, filter)
}

// GetByQRToken returns the appointment behind a check-in token.
func (s *Service) GetByQRToken(ctx context.Context, token string) (appt *models.Appointment, err error) {
	ctx, done := s.begin(ctx, "get_by_qr")
	defer done(&err)

	return s.store.GetAppointmentByQRToken(ctx, token)
}

// Update edits status, notes and type. Status changes follow the same
// transition table as the dedicated operations, except that RESCHEDULED is
// rejected.
func (s *Service) Update(ctx context.Context, actor access.Actor, id string, in UpdateInput) (appt *models.Appointment, err error) {
	ctx, done := s.begin(ctx, "update")
	defer done(&err)

	if in.Status != nil && !in.Status.Valid() {
		return nil, invalid("unknown status %q", *in.Status)
	}
	// Only Reschedule moves an appointment; a RESCHEDULED row is not conflict-checked.
	if in.Status != nil && *in.Status == models.StatusRescheduled {
		return nil, invalid("status %s is only set by rescheduling", models.StatusRescheduled)
	}
	if in.Type != nil && !in.Type.Valid() {
		return nil, invalid("unknown appointment type %q", *in.Type)
	}

	var changed *models.Appointment
	var previous models.AppointmentStatus
	err = s.store.WithinTx(ctx, func(tx Store) error {
		current, err := tx.LockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if !access.CanManageAppointment(actor, current) {
			return ErrNotAllowed
		}
		previous = current.Status
		if in.Status != nil && *in.Status != current.Status {
			if !current.Status.CanTransitionTo(*in.Status) {
				return ErrInvalidTransition
			}
			s.applyStatus(current, *in.Status, actor)
		}
		if in.Notes != nil {
			current.Notes = *in.Notes
		}
		if in.Type != nil {
			current.Type = *in.Type
		}
		changed = current
		return tx.SaveAppointment(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	if changed.Status != previous {
		s.invalidate(ctx, changed.DoctorID)
		if changed.Status == models.StatusCancelled {
			s.publish(ctx, events.NewIntent(events.AppointmentCancelled, changed.ID, changed.DoctorID, changed.ScheduledAt))
		}
	}
	return s.store.GetAppointment(ctx, changed.ID)
}

// applyStatus sets next and the bookkeeping fields that go with it.
func (s *Service) applyStatus(appt *models.Appointment, next models.AppointmentStatus, actor access.Actor) {
	appt.Status = next
	switch next {
	case models.StatusCheckedIn:
		now := s.now().UTC()
		appt.CheckedInAt = &now
	case models.StatusCancelled:
		by := actor.ID
		appt.CancelledByID = &by
	}
}

// Cancel moves the appointment to CANCELLED and frees its slot.
func (s *Service) Cancel(ctx context.Context, actor access.Actor, id, reason string) (appt *models.Appointment, err error) {
	ctx, done := s.begin(ctx, "cancel")
	defer done(&err)

	var cancelled *models.Appointment
	err = s.store.WithinTx(ctx, func(tx Store) error {
		current, err := tx.LockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if !access.CanCancel(actor, current) {
			return ErrNotAllowed
		}
		if current.Status == models.StatusCancelled {
			return ErrAlreadyCancelled
		}
		if !current.Status.CanTransitionTo(models.StatusCancelled) {
			return ErrInvalidTransition
		}
		s.applyStatus(current, models.StatusCancelled, actor)
		current.CancellationReason = reason
		cancelled = current
		return tx.SaveAppointment(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cancelled.DoctorID)
	s.publish(ctx, events.NewIntent(events.AppointmentCancelled, cancelled.ID, cancelled.DoctorID, cancelled.ScheduledAt))
	s.logger.Info().Str("appointment_id", cancelled.ID).Str("cancelled_by", actor.ID).Msg("appointment cancelled")

	return s.store.GetAppointment(ctx, cancelled.ID)
}

// Reschedule moves an appointment to a new time. The record returns to
// SCHEDULED so its new range stays protected by the conflict check.
func (s *Service) Reschedule(ctx context.Context, actor access.Actor, id string, in RescheduleInput) (appt *models.Appointment, err error) {
	ctx, done := s.begin(ctx, "reschedule")
	defer done(&err)

	if in.ScheduledAt.IsZero() {
		return nil, invalid("scheduledAt is required")
	}
	if in.DurationMinutes < 0 {
		return nil, invalid("durationMinutes must be positive")
	}
	if !in.ScheduledAt.After(s.now()) {
		return nil, invalid("appointment must be scheduled in the future")
	}

	// Lock order is doctor then appointment, as in Create.
	existing, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	var moved *models.Appointment
	var previousStart time.Time
	err = s.store.WithinTx(ctx, func(tx Store) error {
		if err := tx.LockDoctor(ctx, existing.DoctorID); err != nil {
			return err
		}
		current, err := tx.LockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if !access.CanManageAppointment(actor, current) {
			return ErrNotAllowed
		}
		if current.Status == models.StatusCancelled {
			return ErrAppointmentCancelled
		}
		if !current.Status.CanTransitionTo(models.StatusRescheduled) {
			return ErrInvalidTransition
		}

		duration := in.DurationMinutes
		if duration == 0 {
			duration = current.DurationMinutes
		}
		start := in.ScheduledAt.UTC()
		conflict, err := hasConflict(ctx, tx, current.DoctorID, start, duration, current.ID)
		if err != nil {
			return err
		}
		if conflict {
			return ErrDoubleBooking
		}

		previousStart = current.ScheduledAt
		current.PreviousScheduledAt = &previousStart
		current.ScheduledAt = start
		current.DurationMinutes = duration
		current.Status = models.StatusScheduled
		current.RescheduleCount++
		moved = current
		return tx.SaveAppointment(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, moved.DoctorID)
	intent := events.NewIntent(events.AppointmentRescheduled, moved.ID, moved.DoctorID, moved.ScheduledAt)
	intent.PreviousScheduledAt = &previousStart
	s.publish(ctx, intent)
	s.logger.Info().Str("appointment_id", moved.ID).Time("from", previousStart).
		Time("to", moved.ScheduledAt).Msg("appointment rescheduled")

	return s.store.GetAppointment(ctx, moved.ID)
}

// CheckIn marks the patient behind qrToken as arrived.
func (s *Service) CheckIn(ctx context.Context, actor access.Actor, qrToken string) (appt *models.Appointment, err error) {
	ctx, done := s.begin(ctx, "check_in")
	defer done(&err)

	if !access.CanCheckIn(actor) {
		return nil, ErrNotAllowed
	}
	found, err := s.store.GetAppointmentByQRToken(ctx, qrToken)
	if err != nil {
		return nil, err
	}

	var checkedIn *models.Appointment
	err = s.store.WithinTx(ctx, func(tx Store) error {
		current, err := tx.LockAppointment(ctx, found.ID)
		if err != nil {
			return err
		}
		switch {
		case current.Status == models.StatusCheckedIn:
			return ErrAlreadyCheckedIn
		case current.Status == models.StatusCancelled:
			return ErrAppointmentCancelled
		case !current.Status.CanTransitionTo(models.StatusCheckedIn):
			return ErrInvalidTransition
		}
		s.applyStatus(current, models.StatusCheckedIn, actor)
		checkedIn = current
		return tx.SaveAppointment(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("appointment_id", checkedIn.ID).Str("checked_in_by", actor.ID).Msg("patient checked in")
	return s.store.GetAppointment(ctx, checkedIn.ID)
}
