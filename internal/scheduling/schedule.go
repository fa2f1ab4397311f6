package scheduling

import (
	"context"
	"errors"

	"clinic-appointments-server/internal/access"
	"clinic-appointments-server/internal/models"
)

// WeeklyDayInput sets one weekday of a doctor's template.
type WeeklyDayInput struct {
	DoctorID            string
	DayOfWeek           int
	StartTime           string
	EndTime             string
	SlotDurationMinutes int
	IsActive            bool
}

// ExceptionInput overrides a doctor's template on one civil date. Start and
// end are required unless the day is blocked.
type ExceptionInput struct {
	DoctorID  string
	Date      string
	IsBlocked bool
	StartTime *string
	EndTime   *string
	Reason    string
}

func (s *Service) scheduleDoctor(actor access.Actor, requested string) (string, error) {
	doctorID, ok := access.ScheduleDoctor(actor, requested)
	if !ok {
		if actor.Role == models.RoleAdmin {
			return "", invalid("doctorId is required")
		}
		return "", ErrNotAllowed
	}
	return doctorID, nil
}

// WeeklySchedule returns seven entries indexed by weekday (0 = Sunday), nil
// where the day was never configured.
func (s *Service) WeeklySchedule(ctx context.Context, actor access.Actor, doctorID string) (days []*models.WeeklyAvailability, err error) {
	ctx, done := s.begin(ctx, "weekly_schedule")
	defer done(&err)

	doctorID, err = s.scheduleDoctor(actor, doctorID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListWeekly(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	days = make([]*models.WeeklyAvailability, 7)
	for i := range rows {
		if rows[i].DayOfWeek >= 0 && rows[i].DayOfWeek < 7 {
			days[rows[i].DayOfWeek] = &rows[i]
		}
	}
	return days, nil
}

// UpsertWeeklyDay creates or replaces the template for one weekday.
func (s *Service) UpsertWeeklyDay(ctx context.Context, actor access.Actor, in WeeklyDayInput) (day *models.WeeklyAvailability, err error) {
	ctx, done := s.begin(ctx, "upsert_weekly_day")
	defer done(&err)

	doctorID, err := s.scheduleDoctor(actor, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return nil, invalid("dayOfWeek must be between 0 and 6, got %d", in.DayOfWeek)
	}
	start, err := ParseClock(in.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(in.EndTime)
	if err != nil {
		return nil, err
	}
	if in.SlotDurationMinutes <= 0 {
		return nil, invalid("slotDurationMinutes must be positive")
	}
	if in.IsActive && start >= end {
		return nil, invalid("startTime must be before endTime")
	}

	row := &models.WeeklyAvailability{
		DoctorID:            doctorID,
		DayOfWeek:           in.DayOfWeek,
		StartTime:           start.String(),
		EndTime:             end.String(),
		SlotDurationMinutes: in.SlotDurationMinutes,
		IsActive:            in.IsActive,
	}
	if err := s.store.UpsertWeekly(ctx, row); err != nil {
		return nil, err
	}
	s.invalidate(ctx, doctorID)
	return s.store.GetWeekly(ctx, doctorID, in.DayOfWeek)
}

// Exceptions lists a doctor's exceptions ordered by date.
func (s *Service) Exceptions(ctx context.Context, actor access.Actor, doctorID string) (rows []models.AvailabilityException, err error) {
	ctx, done := s.begin(ctx, "list_exceptions")
	defer done(&err)

	doctorID, err = s.scheduleDoctor(actor, doctorID)
	if err != nil {
		return nil, err
	}
	return s.store.ListExceptions(ctx, doctorID)
}

// CreateException records a blocked day or special hours for one date.
func (s *Service) CreateException(ctx context.Context, actor access.Actor, in ExceptionInput) (exception *models.AvailabilityException, err error) {
	ctx, done := s.begin(ctx, "create_exception")
	defer done(&err)

	doctorID, err := s.scheduleDoctor(actor, in.DoctorID)
	if err != nil {
		return nil, err
	}
	day, err := ParseDate(in.Date, s.loc)
	if err != nil {
		return nil, err
	}

	row := &models.AvailabilityException{
		DoctorID:  doctorID,
		Date:      day.Format(dateLayout),
		IsBlocked: in.IsBlocked,
		Reason:    in.Reason,
	}
	if !in.IsBlocked {
		if in.StartTime == nil || in.EndTime == nil {
			return nil, invalid("startTime and endTime are required unless the day is blocked")
		}
		start, err := ParseClock(*in.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := ParseClock(*in.EndTime)
		if err != nil {
			return nil, err
		}
		if start >= end {
			return nil, invalid("startTime must be before endTime")
		}
		startStr, endStr := start.String(), end.String()
		row.StartTime, row.EndTime = &startStr, &endStr
	}

	if _, err := s.store.GetException(ctx, doctorID, row.Date); err == nil {
		return nil, ErrDuplicateException
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := s.store.CreateException(ctx, row); err != nil {
		return nil, err
	}
	s.invalidate(ctx, doctorID)
	return row, nil
}

// DeleteException removes an exception owned by the actor, or any exception
// when the actor is an admin.
func (s *Service) DeleteException(ctx context.Context, actor access.Actor, id string) (err error) {
	ctx, done := s.begin(ctx, "delete_exception")
	defer done(&err)

	if actor.Role != models.RoleAdmin && actor.Role != models.RoleDoctor {
		return ErrNotAllowed
	}
	exception, err := s.store.GetExceptionByID(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleDoctor && exception.DoctorID != actor.ID {
		return ErrNotAllowed
	}
	if err := s.store.DeleteException(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, exception.DoctorID)
	return nil
}
