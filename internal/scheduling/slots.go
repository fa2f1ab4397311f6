package scheduling

import (
	"time"

	"clinic-appointments-server/internal/models"
)

// Slot is a bookable start time on a doctor's day.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// slotIgnoredStatuses do not occupy a slot in the availability view.
var slotIgnoredStatuses = []models.AppointmentStatus{models.StatusCancelled, models.StatusNoShow}

// DayPlan is everything GenerateSlots needs for one doctor and one civil date.
type DayPlan struct {
	Day          time.Time // local midnight of the civil date
	Location     *time.Location
	Weekly       *models.WeeklyAvailability // nil when the weekday is not configured
	Exception    *models.AvailabilityException
	Appointments []models.Appointment // appointments starting on Day
}

// GenerateSlots turns a day plan into ordered slots. It does not touch any
// store and returns an empty slice when the doctor does not work that day.
func GenerateSlots(plan DayPlan) ([]Slot, error) {
	slots := []Slot{}

	if plan.Exception != nil && plan.Exception.IsBlocked {
		return slots, nil
	}
	if plan.Weekly == nil || !plan.Weekly.IsActive {
		return slots, nil
	}

	startStr, endStr := plan.Weekly.StartTime, plan.Weekly.EndTime
	if plan.Exception != nil && plan.Exception.StartTime != nil && plan.Exception.EndTime != nil {
		startStr, endStr = *plan.Exception.StartTime, *plan.Exception.EndTime
	}
	windowStart, err := ParseClock(startStr)
	if err != nil {
		return nil, err
	}
	windowEnd, err := ParseClock(endStr)
	if err != nil {
		return nil, err
	}
	step := plan.Weekly.SlotDurationMinutes
	if step <= 0 {
		return nil, invalid("slot duration must be positive, got %d", step)
	}

	loc := plan.Location
	if loc == nil {
		loc = plan.Day.Location()
	}
	slotLength := time.Duration(step) * time.Minute

	for m := windowStart; m+ClockTime(step) <= windowEnd; m += ClockTime(step) {
		slotStart := m.On(plan.Day, loc)
		slotEnd := slotStart.Add(slotLength)

		booked := false
		for i := range plan.Appointments {
			appt := &plan.Appointments[i]
			if statusIn(appt.Status, slotIgnoredStatuses) {
				continue
			}
			if Overlaps(slotStart, slotEnd, appt.ScheduledAt, appt.End()) {
				booked = true
				break
			}
		}

		slots = append(slots, Slot{Time: m.String(), Available: !booked})
	}

	return slots, nil
}
