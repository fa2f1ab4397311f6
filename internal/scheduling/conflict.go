package scheduling

import (
	"time"

	"clinic-appointments-server/internal/models"
)

// conflictIgnoredStatuses no longer hold their time range.
var conflictIgnoredStatuses = []models.AppointmentStatus{
	models.StatusCancelled,
	models.StatusNoShow,
	models.StatusRescheduled,
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// HasConflict reports whether [start, start+duration) overlaps any appointment
// in existing that still holds its time range. excludeID skips the appointment
// being moved.
func HasConflict(existing []models.Appointment, start time.Time, durationMinutes int, excludeID string) bool {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	for i := range existing {
		appt := &existing[i]
		if excludeID != "" && appt.ID == excludeID {
			continue
		}
		if statusIn(appt.Status, conflictIgnoredStatuses) {
			continue
		}
		if Overlaps(start, end, appt.ScheduledAt, appt.End()) {
			return true
		}
	}
	return false
}

func statusIn(s models.AppointmentStatus, set []models.AppointmentStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
