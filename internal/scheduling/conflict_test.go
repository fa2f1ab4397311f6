package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clinic-appointments-server/internal/models"
)

func appointmentAt(id string, start time.Time, minutes int, status models.AppointmentStatus) models.Appointment {
	a := models.Appointment{DoctorID: "doc-1", ScheduledAt: start, DurationMinutes: minutes, Status: status}
	a.ID = id
	return a
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	base := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	assert.True(t, Overlaps(at(0), at(30), at(15), at(45)))
	assert.True(t, Overlaps(at(15), at(45), at(0), at(30)))
	assert.True(t, Overlaps(at(0), at(60), at(15), at(30)))
	assert.False(t, Overlaps(at(0), at(30), at(30), at(60)))
	assert.False(t, Overlaps(at(30), at(60), at(0), at(30)))
}

func TestHasConflict(t *testing.T) {
	ten := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	existing := []models.Appointment{appointmentAt("a1", ten, 30, models.StatusScheduled)}

	tests := []struct {
		name    string
		start   time.Time
		minutes int
		exclude string
		want    bool
	}{
		{"overlapping start", ten.Add(15 * time.Minute), 30, "", true},
		{"overlapping end", ten.Add(-15 * time.Minute), 30, "", true},
		{"ends when other begins", ten.Add(-30 * time.Minute), 30, "", false},
		{"begins when other ends", ten.Add(30 * time.Minute), 30, "", false},
		{"excluded self", ten, 30, "a1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasConflict(existing, tt.start, tt.minutes, tt.exclude))
		})
	}
}

func TestHasConflictIgnoresReleasedStatuses(t *testing.T) {
	ten := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	for _, status := range []models.AppointmentStatus{models.StatusCancelled, models.StatusNoShow, models.StatusRescheduled} {
		existing := []models.Appointment{appointmentAt("a1", ten, 30, status)}
		assert.False(t, HasConflict(existing, ten, 30, ""), status)
	}
	for _, status := range []models.AppointmentStatus{models.StatusScheduled, models.StatusConfirmed, models.StatusCheckedIn, models.StatusCompleted} {
		existing := []models.Appointment{appointmentAt("a1", ten, 30, status)}
		assert.True(t, HasConflict(existing, ten, 30, ""), status)
	}
}
