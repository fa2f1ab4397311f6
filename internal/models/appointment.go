package models

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "SCHEDULED"
	StatusConfirmed   AppointmentStatus = "CONFIRMED"
	StatusCheckedIn   AppointmentStatus = "CHECKED_IN"
	StatusCompleted   AppointmentStatus = "COMPLETED"
	StatusCancelled   AppointmentStatus = "CANCELLED"
	StatusNoShow      AppointmentStatus = "NO_SHOW"
	StatusRescheduled AppointmentStatus = "RESCHEDULED"
)

// transitions lists the statuses reachable from each status. Statuses with no
// entry are terminal.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled: {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusRescheduled, StatusNoShow},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled, StatusRescheduled, StatusNoShow},
	StatusCheckedIn: {StatusCompleted},
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusCompleted,
		StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s AppointmentStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AppointmentType classifies the visit
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeUrgent       AppointmentType = "urgent"
	TypeProcedure    AppointmentType = "procedure"
	TypeOther        AppointmentType = "other"
)

// Valid reports whether t is a known appointment type.
func (t AppointmentType) Valid() bool {
	switch t {
	case TypeConsultation, TypeFollowUp, TypeUrgent, TypeProcedure, TypeOther:
		return true
	}
	return false
}

// Appointment represents a scheduled medical appointment
type Appointment struct {
	BaseModel
	PatientID           string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID            string            `gorm:"size:36;index:idx_appointment_doctor_range,priority:1;not null" json:"doctorId"`
	ScheduledAt         time.Time         `gorm:"index:idx_appointment_doctor_range,priority:2;not null" json:"scheduledAt"`
	EndsAt              time.Time         `gorm:"not null" json:"endsAt"` // kept in sync with ScheduledAt+DurationMinutes
	DurationMinutes     int               `gorm:"not null" json:"durationMinutes"`
	Status              AppointmentStatus `gorm:"size:20;default:'SCHEDULED';index" json:"status"`
	Type                AppointmentType   `gorm:"size:20;default:'consultation'" json:"type"`
	Notes               string            `gorm:"type:text" json:"notes"`
	QRToken             string            `gorm:"size:64;uniqueIndex;not null" json:"qrToken"`
	CheckedInAt         *time.Time        `json:"checkedInAt,omitempty"`
	CancelledByID       *string           `gorm:"size:36" json:"cancelledById,omitempty"`
	CancellationReason  string            `gorm:"size:255" json:"cancellationReason,omitempty"`
	PreviousScheduledAt *time.Time        `json:"previousScheduledAt,omitempty"`
	RescheduleCount     int               `gorm:"default:0" json:"rescheduleCount"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}

// End returns the exclusive end of the appointment interval.
func (a *Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// BeforeSave keeps EndsAt derived from the start and duration.
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	a.EndsAt = a.End()
	return nil
}
