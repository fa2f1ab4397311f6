package models

import "time"

// ReminderStatus is the delivery state of a reminder
type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSending ReminderStatus = "sending" // claimed by a sweep, delivery in progress
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

// AppointmentReminder is a single notification due before an appointment
type AppointmentReminder struct {
	BaseModel
	AppointmentID string         `gorm:"size:36;index;not null" json:"appointmentId"`
	Channel       string         `gorm:"size:20;not null" json:"channel"`
	ScheduledFor  time.Time      `gorm:"index;not null" json:"scheduledFor"`
	Status        ReminderStatus `gorm:"size:20;default:'pending';index" json:"status"`
	SentAt        *time.Time     `json:"sentAt,omitempty"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE" json:"-"`
}
