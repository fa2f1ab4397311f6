package models

import "time"

// WaitingListEntry is a patient waiting for a freed slot, optionally with a given doctor
type WaitingListEntry struct {
	BaseModel
	PatientID     string     `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID      *string    `gorm:"size:36;index" json:"doctorId,omitempty"`
	PreferredDate *time.Time `json:"preferredDate,omitempty"`
	Notes         string     `gorm:"type:text" json:"notes,omitempty"`
	NotifiedAt    *time.Time `json:"notifiedAt,omitempty"`

	Patient User  `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"-"`
}
