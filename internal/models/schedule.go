package models

// WeeklyAvailability is a doctor's recurring template for one weekday
type WeeklyAvailability struct {
	BaseModel
	DoctorID            string `gorm:"size:36;not null;uniqueIndex:idx_weekly_doctor_day,priority:1" json:"doctorId"`
	DayOfWeek           int    `gorm:"not null;uniqueIndex:idx_weekly_doctor_day,priority:2" json:"dayOfWeek"` // 0=Sunday...6=Saturday
	StartTime           string `gorm:"size:5;not null" json:"startTime"`                                       // "09:00"
	EndTime             string `gorm:"size:5;not null" json:"endTime"`                                         // "17:00"
	SlotDurationMinutes int    `gorm:"not null;default:30" json:"slotDurationMinutes"`
	IsActive            bool   `gorm:"not null" json:"isActive"`

	Doctor User `gorm:"foreignKey:DoctorID" json:"-"`
}

// AvailabilityException overrides a doctor's weekly template on one calendar date
type AvailabilityException struct {
	BaseModel
	DoctorID  string  `gorm:"size:36;not null;uniqueIndex:idx_exception_doctor_date,priority:1" json:"doctorId"`
	Date      string  `gorm:"size:10;not null;uniqueIndex:idx_exception_doctor_date,priority:2" json:"date"` // "2006-01-02", clinic civil date
	IsBlocked bool    `gorm:"not null" json:"isBlocked"`
	StartTime *string `gorm:"size:5" json:"startTime,omitempty"`
	EndTime   *string `gorm:"size:5" json:"endTime,omitempty"`
	Reason    string  `gorm:"size:255" json:"reason,omitempty"`

	Doctor User `gorm:"foreignKey:DoctorID" json:"-"`
}
