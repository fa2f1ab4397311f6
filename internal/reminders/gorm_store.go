package reminders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"clinic-appointments-server/internal/models"
)

// GormStore keeps reminders in MySQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, reminders []models.AppointmentReminder) error {
	return s.db.WithContext(ctx).Omit("Appointment").Create(&reminders).Error
}

func (s *GormStore) DeletePending(ctx context.Context, appointmentID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("appointment_id = ? AND status = ?", appointmentID, models.ReminderPending).
		Delete(&models.AppointmentReminder{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) Due(ctx context.Context, now time.Time, limit int) ([]models.AppointmentReminder, error) {
	var due []models.AppointmentReminder
	err := s.db.WithContext(ctx).
		Preload("Appointment.Patient").
		Preload("Appointment.Doctor").
		Where("status = ? AND scheduled_for <= ?", models.ReminderPending, now).
		Order("scheduled_for asc").
		Limit(limit).
		Find(&due).Error
	return due, err
}

func (s *GormStore) Transition(ctx context.Context, id string, from, to models.ReminderStatus, sentAt *time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.AppointmentReminder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "sent_at": sentAt})
	return res.RowsAffected == 1, res.Error
}
