package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-appointments-server/internal/models"
)

// MySQL error numbers translated into scheduling errors.
const (
	mysqlDuplicateEntry   = 1062
	mysqlForeignKeyFailed = 1452
)

// GormStore implements Store on MySQL through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) LockDoctor(ctx context.Context, doctorID string) error {
	var doctor models.User
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ? AND role = ? AND is_active = ?", doctorID, models.RoleDoctor, true).
		First(&doctor).Error
	return translateError(err, ErrDoctorNotFound, ErrDuplicateRecord)
}

func (s *GormStore) LockAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&appt, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, ErrAppointmentNotFound, ErrDuplicateRecord)
	}
	return &appt, nil
}

func (s *GormStore) GetWeekly(ctx context.Context, doctorID string, dayOfWeek int) (*models.WeeklyAvailability, error) {
	var w models.WeeklyAvailability
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ?", doctorID, dayOfWeek).
		First(&w).Error
	if err != nil {
		return nil, translateError(err, ErrWeeklyNotFound, ErrDuplicateRecord)
	}
	return &w, nil
}

func (s *GormStore) ListWeekly(ctx context.Context, doctorID string) ([]models.WeeklyAvailability, error) {
	var rows []models.WeeklyAvailability
	err := s.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("day_of_week asc").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) UpsertWeekly(ctx context.Context, w *models.WeeklyAvailability) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "day_of_week"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_time", "end_time", "slot_duration_minutes", "is_active", "updated_at"}),
		}).
		Create(w).Error
	return translateError(err, ErrWeeklyNotFound, ErrDuplicateRecord)
}

func (s *GormStore) GetException(ctx context.Context, doctorID, date string) (*models.AvailabilityException, error) {
	var e models.AvailabilityException
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND date = ?", doctorID, date).
		First(&e).Error
	if err != nil {
		return nil, translateError(err, ErrExceptionNotFound, ErrDuplicateRecord)
	}
	return &e, nil
}

func (s *GormStore) GetExceptionByID(ctx context.Context, id string) (*models.AvailabilityException, error) {
	var e models.AvailabilityException
	if err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translateError(err, ErrExceptionNotFound, ErrDuplicateRecord)
	}
	return &e, nil
}

func (s *GormStore) ListExceptions(ctx context.Context, doctorID string) ([]models.AvailabilityException, error) {
	var rows []models.AvailabilityException
	err := s.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("date asc").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) CreateException(ctx context.Context, e *models.AvailabilityException) error {
	err := s.db.WithContext(ctx).Create(e).Error
	return translateError(err, ErrExceptionNotFound, ErrDuplicateException)
}

func (s *GormStore) DeleteException(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.AvailabilityException{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrExceptionNotFound
	}
	return nil
}

func (s *GormStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Patient").Preload("Doctor").
		First(&appt, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, ErrAppointmentNotFound, ErrDuplicateRecord)
	}
	return &appt, nil
}

func (s *GormStore) GetAppointmentByQRToken(ctx context.Context, token string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Patient").Preload("Doctor").
		First(&appt, "qr_token = ?", token).Error
	if err != nil {
		return nil, translateError(err, ErrAppointmentNotFound, ErrDuplicateRecord)
	}
	return &appt, nil
}

func (s *GormStore) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).Preload("Patient").Preload("Doctor").Order("scheduled_at asc")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DoctorID != "" {
		query = query.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.From != nil {
		query = query.Where("scheduled_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("scheduled_at <= ?", *filter.To)
	}

	var appointments []models.Appointment
	err := query.Find(&appointments).Error
	return appointments, err
}

func (s *GormStore) ListStartingBetween(ctx context.Context, doctorID string, from, to time.Time, exclude []models.AppointmentStatus) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).
		Where("doctor_id = ? AND scheduled_at >= ? AND scheduled_at < ?", doctorID, from, to)
	if len(exclude) > 0 {
		query = query.Where("status NOT IN ?", exclude)
	}
	var appointments []models.Appointment
	err := query.Order("scheduled_at asc").Find(&appointments).Error
	return appointments, err
}

func (s *GormStore) ListOverlapping(ctx context.Context, doctorID string, start, end time.Time, exclude []models.AppointmentStatus) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).
		Where("doctor_id = ? AND scheduled_at < ? AND ends_at > ?", doctorID, end, start)
	if len(exclude) > 0 {
		query = query.Where("status NOT IN ?", exclude)
	}
	var appointments []models.Appointment
	err := query.Find(&appointments).Error
	return appointments, err
}

func (s *GormStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
	return translateError(err, ErrAppointmentNotFound, ErrDuplicateRecord)
}

func (s *GormStore) SaveAppointment(ctx context.Context, a *models.Appointment) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Save(a).Error
	return translateError(err, ErrAppointmentNotFound, ErrDuplicateRecord)
}

// translateError maps gorm and MySQL failures onto the scheduling error kinds.
func translateError(err, notFound, duplicate error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return duplicate
		case mysqlForeignKeyFailed:
			return ErrInvalidReference
		}
	}
	return err
}
