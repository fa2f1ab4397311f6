package scheduling

import (
	"context"
	"time"

	"clinic-appointments-server/internal/models"
)

// AppointmentFilter narrows List queries. Zero fields are ignored.
type AppointmentFilter struct {
	Status    models.AppointmentStatus
	DoctorID  string
	PatientID string
	From      *time.Time
	To        *time.Time
}

// Store is the persistence boundary of the scheduling core. Lookups that find
// nothing return an error wrapping ErrNotFound.
type Store interface {
	// WithinTx runs fn against a store bound to one transaction. fn's error
	// rolls the transaction back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// LockDoctor takes a write lock on the doctor row for the rest of the
	// transaction, serialising bookings for that doctor.
	LockDoctor(ctx context.Context, doctorID string) error
	LockAppointment(ctx context.Context, id string) (*models.Appointment, error)

	GetWeekly(ctx context.Context, doctorID string, dayOfWeek int) (*models.WeeklyAvailability, error)
	ListWeekly(ctx context.Context, doctorID string) ([]models.WeeklyAvailability, error)
	UpsertWeekly(ctx context.Context, w *models.WeeklyAvailability) error

	GetException(ctx context.Context, doctorID, date string) (*models.AvailabilityException, error)
	GetExceptionByID(ctx context.Context, id string) (*models.AvailabilityException, error)
	ListExceptions(ctx context.Context, doctorID string) ([]models.AvailabilityException, error)
	CreateException(ctx context.Context, e *models.AvailabilityException) error
	DeleteException(ctx context.Context, id string) error

	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	GetAppointmentByQRToken(ctx context.Context, token string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	// ListStartingBetween returns the doctor's appointments with from <= scheduledAt < to.
	ListStartingBetween(ctx context.Context, doctorID string, from, to time.Time, exclude []models.AppointmentStatus) ([]models.Appointment, error)
	// ListOverlapping returns the doctor's appointments intersecting [start, end).
	ListOverlapping(ctx context.Context, doctorID string, start, end time.Time, exclude []models.AppointmentStatus) ([]models.Appointment, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	SaveAppointment(ctx context.Context, a *models.Appointment) error
}
