package scheduling

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

var (
	ErrAppointmentNotFound = fmt.Errorf("%w: appointment not found", ErrNotFound)
	ErrDoctorNotFound      = fmt.Errorf("%w: doctor not found or inactive", ErrNotFound)
	ErrExceptionNotFound   = fmt.Errorf("%w: availability exception not found", ErrNotFound)
	ErrWeeklyNotFound      = fmt.Errorf("%w: weekly availability not configured", ErrNotFound)

	ErrDoubleBooking        = fmt.Errorf("%w: doctor already has an appointment in that time range", ErrConflict)
	ErrAlreadyCancelled     = fmt.Errorf("%w: appointment is already cancelled", ErrConflict)
	ErrAlreadyCheckedIn     = fmt.Errorf("%w: patient already checked in", ErrConflict)
	ErrAppointmentCancelled = fmt.Errorf("%w: appointment is cancelled", ErrConflict)
	ErrInvalidTransition    = fmt.Errorf("%w: status transition not allowed", ErrConflict)
	ErrDuplicateException   = fmt.Errorf("%w: an exception already exists for that date", ErrConflict)
	ErrDuplicateRecord      = fmt.Errorf("%w: duplicate record", ErrConflict)

	ErrNotAllowed       = fmt.Errorf("%w: actor may not perform this operation", ErrForbidden)
	ErrInvalidReference = fmt.Errorf("%w: patient or doctor does not exist", ErrValidation)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Kind names the error kind of err for logs and metrics: "ok", "not_found",
// "conflict", "forbidden", "validation" or "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "validation"
	}
	return "internal"
}
