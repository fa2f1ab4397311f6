package reminders

import "errors"

var (
	errAppointmentClosed = errors.New("appointment is no longer active")
	errNoRecipient       = errors.New("patient has no email address")
)
