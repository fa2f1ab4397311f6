package notify

import (
	"fmt"
	"time"

	"clinic-appointments-server/internal/models"
)

const whenLayout = "Monday 2 January 2006 at 15:04"

// ReminderEmail builds the reminder sent ahead of an appointment.
func ReminderEmail(appt *models.Appointment, loc *time.Location) EmailMessage {
	when := appt.ScheduledAt.In(loc).Format(whenLayout)
	doctor := appt.Doctor.FullName()
	return EmailMessage{
		To:      appt.Patient.Email,
		ToName:  appt.Patient.FullName(),
		Subject: "Appointment reminder",
		Body: fmt.Sprintf("Hello %s,\n\nThis is a reminder of your appointment with Dr. %s on %s.\n"+
			"Show this code at reception to check in: %s\n",
			appt.Patient.FirstName, doctor, when, appt.QRToken),
	}
}

// SlotOpenedEmail tells a waiting patient that a doctor has a freed slot.
func SlotOpenedEmail(patient *models.User, doctor *models.User, freedAt time.Time, loc *time.Location) EmailMessage {
	body := fmt.Sprintf("Hello %s,\n\nA slot has opened on %s", patient.FirstName, freedAt.In(loc).Format(whenLayout))
	if doctor != nil {
		body += " with Dr. " + doctor.FullName()
	}
	body += ". Contact the clinic to book it.\n"
	return EmailMessage{
		To:      patient.Email,
		ToName:  patient.FullName(),
		Subject: "An appointment slot is available",
		Body:    body,
	}
}
