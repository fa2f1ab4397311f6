// Package access holds the authorization rules of the scheduling API as pure
// predicates over the calling actor.
package access

import "clinic-appointments-server/internal/models"

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role models.Role
}

func (a Actor) is(roles ...models.Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// CanViewSlots reports whether the actor may read a doctor's available slots.
func CanViewSlots(a Actor) bool {
	return a.is(models.StaffRoles...)
}

// CanBook reports whether the actor may create an appointment for doctorID.
// Doctors book only on their own schedule.
func CanBook(a Actor, doctorID string) bool {
	switch a.Role {
	case models.RoleAdmin, models.RoleReceptionist:
		return true
	case models.RoleDoctor:
		return a.ID == doctorID
	}
	return false
}

// CanManageAppointment covers update and reschedule.
func CanManageAppointment(a Actor, appt *models.Appointment) bool {
	switch a.Role {
	case models.RoleAdmin, models.RoleReceptionist:
		return true
	case models.RoleDoctor:
		return a.ID == appt.DoctorID
	}
	return false
}

// CanCancel reports whether the actor may cancel appt. Patients may cancel
// their own appointments.
func CanCancel(a Actor, appt *models.Appointment) bool {
	if a.Role == models.RolePatient {
		return a.ID == appt.PatientID
	}
	return CanManageAppointment(a, appt)
}

// CanView reports whether the actor may read appt.
func CanView(a Actor, appt *models.Appointment) bool {
	if a.Role == models.RolePatient {
		return a.ID == appt.PatientID
	}
	return a.is(models.StaffRoles...)
}

// CanCheckIn reports whether the actor may check a patient in at the desk.
func CanCheckIn(a Actor) bool {
	return a.is(models.RoleAdmin, models.RoleNurse, models.RoleReceptionist)
}

// ScheduleDoctor resolves whose schedule the actor is acting on. Doctors always
// act on their own; admins must name one.
func ScheduleDoctor(a Actor, requested string) (string, bool) {
	switch a.Role {
	case models.RoleDoctor:
		if requested != "" && requested != a.ID {
			return "", false
		}
		return a.ID, true
	case models.RoleAdmin:
		return requested, requested != ""
	}
	return "", false
}

// CanManageWaitingList reports whether the actor may read or edit the waiting list.
func CanManageWaitingList(a Actor) bool {
	return a.is(models.RoleAdmin, models.RoleReceptionist)
}
