package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"clinic-appointments-server/internal/models"
)

var (
	admin        = Actor{ID: "a1", Role: models.RoleAdmin}
	doctor       = Actor{ID: "d1", Role: models.RoleDoctor}
	otherDoctor  = Actor{ID: "d2", Role: models.RoleDoctor}
	nurse        = Actor{ID: "n1", Role: models.RoleNurse}
	receptionist = Actor{ID: "r1", Role: models.RoleReceptionist}
	patient      = Actor{ID: "p1", Role: models.RolePatient}
	otherPatient = Actor{ID: "p2", Role: models.RolePatient}
)

func TestCanViewSlots(t *testing.T) {
	assert.True(t, CanViewSlots(admin))
	assert.True(t, CanViewSlots(doctor))
	assert.True(t, CanViewSlots(nurse))
	assert.True(t, CanViewSlots(receptionist))
	assert.False(t, CanViewSlots(patient))
}

func TestCanBook(t *testing.T) {
	assert.True(t, CanBook(admin, "d1"))
	assert.True(t, CanBook(receptionist, "d1"))
	assert.True(t, CanBook(doctor, "d1"))
	assert.False(t, CanBook(otherDoctor, "d1"))
	assert.False(t, CanBook(nurse, "d1"))
	assert.False(t, CanBook(patient, "d1"))
}

func TestAppointmentPredicates(t *testing.T) {
	appt := &models.Appointment{DoctorID: "d1", PatientID: "p1"}

	assert.True(t, CanManageAppointment(doctor, appt))
	assert.False(t, CanManageAppointment(otherDoctor, appt))
	assert.False(t, CanManageAppointment(patient, appt))

	assert.True(t, CanCancel(patient, appt))
	assert.False(t, CanCancel(otherPatient, appt))
	assert.False(t, CanCancel(nurse, appt))

	assert.True(t, CanView(nurse, appt))
	assert.True(t, CanView(patient, appt))
	assert.False(t, CanView(otherPatient, appt))
}

func TestCanCheckIn(t *testing.T) {
	assert.True(t, CanCheckIn(nurse))
	assert.True(t, CanCheckIn(receptionist))
	assert.False(t, CanCheckIn(doctor))
	assert.False(t, CanCheckIn(patient))
}

func TestScheduleDoctor(t *testing.T) {
	tests := []struct {
		name      string
		actor     Actor
		requested string
		want      string
		ok        bool
	}{
		{"doctor defaults to self", doctor, "", "d1", true},
		{"doctor names self", doctor, "d1", "d1", true},
		{"doctor names other", doctor, "d2", "", false},
		{"admin names doctor", admin, "d2", "d2", true},
		{"admin without doctor", admin, "", "", false},
		{"receptionist", receptionist, "d1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ScheduleDoctor(tt.actor, tt.requested)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanManageWaitingList(t *testing.T) {
	assert.True(t, CanManageWaitingList(admin))
	assert.True(t, CanManageWaitingList(receptionist))
	assert.False(t, CanManageWaitingList(doctor))
	assert.False(t, CanManageWaitingList(patient))
}
