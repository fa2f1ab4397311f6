package handlers

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/scheduling"
	"clinic-appointments-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *scheduling.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *scheduling.Service) *AppointmentHandler {
	return &AppointmentHandler{Service: service}
}

// AppointmentResponse is an appointment with patient and doctor summaries.
type AppointmentResponse struct {
	models.Appointment
	Patient *models.UserSummary `json:"patient,omitempty"`
	Doctor  *models.UserSummary `json:"doctor,omitempty"`
}

func newAppointmentResponse(appt *models.Appointment) AppointmentResponse {
	return AppointmentResponse{
		Appointment: *appt,
		Patient:     appt.Patient.Summary(),
		Doctor:      appt.Doctor.Summary(),
	}
}

// CheckInView is what an unauthenticated holder of a QR token may see.
type CheckInView struct {
	ID              string                   `json:"id"`
	ScheduledAt     time.Time                `json:"scheduledAt"`
	DurationMinutes int                      `json:"durationMinutes"`
	Status          models.AppointmentStatus `json:"status"`
	Type            models.AppointmentType   `json:"type"`
	CheckedInAt     *time.Time               `json:"checkedInAt,omitempty"`
	PatientName     string                   `json:"patientName"`
	DoctorName      string                   `json:"doctorName"`
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	PatientID       string                 `json:"patientId" validate:"required"`
	DoctorID        string                 `json:"doctorId" validate:"required"`
	ScheduledAt     time.Time              `json:"scheduledAt" validate:"required"`
	DurationMinutes int                    `json:"durationMinutes" validate:"omitempty,gt=0,lte=480"`
	Type            models.AppointmentType `json:"type" validate:"omitempty,oneof=consultation follow_up urgent procedure other"`
	Notes           string                 `json:"notes"`
}

// UpdateAppointmentRequest carries the optional fields of an update.
type UpdateAppointmentRequest struct {
	Status *models.AppointmentStatus `json:"status"`
	Notes  *string                   `json:"notes"`
	Type   *models.AppointmentType   `json:"type"`
}

// CancelAppointmentRequest is the optional body of a cancellation.
type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

// RescheduleAppointmentRequest moves an appointment.
type RescheduleAppointmentRequest struct {
	ScheduledAt     time.Time `json:"scheduledAt" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"omitempty,gt=0,lte=480"`
}

// GetAvailableSlots handles GET /appointments/available-slots?doctorId=&date=.
func (h *AppointmentHandler) GetAvailableSlots(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	doctorID, date := c.Query("doctorId"), c.Query("date")
	if doctorID == "" || date == "" {
		utils.BadRequest(c, "doctorId and date are required")
		return
	}

	slots, err := h.Service.ListAvailableSlots(c.Request.Context(), actor, doctorID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Available slots fetched successfully", slots)
}

// CreateAppointment handles creating a new appointment.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Service.Create(c.Request.Context(), actor, scheduling.CreateInput{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Type:            req.Type,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Appointment created successfully", newAppointmentResponse(appt))
}

// ListAppointments handles GET /appointments with optional status, doctorId,
// patientId, from and to filters. from/to accept RFC 3339 or a calendar date.
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	filter := scheduling.AppointmentFilter{
		Status:    models.AppointmentStatus(c.Query("status")),
		DoctorID:  c.Query("doctorId"),
		PatientID: c.Query("patientId"),
	}
	loc := h.Service.Location()
	var err error
	if filter.From, err = parseBound(c.Query("from"), loc, false); err != nil {
		utils.BadRequest(c, "Invalid from: "+err.Error())
		return
	}
	if filter.To, err = parseBound(c.Query("to"), loc, true); err != nil {
		utils.BadRequest(c, "Invalid to: "+err.Error())
		return
	}

	appts, err := h.Service.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, newAppointmentResponse(&appts[i]))
	}
	utils.Success(c, "Appointments fetched successfully", out)
}

// parseBound reads a time filter. A bare date means the start of that day,
// or its last instant when endOfDay is set.
func parseBound(raw string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := scheduling.ParseDate(raw, loc)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}

// GetAppointmentByID handles fetching a single appointment by its ID.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	appt, err := h.Service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", newAppointmentResponse(appt))
}

// UpdateAppointment handles PUT /appointments/:id.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Service.Update(c.Request.Context(), actor, c.Param("id"), scheduling.UpdateInput{
		Status: req.Status,
		Notes:  req.Notes,
		Type:   req.Type,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", newAppointmentResponse(appt))
}

// CancelAppointment handles POST /appointments/:id/cancel. The body is optional.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if err := utils.Validate(&req); err != nil {
		utils.BadRequest(c, "Validation failed: "+utils.FormatValidationError(err))
		return
	}

	appt, err := h.Service.Cancel(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", newAppointmentResponse(appt))
}

// RescheduleAppointment handles POST /appointments/:id/reschedule.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Service.Reschedule(c.Request.Context(), actor, c.Param("id"), scheduling.RescheduleInput{
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointment rescheduled successfully", newAppointmentResponse(appt))
}

// GetCheckInView handles the public GET /appointments/checkin/:qrToken.
func (h *AppointmentHandler) GetCheckInView(c *gin.Context) {
	appt, err := h.Service.GetByQRToken(c.Request.Context(), c.Param("qrToken"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", CheckInView{
		ID:              appt.ID,
		ScheduledAt:     appt.ScheduledAt,
		DurationMinutes: appt.DurationMinutes,
		Status:          appt.Status,
		Type:            appt.Type,
		CheckedInAt:     appt.CheckedInAt,
		PatientName:     appt.Patient.FullName(),
		DoctorName:      appt.Doctor.FullName(),
	})
}

// CheckIn handles POST /appointments/checkin/:qrToken.
func (h *AppointmentHandler) CheckIn(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	appt, err := h.Service.CheckIn(c.Request.Context(), actor, c.Param("qrToken"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Patient checked in successfully", newAppointmentResponse(appt))
}
