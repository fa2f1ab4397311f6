package handlers

import (
	"github.com/gin-gonic/gin"

	"clinic-appointments-server/internal/scheduling"
	"clinic-appointments-server/internal/utils"
)

// ScheduleHandler handles doctor availability requests.
type ScheduleHandler struct {
	Service *scheduling.Service
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(service *scheduling.Service) *ScheduleHandler {
	return &ScheduleHandler{Service: service}
}

// UpsertWeeklyDayRequest sets one weekday of the template. DoctorID is only
// read for admins; doctors always edit their own schedule.
type UpsertWeeklyDayRequest struct {
	DoctorID            string `json:"doctorId"`
	DayOfWeek           *int   `json:"dayOfWeek" validate:"required,min=0,max=6"`
	StartTime           string `json:"startTime" validate:"required,clock"`
	EndTime             string `json:"endTime" validate:"required,clock"`
	SlotDurationMinutes int    `json:"slotDurationMinutes" validate:"required,gt=0,lte=480"`
	IsActive            *bool  `json:"isActive"`
}

// CreateExceptionRequest overrides the template on one date.
type CreateExceptionRequest struct {
	DoctorID  string  `json:"doctorId"`
	Date      string  `json:"date" validate:"required,civildate"`
	IsBlocked bool    `json:"isBlocked"`
	StartTime *string `json:"startTime" validate:"omitempty,clock"`
	EndTime   *string `json:"endTime" validate:"omitempty,clock"`
	Reason    string  `json:"reason" validate:"max=255"`
}

// GetWeeklySchedule handles GET /schedule?doctorId=.
func (h *ScheduleHandler) GetWeeklySchedule(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	days, err := h.Service.WeeklySchedule(c.Request.Context(), actor, c.Query("doctorId"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Schedule fetched successfully", days)
}

// UpsertWeeklyDay handles PUT /schedule/day.
func (h *ScheduleHandler) UpsertWeeklyDay(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req UpsertWeeklyDayRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	day, err := h.Service.UpsertWeeklyDay(c.Request.Context(), actor, scheduling.WeeklyDayInput{
		DoctorID:            req.DoctorID,
		DayOfWeek:           *req.DayOfWeek,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		IsActive:            active,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Schedule updated successfully", day)
}

// ListExceptions handles GET /schedule/exceptions?doctorId=.
func (h *ScheduleHandler) ListExceptions(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	rows, err := h.Service.Exceptions(c.Request.Context(), actor, c.Query("doctorId"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Exceptions fetched successfully", rows)
}

// CreateException handles POST /schedule/exceptions.
func (h *ScheduleHandler) CreateException(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CreateExceptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	exception, err := h.Service.CreateException(c.Request.Context(), actor, scheduling.ExceptionInput{
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		IsBlocked: req.IsBlocked,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Exception created successfully", exception)
}

// DeleteException handles DELETE /schedule/exceptions/:id.
func (h *ScheduleHandler) DeleteException(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if err := h.Service.DeleteException(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Exception deleted successfully", nil)
}
