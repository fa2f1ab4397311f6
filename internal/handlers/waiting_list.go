package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"clinic-appointments-server/internal/utils"
	"clinic-appointments-server/internal/waitlist"
)

// WaitingListHandler handles waiting list requests.
type WaitingListHandler struct {
	Service *waitlist.Service
}

// NewWaitingListHandler creates a new WaitingListHandler.
func NewWaitingListHandler(service *waitlist.Service) *WaitingListHandler {
	return &WaitingListHandler{Service: service}
}

// AddWaitingListRequest represents the request body for joining the waiting list.
type AddWaitingListRequest struct {
	PatientID     string     `json:"patientId" validate:"required"`
	DoctorID      *string    `json:"doctorId"`
	PreferredDate *time.Time `json:"preferredDate"`
	Notes         string     `json:"notes"`
}

// ListEntries handles GET /waiting-list.
func (h *WaitingListHandler) ListEntries(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	entries, err := h.Service.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Waiting list fetched successfully", entries)
}

// AddEntry handles POST /waiting-list.
func (h *WaitingListHandler) AddEntry(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req AddWaitingListRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	entry, err := h.Service.Add(c.Request.Context(), actor, waitlist.AddInput{
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		PreferredDate: req.PreferredDate,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Added to waiting list successfully", entry)
}

// RemoveEntry handles DELETE /waiting-list/:id.
func (h *WaitingListHandler) RemoveEntry(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if err := h.Service.Remove(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Removed from waiting list successfully", nil)
}
