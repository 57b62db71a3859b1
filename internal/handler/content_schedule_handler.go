package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-admin-api/internal/service"
	appErrors "github.com/noah-isme/academy-admin-api/pkg/errors"
	"github.com/noah-isme/academy-admin-api/pkg/response"
)

// ContentScheduleHandler exposes the content schedule builder endpoints.
type ContentScheduleHandler struct {
	service *service.ContentScheduleService
}

// NewContentScheduleHandler constructs a content schedule handler.
func NewContentScheduleHandler(svc *service.ContentScheduleService) *ContentScheduleHandler {
	return &ContentScheduleHandler{service: svc}
}

// Builder godoc
// @Summary Get the schedule builder view for a class batch
// @Description Returns the class week grid, the course template catalog and existing schedule entries
// @Tags ContentSchedules
// @Produce json
// @Param id path string true "Class batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /class-batches/{id}/schedule-builder [get]
func (h *ContentScheduleHandler) Builder(c *gin.Context) {
	view, err := h.service.GetBuilder(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Save godoc
// @Summary Save the content schedule for a class batch
// @Description Persists all submitted placements in one transaction; overwrite replaces the full schedule
// @Tags ContentSchedules
// @Accept json
// @Produce json
// @Param id path string true "Class batch ID"
// @Param payload body service.SaveScheduleRequest true "Schedule entries"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /class-batches/{id}/content-schedules [put]
func (h *ContentScheduleHandler) Save(c *gin.Context) {
	var req service.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.SaveSchedule(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Remove godoc
// @Summary Remove a single schedule entry
// @Tags ContentSchedules
// @Produce json
// @Param id path string true "Class batch ID"
// @Param scheduleId path string true "Schedule entry ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /class-batches/{id}/content-schedules/{scheduleId} [delete]
func (h *ContentScheduleHandler) Remove(c *gin.Context) {
	if err := h.service.RemoveSchedule(c.Request.Context(), c.Param("scheduleId"), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
