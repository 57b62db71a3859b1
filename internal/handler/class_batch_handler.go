package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-admin-api/internal/models"
	"github.com/noah-isme/academy-admin-api/internal/service"
	appErrors "github.com/noah-isme/academy-admin-api/pkg/errors"
	"github.com/noah-isme/academy-admin-api/pkg/response"
)

// ClassBatchHandler exposes class batch lifecycle endpoints.
type ClassBatchHandler struct {
	service *service.ClassBatchService
}

// NewClassBatchHandler constructs a class batch handler.
func NewClassBatchHandler(svc *service.ClassBatchService) *ClassBatchHandler {
	return &ClassBatchHandler{service: svc}
}

// List godoc
// @Summary List class batches
// @Tags ClassBatches
// @Produce json
// @Param status query string false "Filter by status"
// @Param program_id query string false "Filter by program"
// @Param instructor_id query string false "Filter by instructor"
// @Param search query string false "Search batch code or name"
// @Param date_from query string false "Start date lower bound (YYYY-MM-DD)"
// @Param date_to query string false "Start date upper bound (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /class-batches [get]
func (h *ClassBatchHandler) List(c *gin.Context) {
	var filter models.ClassBatchFilter
	filter.Status = models.BatchStatus(c.Query("status"))
	filter.ProgramID = c.Query("program_id")
	filter.InstructorID = c.Query("instructor_id")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if raw := c.Query("date_from"); raw != "" {
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateFrom = &ts
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateTo = &ts
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	batches, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, pagination)
}

// Get godoc
// @Summary Get class batch detail
// @Tags ClassBatches
// @Produce json
// @Param id path string true "Class batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /class-batches/{id} [get]
func (h *ClassBatchHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create class batch
// @Tags ClassBatches
// @Accept json
// @Produce json
// @Param payload body service.ClassBatchRequest true "Class batch payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /class-batches [post]
func (h *ClassBatchHandler) Create(c *gin.Context) {
	var req service.ClassBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	batch, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// Update godoc
// @Summary Update class batch
// @Tags ClassBatches
// @Accept json
// @Produce json
// @Param id path string true "Class batch ID"
// @Param payload body service.ClassBatchRequest true "Class batch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /class-batches/{id} [put]
func (h *ClassBatchHandler) Update(c *gin.Context) {
	var req service.ClassBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	batch, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}
