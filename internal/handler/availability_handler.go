package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roadready/coachplan-api/internal/service"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
	"github.com/roadready/coachplan-api/pkg/response"
)

// AvailabilityHandler manages coach availability endpoints.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// ListMonth godoc
// @Summary List availability instances for a month
// @Tags Availability
// @Produce json
// @Param id path string true "Coach ID"
// @Param year query int false "Year"
// @Param month query int false "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Router /coaches/{id}/availability [get]
func (h *AvailabilityHandler) ListMonth(c *gin.Context) {
	year, month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	instances, err := h.service.ListMonth(c.Request.Context(), c.Param("id"), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instances, nil)
}

// CreateRange godoc
// @Summary Declare recurring availability over a date range
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Coach ID"
// @Param payload body service.CreateAvailabilityRangeRequest true "Availability payload"
// @Success 201 {object} response.Envelope
// @Router /coaches/{id}/availability [post]
func (h *AvailabilityHandler) CreateRange(c *gin.Context) {
	var req service.CreateAvailabilityRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slots, err := h.service.CreateRange(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slots)
}

// Delete godoc
// @Summary Remove an availability slot
// @Tags Availability
// @Produce json
// @Param id path string true "Coach ID"
// @Param slotId path string true "Slot ID"
// @Success 204
// @Router /coaches/{id}/availability/{slotId} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("slotId"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
