package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roadready/coachplan-api/internal/service"
	"github.com/roadready/coachplan-api/pkg/response"
)

// CalendarHandler serves merged monthly calendar views.
type CalendarHandler struct {
	service *service.CalendarService
}

// NewCalendarHandler constructs handler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// MonthView godoc
// @Summary Merged availability and session view for a coach's month
// @Tags Calendar
// @Produce json
// @Param id path string true "Coach ID"
// @Param year query int false "Year"
// @Param month query int false "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Router /coaches/{id}/calendar [get]
func (h *CalendarHandler) MonthView(c *gin.Context) {
	year, month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.MonthView(c.Request.Context(), c.Param("id"), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportMonth godoc
// @Summary Export a coach's monthly calendar as CSV
// @Tags Calendar
// @Produce text/csv
// @Param id path string true "Coach ID"
// @Param year query int false "Year"
// @Param month query int false "Month (1-12)"
// @Success 200 {file} binary
// @Router /coaches/{id}/calendar/export [get]
func (h *CalendarHandler) ExportMonth(c *gin.Context) {
	year, month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, filename, err := h.service.ExportMonthCSV(c.Request.Context(), c.Param("id"), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}
