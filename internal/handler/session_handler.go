package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roadready/coachplan-api/internal/models"
	"github.com/roadready/coachplan-api/internal/service"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
	"github.com/roadready/coachplan-api/pkg/response"
)

// SessionHandler manages session lifecycle and attendance endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	exports  *service.ExportService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService, exports *service.ExportService) *SessionHandler {
	return &SessionHandler{sessions: sessions, exports: exports}
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param coachId query string false "Filter by coach"
// @Param classroomId query string false "Filter by classroom"
// @Param status query string false "Filter by status"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var filter models.SessionFilter
	filter.CoachID = c.Query("coachId")
	filter.ClassroomID = c.Query("classroomId")
	if raw := strings.ToUpper(c.Query("status")); raw != "" {
		status := models.SessionStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("dateFrom"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dateFrom must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("dateTo"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dateTo must be YYYY-MM-DD"))
			return
		}
		filter.DateTo = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	records, pagination, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Create godoc
// @Summary Create a session with optional weekly repeats
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionsRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.sessions.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// CreateRange godoc
// @Summary Create sessions over a date range filtered by weekdays
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRangeRequest true "Range payload"
// @Success 201 {object} response.Envelope
// @Router /sessions/range [post]
func (h *SessionHandler) CreateRange(c *gin.Context) {
	var req service.CreateSessionRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.sessions.CreateRange(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// CheckConflicts godoc
// @Summary Dry-run conflict check for a proposed session range
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRangeRequest true "Range payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/conflicts [post]
func (h *SessionHandler) CheckConflicts(c *gin.Context) {
	var req service.CreateSessionRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.sessions.CheckConflicts(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Open godoc
// @Summary Open a scheduled session for attendance
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/open [post]
func (h *SessionHandler) Open(c *gin.Context) {
	session, err := h.sessions.Open(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Close godoc
// @Summary Close an open session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/close [post]
func (h *SessionHandler) Close(c *gin.Context) {
	session, err := h.sessions.Close(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Cancel godoc
// @Summary Cancel a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/cancel [post]
func (h *SessionHandler) Cancel(c *gin.Context) {
	session, err := h.sessions.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

type signAttendanceRequest struct {
	CandidateID string `json:"candidate_id"`
}

// SignAttendance godoc
// @Summary Sign attendance on an open session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body signAttendanceRequest false "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /sessions/{id}/attendance [post]
func (h *SessionHandler) SignAttendance(c *gin.Context) {
	var req signAttendanceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	claims := claimsFromContext(c)
	candidateID := req.CandidateID
	// Candidates always sign for themselves.
	if claims != nil && (candidateID == "" || claims.Role == models.RoleCandidate) {
		candidateID = claims.UserID
	}
	if candidateID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "candidate_id required"))
		return
	}
	record, err := h.sessions.SignAttendance(c.Request.Context(), c.Param("id"), candidateID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// ListAttendance godoc
// @Summary List attendance records for a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/attendance [get]
func (h *SessionHandler) ListAttendance(c *gin.Context) {
	records, err := h.sessions.ListAttendance(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ExportAttendance godoc
// @Summary Export the attendance sheet for a session
// @Tags Sessions
// @Produce octet-stream
// @Param id path string true "Session ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /sessions/{id}/attendance/export [get]
func (h *SessionHandler) ExportAttendance(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.AttendanceSheet(c.Request.Context(), c.Param("id"), format, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
