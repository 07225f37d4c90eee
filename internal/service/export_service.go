package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roadready/coachplan-api/internal/models"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
	"github.com/roadready/coachplan-api/pkg/export"
)

// ExportFormat selects the attendance sheet output encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes plus transport metadata.
type ExportResult struct {
	Payload     []byte
	ContentType string
	Filename    string
}

// ExportService renders attendance sheets for a session.
type ExportService struct {
	sessions SessionReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// SessionReader is the slice of SessionService the exporter needs.
type SessionReader interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	ListAttendance(ctx context.Context, sessionID string, actor *models.JWTClaims) ([]models.Attendance, error)
}

// NewExportService instantiates ExportService.
func NewExportService(sessions SessionReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		sessions: sessions,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// AttendanceSheet renders the signature list for a session.
func (s *ExportService) AttendanceSheet(ctx context.Context, sessionID string, format ExportFormat, actor *models.JWTClaims) (*ExportResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.sessions.ListAttendance(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: []string{"candidate_id", "signed_at"}}
	for _, att := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"candidate_id": att.CandidateID,
			"signed_at":    att.SignedAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance csv")
		}
		return &ExportResult{
			Payload:     payload,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("attendance-%s.csv", session.ID),
		}, nil
	case ExportFormatPDF:
		title := fmt.Sprintf("Attendance - %s (%s)", session.Title, session.ScheduledDate.Format("2006-01-02"))
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance pdf")
		}
		return &ExportResult{
			Payload:     payload,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("attendance-%s.pdf", session.ID),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
