package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/dto"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/export"
)

type teacherDashboardProvider interface {
	Teacher(ctx context.Context, ownerID, classID, assessmentID string) (*dto.TeacherDashboardResponse, bool, error)
}

// ExportResult is a rendered score sheet ready to be downloaded.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders teacher dashboards as downloadable score sheets.
type ExportService struct {
	dashboards teacherDashboardProvider
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(dashboards teacherDashboardProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{dashboards: dashboards, logger: logger, now: time.Now}
}

// Export renders the score sheet of an assessment in the requested format.
func (s *ExportService) Export(ctx context.Context, ownerID, classID, assessmentID string, format export.Format) (*ExportResult, error) {
	renderer, err := export.ForFormat(export.Format(strings.ToLower(string(format))))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	summary, _, err := s.dashboards.Teacher(ctx, ownerID, classID, assessmentID)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(buildScoreTable(summary))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("score sheet exported",
		zap.String("assessment_id", assessmentID),
		zap.String("format", renderer.Extension()),
		zap.Int("bytes", len(data)),
	)
	return &ExportResult{
		Filename:    s.buildFilename(summary.AssessmentName, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func buildScoreTable(summary *dto.TeacherDashboardResponse) export.Table {
	rows := make([][]string, 0, len(summary.Scores))
	for i, score := range summary.Scores {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), score.StudentName, formatScore(score.Score)})
	}
	footer := []string{fmt.Sprintf("Class average: %.2f", summary.ClassAverage)}
	if summary.TopStudent != nil {
		footer = append(footer, fmt.Sprintf("Top score: %s (%s)", summary.TopStudent.StudentName, formatScore(summary.TopStudent.Score)))
	}
	if summary.TrendPercent != nil && summary.BaselineName != nil {
		footer = append(footer, fmt.Sprintf("Change vs %s: %+.2f%%", *summary.BaselineName, *summary.TrendPercent))
	}
	for _, subject := range summary.Subjects {
		footer = append(footer, fmt.Sprintf("%s (weight %.2f): %.2f", subject.SubjectName, subject.Weight, subject.Average))
	}
	return export.Table{
		Title:    summary.AssessmentName,
		Subtitle: fmt.Sprintf("%s assessment, generated %s", strings.ToLower(summary.Kind), summary.GeneratedAt.Format("2006-01-02 15:04 MST")),
		Headers:  []string{"#", "Student", "Score"},
		Rows:     rows,
		Footer:   footer,
	}
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *score)
}

func (s *ExportService) buildFilename(assessmentName, ext string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(assessmentName), timestamp, ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "scores"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
