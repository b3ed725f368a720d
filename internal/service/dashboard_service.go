package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/scoring"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type dashboardClassRepository interface {
	FindOwned(ctx context.Context, id, ownerID string) (*models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type dashboardAssessmentRepository interface {
	ListByClass(ctx context.Context, classID string, publishedOnly bool) ([]models.Assessment, error)
	ListComponents(ctx context.Context, assessmentIDs []string) ([]models.SubjectComponent, error)
}

type dashboardStudentRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type dashboardGradeRepository interface {
	ListByAssessments(ctx context.Context, assessmentIDs []string) ([]models.GradeRecord, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL     time.Duration
	EvolutionMax int
}

// DashboardService composes teacher and student dashboards from the scoring
// engine.
type DashboardService struct {
	classes     dashboardClassRepository
	assessments dashboardAssessmentRepository
	students    dashboardStudentRepository
	grades      dashboardGradeRepository
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Classes     dashboardClassRepository
	Assessments dashboardAssessmentRepository
	Students    dashboardStudentRepository
	Grades      dashboardGradeRepository
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.EvolutionMax <= 0 {
		cfg.EvolutionMax = 6
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		classes:     params.Classes,
		assessments: params.Assessments,
		students:    params.Students,
		grades:      params.Grades,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Teacher returns the summary of one assessment of an owned class and
// reports whether it was served from cache.
func (s *DashboardService) Teacher(ctx context.Context, ownerID, classID, assessmentID string) (*dto.TeacherDashboardResponse, bool, error) {
	if classID == "" || assessmentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "classId and assessmentId are required")
	}
	if _, err := s.classes.FindOwned(ctx, classID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	cacheKey := fmt.Sprintf("dash:class:%s:%s", classID, assessmentID)
	var cached dto.TeacherDashboardResponse
	if s.tryCache(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	assessments, err := s.assessments.ListByClass(ctx, classID, false)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	var target *models.Assessment
	for i := range assessments {
		if assessments[i].ID == assessmentID {
			target = &assessments[i]
			break
		}
	}
	if target == nil {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
	}

	load := []models.Assessment{*target}
	if previous, ok := scoring.PreviousAssessment(*target, assessments); ok {
		load = append(load, previous)
	}
	sheets, err := s.loadSheets(ctx, load)
	if err != nil {
		return nil, false, err
	}
	roster, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	s.metrics.ObserveDBQuery("dashboard_teacher", time.Since(start))

	summary := s.composeTeacher(classID, sheets[0], sheets[1:], roster)
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

func (s *DashboardService) composeTeacher(classID string, sheet scoring.Sheet, history []scoring.Sheet, roster []models.Student) *dto.TeacherDashboardResponse {
	resolved := sheet.Scores()
	scores := make([]dto.StudentScore, 0, len(roster))
	var top *dto.StudentScore
	var topRaw float64
	for _, student := range roster {
		entry := dto.StudentScore{StudentID: student.ID, StudentName: student.Name}
		if raw, ok := resolved[student.ID]; ok {
			rounded := scoring.Round2(raw)
			entry.Score = &rounded
			if top == nil || raw > topRaw {
				best := entry
				top = &best
				topRaw = raw
			}
		}
		scores = append(scores, entry)
	}

	trend := scoring.Trend(sheet, history)
	return &dto.TeacherDashboardResponse{
		ClassID:        classID,
		AssessmentID:   sheet.Assessment.ID,
		AssessmentName: sheet.Assessment.Name,
		Kind:           string(sheet.Assessment.Kind),
		Scores:         scores,
		ClassAverage:   scoring.Round2(sheet.ClassAverage()),
		TopStudent:     top,
		TrendPercent:   trend.Percent,
		BaselineName:   trend.BaselineName,
		Subjects:       toPerformance(scoring.ComponentAverages(sheet)),
		GeneratedAt:    s.now().UTC(),
	}
}

// Student returns the personal dashboard of a student across the published
// assessments of their class.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*dto.StudentDashboardResponse, bool, error) {
	student, class, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, false, err
	}

	cacheKey := fmt.Sprintf("dash:student:%s:%s", class.ID, student.ID)
	var cached dto.StudentDashboardResponse
	if s.tryCache(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	published, err := s.assessments.ListByClass(ctx, class.ID, true)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	sheets, err := s.loadSheets(ctx, published)
	if err != nil {
		return nil, false, err
	}
	roster, err := s.students.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	s.metrics.ObserveDBQuery("dashboard_student", time.Since(start))

	summary := s.composeStudent(student, class, sheets, roster)
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

func (s *DashboardService) composeStudent(student *models.Student, class *models.Class, sheets []scoring.Sheet, roster []models.Student) *dto.StudentDashboardResponse {
	evolution := make([]dto.EvolutionPoint, 0, len(sheets))
	comparison := make([]dto.ClassComparison, 0, len(sheets))
	counted := make([]float64, 0, len(sheets))
	for _, sheet := range sheets {
		entry := dto.ClassComparison{
			AssessmentID: sheet.Assessment.ID,
			Name:         sheet.Assessment.Name,
			ClassAverage: scoring.Round2(sheet.ClassAverage()),
		}
		if score, ok := sheet.StudentScore(student.ID); ok {
			counted = append(counted, score)
			rounded := scoring.Round2(score)
			entry.StudentScore = &rounded
			evolution = append(evolution, dto.EvolutionPoint{
				AssessmentID: sheet.Assessment.ID,
				Name:         sheet.Assessment.Name,
				Date:         sheet.Assessment.Date,
				Score:        rounded,
			})
		}
		comparison = append(comparison, entry)
	}
	if len(evolution) > s.cfg.EvolutionMax {
		evolution = evolution[len(evolution)-s.cfg.EvolutionMax:]
	}

	stats := dto.StudentStats{AssessmentsCounted: len(counted)}
	if len(counted) > 0 {
		best, worst, sum := counted[0], counted[0], 0.0
		for _, v := range counted {
			sum += v
			if v > best {
				best = v
			}
			if v < worst {
				worst = v
			}
		}
		stats.Average = scoring.Round2(sum / float64(len(counted)))
		stats.Best = scoring.Round2(best)
		stats.Worst = scoring.Round2(worst)
	}
	standings := scoring.RankStudents(roster, sheets)
	stats.Rank, stats.ClassSize, _ = scoring.RankOf(standings, student.ID)

	return &dto.StudentDashboardResponse{
		StudentID:   student.ID,
		StudentName: student.Name,
		ClassID:     class.ID,
		ClassName:   class.Name,
		Stats:       stats,
		Evolution:   evolution,
		Comparison:  comparison,
		Subjects:    toPerformance(scoring.StudentSubjectAverages(student.ID, sheets)),
		GeneratedAt: s.now().UTC(),
	}
}

// StudentGrades lists the published assessments of the student's class, most
// recent first, with the student's own scores.
func (s *DashboardService) StudentGrades(ctx context.Context, studentID string) (*dto.StudentGradesResponse, error) {
	student, class, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	published, err := s.assessments.ListByClass(ctx, class.ID, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	sheets, err := s.loadSheets(ctx, published)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDBQuery("student_grades", time.Since(start))

	sort.SliceStable(sheets, func(i, j int) bool {
		return newerFirst(sheets[i].Assessment, sheets[j].Assessment)
	})

	items := make([]dto.StudentGradeItem, 0, len(sheets))
	consolidated := make([]float64, 0, len(sheets))
	scored := 0
	for _, sheet := range sheets {
		a := sheet.Assessment
		item := dto.StudentGradeItem{
			AssessmentID: a.ID,
			Name:         a.Name,
			Kind:         string(a.Kind),
			Weight:       a.Weight,
			Date:         a.Date,
			PublishedAt:  a.PublishedAt,
		}
		hasAny := false
		if a.IsComposite() {
			item.Components = make([]dto.ComponentScore, 0, len(sheet.Components))
			for _, pair := range scoring.PairComponents(student.ID, sheet.Components, sheet.Grades) {
				cs := dto.ComponentScore{
					ComponentID: pair.Component.ID,
					SubjectName: pair.Component.SubjectName,
					Weight:      pair.Component.Weight,
				}
				if pair.Grade != nil {
					v := pair.Grade.Score
					cs.Score = &v
					hasAny = true
				}
				item.Components = append(item.Components, cs)
			}
		} else if score, ok := sheet.StudentScore(student.ID); ok {
			item.Score = &score
			hasAny = true
		}
		if score, ok := sheet.StudentScore(student.ID); ok {
			consolidated = append(consolidated, score)
		}
		if hasAny {
			scored++
		}
		items = append(items, item)
	}

	totals := dto.StudentGradeTotals{Assessments: len(items), Scored: scored}
	if len(consolidated) > 0 {
		sum := 0.0
		for _, v := range consolidated {
			sum += v
		}
		totals.Average = scoring.Round2(sum / float64(len(consolidated)))
	}
	return &dto.StudentGradesResponse{Items: items, Totals: totals}, nil
}

func (s *DashboardService) loadStudent(ctx context.Context, studentID string) (*models.Student, *models.Class, error) {
	if studentID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a student")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	class, err := s.classes.FindByID(ctx, student.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return student, class, nil
}

// loadSheets fetches components and grades for the given assessments with one
// query each and returns sheets in the same order.
func (s *DashboardService) loadSheets(ctx context.Context, assessments []models.Assessment) ([]scoring.Sheet, error) {
	ids := make([]string, 0, len(assessments))
	compositeIDs := make([]string, 0)
	for _, a := range assessments {
		ids = append(ids, a.ID)
		if a.IsComposite() {
			compositeIDs = append(compositeIDs, a.ID)
		}
	}

	components, err := s.assessments.ListComponents(ctx, compositeIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load components")
	}
	grades, err := s.grades.ListByAssessments(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	componentsBy := make(map[string][]models.SubjectComponent, len(compositeIDs))
	for _, c := range components {
		componentsBy[c.AssessmentID] = append(componentsBy[c.AssessmentID], c)
	}
	gradesBy := make(map[string][]models.GradeRecord, len(ids))
	for _, g := range grades {
		gradesBy[g.AssessmentID] = append(gradesBy[g.AssessmentID], g)
	}

	sheets := make([]scoring.Sheet, len(assessments))
	for i, a := range assessments {
		sheets[i] = scoring.Sheet{Assessment: a, Components: componentsBy[a.ID], Grades: gradesBy[a.ID]}
	}
	return sheets, nil
}

// tryCache reports a hit only when dest was filled. Cache failures are logged
// and treated as misses.
func (s *DashboardService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func toPerformance(averages []scoring.SubjectAverage) []dto.SubjectPerformance {
	out := make([]dto.SubjectPerformance, 0, len(averages))
	for _, a := range averages {
		out = append(out, dto.SubjectPerformance{
			ComponentID: a.ComponentID,
			SubjectID:   a.SubjectID,
			SubjectName: a.SubjectName,
			Weight:      a.Weight,
			Average:     scoring.Round2(a.Average),
		})
	}
	return out
}

// newerFirst orders dated assessments by date descending ahead of undated
// ones, which fall back to creation time.
func newerFirst(a, b models.Assessment) bool {
	switch {
	case a.Date != nil && b.Date != nil:
		if !a.Date.Equal(*b.Date) {
			return a.Date.After(*b.Date)
		}
	case a.Date != nil:
		return true
	case b.Date != nil:
		return false
	}
	return a.CreatedAt.After(b.CreatedAt)
}
