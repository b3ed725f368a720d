package dto

import "time"

// TeacherDashboardResponse is the per-assessment summary shown to the class owner.
type TeacherDashboardResponse struct {
	ClassID        string               `json:"classId"`
	AssessmentID   string               `json:"assessmentId"`
	AssessmentName string               `json:"assessmentName"`
	Kind           string               `json:"kind"`
	Scores         []StudentScore       `json:"scores"`
	ClassAverage   float64              `json:"classAverage"`
	TopStudent     *StudentScore        `json:"topStudent"`
	TrendPercent   *float64             `json:"trendPercent"`
	BaselineName   *string              `json:"baselineName"`
	Subjects       []SubjectPerformance `json:"subjects"`
	GeneratedAt    time.Time            `json:"generatedAt"`
}

// StudentScore is one student's consolidated score for an assessment.
// Score is null when nothing was recorded.
type StudentScore struct {
	StudentID   string   `json:"studentId"`
	StudentName string   `json:"studentName"`
	Score       *float64 `json:"score"`
}

// SubjectPerformance summarises scores for one subject or component.
type SubjectPerformance struct {
	ComponentID string  `json:"componentId,omitempty"`
	SubjectID   string  `json:"subjectId"`
	SubjectName string  `json:"subjectName"`
	Weight      float64 `json:"weight,omitempty"`
	Average     float64 `json:"average"`
}

// StudentDashboardResponse is the personal summary shown to a student.
type StudentDashboardResponse struct {
	StudentID   string               `json:"studentId"`
	StudentName string               `json:"studentName"`
	ClassID     string               `json:"classId"`
	ClassName   string               `json:"className"`
	Stats       StudentStats         `json:"stats"`
	Evolution   []EvolutionPoint     `json:"evolution"`
	Comparison  []ClassComparison    `json:"comparison"`
	Subjects    []SubjectPerformance `json:"subjects"`
	GeneratedAt time.Time            `json:"generatedAt"`
}

// StudentStats aggregates a student's published results.
type StudentStats struct {
	Average            float64 `json:"average"`
	Best               float64 `json:"best"`
	Worst              float64 `json:"worst"`
	AssessmentsCounted int     `json:"assessmentsCounted"`
	Rank               int     `json:"rank"`
	ClassSize          int     `json:"classSize"`
}

// EvolutionPoint is one consolidated score in chronological order.
type EvolutionPoint struct {
	AssessmentID string     `json:"assessmentId"`
	Name         string     `json:"name"`
	Date         *time.Time `json:"date"`
	Score        float64    `json:"score"`
}

// ClassComparison contrasts a student's score with the class average.
type ClassComparison struct {
	AssessmentID string   `json:"assessmentId"`
	Name         string   `json:"name"`
	StudentScore *float64 `json:"studentScore"`
	ClassAverage float64  `json:"classAverage"`
}

// StudentGradesResponse lists a student's published results.
type StudentGradesResponse struct {
	Items  []StudentGradeItem `json:"items"`
	Totals StudentGradeTotals `json:"totals"`
}

// StudentGradeItem is one published assessment with the student's scores.
type StudentGradeItem struct {
	AssessmentID string           `json:"assessmentId"`
	Name         string           `json:"name"`
	Kind         string           `json:"kind"`
	Weight       float64          `json:"weight"`
	Date         *time.Time       `json:"date"`
	PublishedAt  *time.Time       `json:"publishedAt"`
	Score        *float64         `json:"score"`
	Components   []ComponentScore `json:"components,omitempty"`
}

// ComponentScore is a student's score on one component of a composite.
type ComponentScore struct {
	ComponentID string   `json:"componentId"`
	SubjectName string   `json:"subjectName"`
	Weight      float64  `json:"weight"`
	Score       *float64 `json:"score"`
}

// StudentGradeTotals summarises the listing.
type StudentGradeTotals struct {
	Assessments int     `json:"assessments"`
	Scored      int     `json:"scored"`
	Average     float64 `json:"average"`
}
