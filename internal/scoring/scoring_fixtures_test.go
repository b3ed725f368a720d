package scoring

import (
	"time"

	"github.com/noah-isme/gradebook-api/internal/models"
)

func strPtr(s string) *string { return &s }

func component(id, assessmentID, subjectID string, weight float64) models.SubjectComponent {
	return models.SubjectComponent{ID: id, AssessmentID: assessmentID, SubjectID: subjectID, SubjectName: subjectID, Weight: weight}
}

func componentGrade(studentID, assessmentID, componentID string, score float64) models.GradeRecord {
	return models.GradeRecord{
		ID:           studentID + ":" + componentID,
		StudentID:    studentID,
		AssessmentID: assessmentID,
		ComponentID:  strPtr(componentID),
		Score:        score,
	}
}

func directGrade(studentID, assessmentID string, score float64) models.GradeRecord {
	return models.GradeRecord{ID: studentID + ":" + assessmentID, StudentID: studentID, AssessmentID: assessmentID, Score: score}
}

func day(d int) *time.Time {
	t := time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// simuladoSheet is a composite with Math (weight 6) and Science (weight 4)
// where A scored 8/5 and B only answered Math with 10.
func simuladoSheet() Sheet {
	return Sheet{
		Assessment: models.Assessment{ID: "sim-1", ClassID: "class-1", Name: "Simulado 1", Kind: models.AssessmentComposite},
		Components: []models.SubjectComponent{
			component("math", "sim-1", "subj-math", 6),
			component("sci", "sim-1", "subj-sci", 4),
		},
		Grades: []models.GradeRecord{
			componentGrade("A", "sim-1", "math", 8),
			componentGrade("A", "sim-1", "sci", 5),
			componentGrade("B", "sim-1", "math", 10),
		},
	}
}
