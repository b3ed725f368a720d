package scoring

import (
	"sort"

	"github.com/noah-isme/gradebook-api/internal/models"
)

// Sheet bundles one assessment with its components and every grade recorded
// for it. Components are only consulted for composite assessments.
type Sheet struct {
	Assessment models.Assessment
	Components []models.SubjectComponent
	Grades     []models.GradeRecord
}

// Scores resolves the consolidated score of every student that has one: the
// direct score for a common assessment or the weighted subject average for a
// composite. Students without a resolvable score are absent from the map.
func (s Sheet) Scores() map[string]float64 {
	if s.Assessment.IsComposite() {
		return compositeScores(s.Components, s.Grades)
	}
	scores := make(map[string]float64)
	for _, g := range s.Grades {
		if g.ComponentID != nil || g.AssessmentID != s.Assessment.ID {
			continue
		}
		if _, exists := scores[g.StudentID]; !exists {
			scores[g.StudentID] = g.Score
		}
	}
	return scores
}

// StudentScore returns the consolidated score of one student.
func (s Sheet) StudentScore(studentID string) (float64, bool) {
	if s.Assessment.IsComposite() {
		return WeightedSubjectAverage(PairComponents(studentID, s.Components, s.Grades))
	}
	for _, g := range s.Grades {
		if g.StudentID == studentID && g.ComponentID == nil && g.AssessmentID == s.Assessment.ID {
			return g.Score, true
		}
	}
	return 0, false
}

// ClassAverage is the mean of every resolved score, or 0 when nobody has one.
func (s Sheet) ClassAverage() float64 {
	if s.Assessment.IsComposite() {
		return ClassWeightedAverage(s.Components, s.Grades)
	}
	return meanOfScores(s.Scores())
}

// ClassWeightedAverage averages the composite score of every student that has
// one. The result is 0 when no student produced a composite.
func ClassWeightedAverage(components []models.SubjectComponent, grades []models.GradeRecord) float64 {
	return meanOfScores(compositeScores(components, grades))
}

func compositeScores(components []models.SubjectComponent, grades []models.GradeRecord) map[string]float64 {
	owners := componentOwners(components)
	byStudent := make(map[string][]models.GradeRecord)
	for _, g := range grades {
		if !belongsTo(&g, owners) {
			continue
		}
		byStudent[g.StudentID] = append(byStudent[g.StudentID], g)
	}

	scores := make(map[string]float64, len(byStudent))
	for studentID, records := range byStudent {
		if avg, ok := WeightedSubjectAverage(PairComponents(studentID, components, records)); ok {
			scores[studentID] = avg
		}
	}
	return scores
}

// meanOfScores sums in student ID order so the result is identical for any
// ordering of the input records.
func meanOfScores(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	values := make([]float64, len(ids))
	for i, id := range ids {
		values[i] = scores[id]
	}
	return mean(values)
}
