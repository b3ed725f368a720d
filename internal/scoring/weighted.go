package scoring

import "github.com/noah-isme/gradebook-api/internal/models"

// ComponentGrade pairs a component of a composite assessment with the grade a
// student received for it. Grade is nil when nothing was recorded.
type ComponentGrade struct {
	Component models.SubjectComponent
	Grade     *models.GradeRecord
}

// WeightedSubjectAverage returns sum(score*weight)/sum(weight) over the pairs
// that carry a grade. Ungraded components are left out of both sums and
// components with a non-positive weight contribute nothing. ok is false when
// no weight was accumulated, meaning the student has no composite score.
func WeightedSubjectAverage(pairs []ComponentGrade) (avg float64, ok bool) {
	var sumScores, sumWeights float64
	for _, pair := range pairs {
		if pair.Grade == nil || pair.Component.Weight <= 0 {
			continue
		}
		sumScores += pair.Grade.Score * pair.Component.Weight
		sumWeights += pair.Component.Weight
	}
	if sumWeights <= 0 {
		return 0, false
	}
	return sumScores / sumWeights, true
}

// PairComponents matches one student's grades to the given components.
// Records of other students, of other assessments or for components outside
// the list are ignored. When duplicates exist the first record wins.
func PairComponents(studentID string, components []models.SubjectComponent, grades []models.GradeRecord) []ComponentGrade {
	byComponent := make(map[string]*models.GradeRecord, len(components))
	owners := componentOwners(components)
	for i := range grades {
		g := &grades[i]
		if g.StudentID != studentID || !belongsTo(g, owners) {
			continue
		}
		if _, exists := byComponent[*g.ComponentID]; !exists {
			byComponent[*g.ComponentID] = g
		}
	}
	pairs := make([]ComponentGrade, 0, len(components))
	for _, c := range components {
		pairs = append(pairs, ComponentGrade{Component: c, Grade: byComponent[c.ID]})
	}
	return pairs
}

// componentOwners maps component ID to the assessment it belongs to.
func componentOwners(components []models.SubjectComponent) map[string]string {
	owners := make(map[string]string, len(components))
	for _, c := range components {
		owners[c.ID] = c.AssessmentID
	}
	return owners
}

func belongsTo(g *models.GradeRecord, owners map[string]string) bool {
	if g.ComponentID == nil {
		return false
	}
	assessmentID, ok := owners[*g.ComponentID]
	return ok && assessmentID == g.AssessmentID
}
