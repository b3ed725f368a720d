package scoring

import "sort"

// SubjectAverage is the mean score observed for one subject.
type SubjectAverage struct {
	ComponentID string
	SubjectID   string
	SubjectName string
	Weight      float64
	Average     float64
}

// ComponentAverages returns, for each component of a composite sheet, the mean
// of all scores recorded for it (0 when none), highest first. Equal means keep
// component order.
func ComponentAverages(sheet Sheet) []SubjectAverage {
	if !sheet.Assessment.IsComposite() {
		return nil
	}
	owners := componentOwners(sheet.Components)
	byComponent := make(map[string][]float64, len(sheet.Components))
	for i := range sheet.Grades {
		g := &sheet.Grades[i]
		if belongsTo(g, owners) {
			byComponent[*g.ComponentID] = append(byComponent[*g.ComponentID], g.Score)
		}
	}

	out := make([]SubjectAverage, 0, len(sheet.Components))
	for _, c := range sheet.Components {
		out = append(out, SubjectAverage{
			ComponentID: c.ID,
			SubjectID:   c.SubjectID,
			SubjectName: c.SubjectName,
			Weight:      c.Weight,
			Average:     mean(byComponent[c.ID]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Average > out[j].Average
	})
	return out
}

// StudentSubjectAverages returns the mean of a student's component scores per
// subject across all composite sheets. Subjects appear in the order they are
// first met; subjects the student never scored are omitted.
func StudentSubjectAverages(studentID string, sheets []Sheet) []SubjectAverage {
	type bucket struct {
		name   string
		scores []float64
	}
	order := make([]string, 0)
	buckets := make(map[string]*bucket)
	for _, sheet := range sheets {
		if !sheet.Assessment.IsComposite() {
			continue
		}
		for _, pair := range PairComponents(studentID, sheet.Components, sheet.Grades) {
			if pair.Grade == nil {
				continue
			}
			b, ok := buckets[pair.Component.SubjectID]
			if !ok {
				b = &bucket{name: pair.Component.SubjectName}
				buckets[pair.Component.SubjectID] = b
				order = append(order, pair.Component.SubjectID)
			}
			b.scores = append(b.scores, pair.Grade.Score)
		}
	}

	out := make([]SubjectAverage, 0, len(order))
	for _, subjectID := range order {
		b := buckets[subjectID]
		out = append(out, SubjectAverage{
			SubjectID:   subjectID,
			SubjectName: b.name,
			Average:     mean(b.scores),
		})
	}
	return out
}
