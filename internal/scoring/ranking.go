package scoring

import (
	"sort"

	"github.com/noah-isme/gradebook-api/internal/models"
)

// Standing is a student's position in the class ranking.
type Standing struct {
	StudentID     string
	Average       float64
	Contributions int
	Rank          int
}

// RankStudents ranks the whole roster by the mean of each student's resolved
// scores across the given sheets. A student without any score averages 0 and
// is still ranked. Exact ties keep roster order.
func RankStudents(roster []models.Student, sheets []Sheet) []Standing {
	resolved := make([]map[string]float64, len(sheets))
	for i, sheet := range sheets {
		resolved[i] = sheet.Scores()
	}

	standings := make([]Standing, len(roster))
	for i, student := range roster {
		contributions := make([]float64, 0, len(sheets))
		for _, scores := range resolved {
			if score, ok := scores[student.ID]; ok {
				contributions = append(contributions, score)
			}
		}
		standings[i] = Standing{
			StudentID:     student.ID,
			Average:       mean(contributions),
			Contributions: len(contributions),
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Average > standings[j].Average
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// RankOf looks up a student in ranked standings. classSize is the number of
// ranked students; ok is false when the student is not part of the roster.
func RankOf(standings []Standing, studentID string) (rank, classSize int, ok bool) {
	for _, s := range standings {
		if s.StudentID == studentID {
			return s.Rank, len(standings), true
		}
	}
	return 0, len(standings), false
}
