package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/models"
)

func TestClassWeightedAverage(t *testing.T) {
	sheet := simuladoSheet()
	assert.InDelta(t, 8.4, ClassWeightedAverage(sheet.Components, sheet.Grades), 1e-9)
	assert.InDelta(t, 8.4, sheet.ClassAverage(), 1e-9)
}

func TestClassWeightedAverageEmptyIsZero(t *testing.T) {
	sheet := simuladoSheet()
	assert.Equal(t, 0.0, ClassWeightedAverage(sheet.Components, nil))
	assert.Equal(t, 0.0, ClassWeightedAverage(nil, sheet.Grades))
}

func TestClassWeightedAverageOrderIndependent(t *testing.T) {
	components := []models.SubjectComponent{
		component("c1", "s", "a", 1.7),
		component("c2", "s", "b", 3.3),
		component("c3", "s", "c", 0.9),
	}
	rng := rand.New(rand.NewSource(42))
	var grades []models.GradeRecord
	for i := 0; i < 40; i++ {
		student := string(rune('a'+i%26)) + string(rune('0'+i/26))
		for _, c := range components {
			if rng.Intn(4) == 0 {
				continue
			}
			grades = append(grades, componentGrade(student, "s", c.ID, rng.Float64()*10))
		}
	}

	expected := ClassWeightedAverage(components, grades)
	for i := 0; i < 20; i++ {
		shuffled := append([]models.GradeRecord{}, grades...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.InDelta(t, expected, ClassWeightedAverage(components, shuffled), 1e-9)
	}
}

func TestCommonSheetScores(t *testing.T) {
	sheet := Sheet{
		Assessment: models.Assessment{ID: "p1", Kind: models.AssessmentCommon},
		Grades: []models.GradeRecord{
			directGrade("A", "p1", 7),
			directGrade("B", "p1", 9),
			directGrade("C", "p2", 1),
			componentGrade("D", "p1", "c1", 3),
		},
	}

	scores := sheet.Scores()
	assert.Equal(t, map[string]float64{"A": 7, "B": 9}, scores)
	assert.InDelta(t, 8, sheet.ClassAverage(), 1e-9)

	score, ok := sheet.StudentScore("B")
	require.True(t, ok)
	assert.Equal(t, 9.0, score)

	_, ok = sheet.StudentScore("C")
	assert.False(t, ok)
}

func TestCommonSheetWithoutGradesAveragesZero(t *testing.T) {
	sheet := Sheet{Assessment: models.Assessment{ID: "p1", Kind: models.AssessmentCommon}}
	assert.Equal(t, 0.0, sheet.ClassAverage())
	assert.Empty(t, sheet.Scores())
}

func TestCompositeSheetStudentScore(t *testing.T) {
	sheet := simuladoSheet()
	score, ok := sheet.StudentScore("A")
	require.True(t, ok)
	assert.InDelta(t, 6.8, score, 1e-9)

	_, ok = sheet.StudentScore("C")
	assert.False(t, ok)
}
