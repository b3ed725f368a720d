package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/models"
)

func TestWeightedSubjectAverage(t *testing.T) {
	sheet := simuladoSheet()

	avg, ok := WeightedSubjectAverage(PairComponents("A", sheet.Components, sheet.Grades))
	require.True(t, ok)
	assert.InDelta(t, 6.8, avg, 1e-9)

	avg, ok = WeightedSubjectAverage(PairComponents("B", sheet.Components, sheet.Grades))
	require.True(t, ok)
	assert.InDelta(t, 10, avg, 1e-9)
}

func TestWeightedSubjectAverageAbsentWithoutGrades(t *testing.T) {
	sheet := simuladoSheet()

	_, ok := WeightedSubjectAverage(PairComponents("nobody", sheet.Components, sheet.Grades))
	assert.False(t, ok)

	_, ok = WeightedSubjectAverage(nil)
	assert.False(t, ok)
}

func TestWeightedSubjectAverageZeroWeightIgnored(t *testing.T) {
	g1 := componentGrade("A", "x", "c1", 9)
	g2 := componentGrade("A", "x", "c2", 1)
	pairs := []ComponentGrade{
		{Component: component("c1", "x", "s1", 2), Grade: &g1},
		{Component: component("c2", "x", "s2", 0), Grade: &g2},
	}
	avg, ok := WeightedSubjectAverage(pairs)
	require.True(t, ok)
	assert.InDelta(t, 9, avg, 1e-9)

	_, ok = WeightedSubjectAverage(pairs[1:])
	assert.False(t, ok)
}

func TestWeightedSubjectAverageWithinScoreBounds(t *testing.T) {
	scores := []float64{3.5, 9.25, 0, 7, 10}
	weights := []float64{0.1, 3, 12.5, 1, 40}
	pairs := make([]ComponentGrade, len(scores))
	for i := range scores {
		g := models.GradeRecord{Score: scores[i]}
		pairs[i] = ComponentGrade{Component: models.SubjectComponent{Weight: weights[i]}, Grade: &g}
	}
	avg, ok := WeightedSubjectAverage(pairs)
	require.True(t, ok)
	assert.GreaterOrEqual(t, avg, 0.0)
	assert.LessOrEqual(t, avg, 10.0)
}

func TestMissingComponentMatchesRemovedComponent(t *testing.T) {
	sheet := simuladoSheet()
	withMissing, ok := WeightedSubjectAverage(PairComponents("B", sheet.Components, sheet.Grades))
	require.True(t, ok)

	withoutComponent, ok := WeightedSubjectAverage(PairComponents("B", sheet.Components[:1], sheet.Grades))
	require.True(t, ok)
	assert.Equal(t, withoutComponent, withMissing)
}

func TestPairComponentsIgnoresForeignRecords(t *testing.T) {
	sheet := simuladoSheet()
	grades := append([]models.GradeRecord{}, sheet.Grades...)
	grades = append(grades,
		componentGrade("A", "other-assessment", "math", 0),
		componentGrade("A", "sim-1", "unknown", 0),
		directGrade("A", "sim-1", 0),
	)

	avg, ok := WeightedSubjectAverage(PairComponents("A", sheet.Components, grades))
	require.True(t, ok)
	assert.InDelta(t, 6.8, avg, 1e-9)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 6.8, Round2(6.8))
	assert.Equal(t, 8.33, Round2(25.0/3))
	assert.Equal(t, -1.25, Round2(-1.2549))
	assert.Nil(t, Round2Ptr(nil))
	v := 1.005
	assert.NotNil(t, Round2Ptr(&v))
}
