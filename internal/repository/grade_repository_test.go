package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/models"
)

func TestGradeRepositoryListByAssessments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE g.assessment_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "assessment_id", "component_id", "score", "created_at", "updated_at", "student_name"}).
			AddRow("g-1", "s-1", "a-1", nil, 7.5, now, now, "Ana").
			AddRow("g-2", "s-1", "a-2", "comp-1", 8.0, now, now, "Ana"))

	grades, err := repo.ListByAssessments(context.Background(), []string{"a-1", "a-2"})
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Nil(t, grades[0].ComponentID)
	require.NotNil(t, grades[1].ComponentID)
	assert.Equal(t, "comp-1", *grades[1].ComponentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListByAssessmentsEmpty(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()

	grades, err := NewGradeRepository(db).ListByAssessments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, grades)
}

func TestGradeRepositoryBulkUpsertPicksConflictTarget(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	component := "comp-1"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, assessment_id) WHERE component_id IS NULL")).
		WithArgs(sqlmock.AnyArg(), "s-1", "a-1", 7.5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, assessment_id, component_id) WHERE component_id IS NOT NULL")).
		WithArgs(sqlmock.AnyArg(), "s-1", "a-2", &component, 9.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	grades := []models.GradeRecord{
		{StudentID: "s-1", AssessmentID: "a-1", Score: 7.5},
		{StudentID: "s-1", AssessmentID: "a-2", ComponentID: &component, Score: 9},
	}
	require.NoError(t, repo.BulkUpsert(context.Background(), grades))
	assert.NotEmpty(t, grades[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryBulkUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO grades").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), []models.GradeRecord{{StudentID: "s-1", AssessmentID: "a-1", Score: 1}})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
