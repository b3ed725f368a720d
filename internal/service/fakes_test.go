package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/noah-isme/gradebook-api/internal/models"
)

type recordingInvalidator struct {
	patterns []string
	flushed  []string
}

func (r *recordingInvalidator) Schedule(ctx context.Context, patterns ...string) {
	r.patterns = append(r.patterns, patterns...)
}

func (r *recordingInvalidator) Flush(ctx context.Context, patterns ...string) {
	r.patterns = append(r.patterns, patterns...)
	r.flushed = append(r.flushed, patterns...)
}

type fakeClassRepo struct {
	classes map[string]*models.Class
	err     error
}

func (f *fakeClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Class, 0)
	for _, c := range f.classes {
		if c.OwnerID == filter.OwnerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeClassRepo) FindOwned(ctx context.Context, id, ownerID string) (*models.Class, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.classes[id]
	if !ok || c.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	clone := *c
	return &clone, nil
}

func (f *fakeClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	c, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *c
	return &clone, nil
}

func (f *fakeClassRepo) Create(ctx context.Context, class *models.Class) error {
	if f.classes == nil {
		f.classes = make(map[string]*models.Class)
	}
	if class.ID == "" {
		class.ID = "generated"
	}
	stored := *class
	f.classes[class.ID] = &stored
	return nil
}

func (f *fakeClassRepo) Update(ctx context.Context, class *models.Class) error {
	stored := *class
	f.classes[class.ID] = &stored
	return nil
}

func (f *fakeClassRepo) Delete(ctx context.Context, id, ownerID string) error {
	c, ok := f.classes[id]
	if !ok || c.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(f.classes, id)
	return nil
}

type fakeStudentRepo struct {
	students []models.Student
	err      error
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Student, 0)
	for _, s := range f.students {
		if filter.ClassID == "" || s.ClassID == filter.ClassID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	return f.List(ctx, models.StudentFilter{ClassID: classID})
}

func (f *fakeStudentRepo) FindOwned(ctx context.Context, id, ownerID string) (*models.Student, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			clone := s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) CountInClass(ctx context.Context, classID string, ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		for _, s := range f.students {
			if s.ID == id && s.ClassID == classID {
				count++
			}
		}
	}
	return count, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "generated"
	}
	f.students = append(f.students, *student)
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	for i := range f.students {
		if f.students[i].ID == student.ID {
			f.students[i] = *student
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	for i := range f.students {
		if f.students[i].ID == id {
			f.students = append(f.students[:i], f.students[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeSubjectRepo struct {
	subjects  []models.Subject
	deleteErr error
	usedBy    map[string][]string
	usedByErr error
}

func (f *fakeSubjectRepo) ClassIDsUsing(ctx context.Context, subjectID string) ([]string, error) {
	if f.usedByErr != nil {
		return nil, f.usedByErr
	}
	return f.usedBy[subjectID], nil
}

func (f *fakeSubjectRepo) List(ctx context.Context, ownerID string) ([]models.Subject, error) {
	out := make([]models.Subject, 0)
	for _, s := range f.subjects {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubjectRepo) FindOwned(ctx context.Context, id, ownerID string) (*models.Subject, error) {
	for _, s := range f.subjects {
		if s.ID == id && s.OwnerID == ownerID {
			clone := s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSubjectRepo) FindOwnedByIDs(ctx context.Context, ownerID string, ids []string) ([]models.Subject, error) {
	out := make([]models.Subject, 0)
	for _, id := range ids {
		if s, err := f.FindOwned(ctx, id, ownerID); err == nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = "generated"
	}
	f.subjects = append(f.subjects, *subject)
	return nil
}

func (f *fakeSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	for i := range f.subjects {
		if f.subjects[i].ID == subject.ID {
			f.subjects[i] = *subject
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeSubjectRepo) Delete(ctx context.Context, id, ownerID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.subjects {
		if f.subjects[i].ID == id && f.subjects[i].OwnerID == ownerID {
			f.subjects = append(f.subjects[:i], f.subjects[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// fakeAssessmentRepo keeps assessments in insertion order and owner data in
// a class lookup.
type fakeAssessmentRepo struct {
	assessments []models.Assessment
	components  []models.SubjectComponent
	owners      map[string]string
	created     *models.Assessment
	updated     *models.Assessment
	published   map[string]bool
}

func (f *fakeAssessmentRepo) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error) {
	out := make([]models.Assessment, 0)
	for _, a := range f.assessments {
		if f.owners[a.ClassID] != filter.OwnerID {
			continue
		}
		if filter.ClassID != "" && a.ClassID != filter.ClassID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAssessmentRepo) ListByClass(ctx context.Context, classID string, publishedOnly bool) ([]models.Assessment, error) {
	out := make([]models.Assessment, 0)
	for _, a := range f.assessments {
		if a.ClassID != classID || (publishedOnly && !a.Published) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAssessmentRepo) ListComponents(ctx context.Context, ids []string) ([]models.SubjectComponent, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make([]models.SubjectComponent, 0)
	for _, c := range f.components {
		if wanted[c.AssessmentID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeAssessmentRepo) FindOwned(ctx context.Context, id, ownerID string) (*models.Assessment, error) {
	for _, a := range f.assessments {
		if a.ID == id && f.owners[a.ClassID] == ownerID {
			clone := a
			clone.Components, _ = f.ListComponents(ctx, []string{a.ID})
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAssessmentRepo) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = "generated"
	}
	for i := range assessment.Components {
		assessment.Components[i].AssessmentID = assessment.ID
	}
	f.created = assessment
	f.assessments = append(f.assessments, *assessment)
	return nil
}

func (f *fakeAssessmentRepo) Update(ctx context.Context, assessment *models.Assessment) error {
	f.updated = assessment
	return nil
}

func (f *fakeAssessmentRepo) SetPublished(ctx context.Context, id string, published bool, at *time.Time) error {
	if f.published == nil {
		f.published = make(map[string]bool)
	}
	f.published[id] = published
	return nil
}

func (f *fakeAssessmentRepo) Delete(ctx context.Context, id string) error {
	for i := range f.assessments {
		if f.assessments[i].ID == id {
			f.assessments = append(f.assessments[:i], f.assessments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeGradeRepo struct {
	grades []models.GradeRecord
	saved  []models.GradeRecord
	err    error
}

func (f *fakeGradeRepo) ListByAssessments(ctx context.Context, ids []string) ([]models.GradeRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make([]models.GradeRecord, 0)
	for _, g := range f.grades {
		if wanted[g.AssessmentID] {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGradeRepo) BulkUpsert(ctx context.Context, grades []models.GradeRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, grades...)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
