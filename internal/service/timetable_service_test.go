package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andikarf/school-core-api/internal/models"
	"github.com/andikarf/school-core-api/internal/repository"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
)

type timetableRepoMock struct {
	sectionSlots map[string]*models.TimetableSlot
	teacherSlots map[string]*models.TimetableSlot
	details      map[string]*models.TimetableSlotDetail
	listedSlots  []models.TimetableSlotDetail
	createErr    error
	created      *models.TimetableSlot
	deleted      []string
}

func slotKey(parts ...string) string {
	key := ""
	for _, part := range parts {
		key += part + "/"
	}
	return key
}

func (m *timetableRepoMock) FindSectionSlot(ctx context.Context, termID, sectionID string, day models.Weekday, period string) (*models.TimetableSlot, error) {
	if slot, ok := m.sectionSlots[slotKey(termID, sectionID, string(day), period)]; ok {
		return slot, nil
	}
	return nil, sql.ErrNoRows
}

func (m *timetableRepoMock) FindTeacherSlot(ctx context.Context, termID, teacherID string, day models.Weekday, period string) (*models.TimetableSlot, error) {
	if slot, ok := m.teacherSlots[slotKey(termID, teacherID, string(day), period)]; ok {
		return slot, nil
	}
	return nil, sql.ErrNoRows
}

func (m *timetableRepoMock) FindDetailByID(ctx context.Context, id string) (*models.TimetableSlotDetail, error) {
	if detail, ok := m.details[id]; ok {
		return detail, nil
	}
	if m.created != nil && m.created.ID == id {
		return &models.TimetableSlotDetail{TimetableSlot: *m.created}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *timetableRepoMock) ListBySection(ctx context.Context, sectionID, termID string) ([]models.TimetableSlotDetail, error) {
	return m.listedSlots, nil
}

func (m *timetableRepoMock) ListByTeacher(ctx context.Context, teacherID, termID string) ([]models.TimetableSlotDetail, error) {
	return m.listedSlots, nil
}

func (m *timetableRepoMock) Create(ctx context.Context, slot *models.TimetableSlot) error {
	if m.createErr != nil {
		return m.createErr
	}
	if slot.ID == "" {
		slot.ID = "slot-created"
	}
	m.created = slot
	return nil
}

func (m *timetableRepoMock) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type sectionReaderStub struct{ items map[string]*models.Section }

func (m *sectionReaderStub) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if section, ok := m.items[id]; ok {
		return section, nil
	}
	return nil, sql.ErrNoRows
}

type subjectReaderStub struct{ items map[string]*models.Subject }

func (m *subjectReaderStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := m.items[id]; ok {
		return subject, nil
	}
	return nil, sql.ErrNoRows
}

type teacherReaderStub struct{ items map[string]*models.Teacher }

func (m *teacherReaderStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

type activeTermStub struct{ term *models.Term }

func (m *activeTermStub) FindActive(ctx context.Context) (*models.Term, error) {
	if m.term == nil {
		return nil, sql.ErrNoRows
	}
	return m.term, nil
}

func newTimetableServiceForTest(repo *timetableRepoMock, audit *auditMock) *TimetableService {
	return NewTimetableService(TimetableServiceDeps{
		Repo: repo,
		Sections: &sectionReaderStub{items: map[string]*models.Section{
			"section-1": {ID: "section-1", Name: "10-A", Grade: "10"},
		}},
		Subjects: &subjectReaderStub{items: map[string]*models.Subject{
			"subject-1": {ID: "subject-1", Name: "Math", Code: "MTH"},
		}},
		Teachers: &teacherReaderStub{items: map[string]*models.Teacher{
			"teacher-1": {ID: "teacher-1", FullName: "Teacher One", Active: true},
			"teacher-2": {ID: "teacher-2", FullName: "Teacher Two", Active: false},
		}},
		Terms: &termRepoMock{terms: map[string]*models.Term{
			"term-1": sampleTerm("term-1", true),
		}},
		ActiveTerm: &activeTermStub{term: sampleTerm("term-1", true)},
		Authz: NewAuthzService(
			&assignmentStub{},
			&roleCheckerStub{teachers: map[string]bool{"teacher-1": true, "teacher-2": true}},
		),
		Audit:  audit,
		Logger: zap.NewNop(),
	})
}

func validAssignRequest() AssignSlotRequest {
	return AssignSlotRequest{
		TermID:    "term-1",
		SectionID: "section-1",
		SubjectID: "subject-1",
		TeacherID: "teacher-1",
		DayOfWeek: "MONDAY",
		Period:    "P1",
	}
}

func TestTimetableServiceAssignSlot(t *testing.T) {
	repo := &timetableRepoMock{}
	audit := &auditMock{}
	service := newTimetableServiceForTest(repo, audit)

	detail, err := service.AssignSlot(context.Background(), "admin-1", validAssignRequest())
	require.NoError(t, err)
	assert.Equal(t, models.WeekdayMonday, detail.DayOfWeek)
	assert.Equal(t, "P1", detail.Period)
	assert.Contains(t, audit.actions(), models.AuditActionSlotAssigned)
}

func TestTimetableServiceAssignSlotSectionConflictWins(t *testing.T) {
	occupied := &models.TimetableSlot{ID: "slot-existing"}
	repo := &timetableRepoMock{
		sectionSlots: map[string]*models.TimetableSlot{
			slotKey("term-1", "section-1", "MONDAY", "P1"): occupied,
		},
		teacherSlots: map[string]*models.TimetableSlot{
			slotKey("term-1", "teacher-1", "MONDAY", "P1"): occupied,
		},
	}
	service := newTimetableServiceForTest(repo, &auditMock{})

	_, err := service.AssignSlot(context.Background(), "admin-1", validAssignRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSectionConflict.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestTimetableServiceAssignSlotTeacherConflict(t *testing.T) {
	repo := &timetableRepoMock{
		teacherSlots: map[string]*models.TimetableSlot{
			slotKey("term-1", "teacher-1", "MONDAY", "P1"): {ID: "slot-existing"},
		},
	}
	service := newTimetableServiceForTest(repo, &auditMock{})

	_, err := service.AssignSlot(context.Background(), "admin-1", validAssignRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTeacherConflict.Code, appErr.Code)
}

func TestTimetableServiceAssignSlotLostRaceMapsConstraint(t *testing.T) {
	repo := &timetableRepoMock{
		createErr: &pq.Error{Code: "23505", Constraint: repository.ConstraintTeacherSlot},
	}
	service := newTimetableServiceForTest(repo, &auditMock{})

	_, err := service.AssignSlot(context.Background(), "admin-1", validAssignRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTeacherConflict.Code, appErr.Code)
}

func TestTimetableServiceAssignSlotRejectsOffDay(t *testing.T) {
	service := newTimetableServiceForTest(&timetableRepoMock{}, &auditMock{})

	req := validAssignRequest()
	req.DayOfWeek = "FRIDAY"
	_, err := service.AssignSlot(context.Background(), "admin-1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTimetableServiceAssignSlotRejectsInactiveTeacher(t *testing.T) {
	service := newTimetableServiceForTest(&timetableRepoMock{}, &auditMock{})

	req := validAssignRequest()
	req.TeacherID = "teacher-2"
	_, err := service.AssignSlot(context.Background(), "admin-1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTimetableServiceSectionTimetableGroupsByDay(t *testing.T) {
	now := time.Now()
	repo := &timetableRepoMock{
		listedSlots: []models.TimetableSlotDetail{
			{TimetableSlot: models.TimetableSlot{ID: "slot-1", DayOfWeek: models.WeekdaySunday, Period: "P1", CreatedAt: now}},
			{TimetableSlot: models.TimetableSlot{ID: "slot-2", DayOfWeek: models.WeekdaySunday, Period: "P2", CreatedAt: now}},
			{TimetableSlot: models.TimetableSlot{ID: "slot-3", DayOfWeek: models.WeekdayMonday, Period: "P1", CreatedAt: now}},
		},
	}
	service := newTimetableServiceForTest(repo, &auditMock{})

	weekly, err := service.SectionTimetable(context.Background(), "section-1", "")
	require.NoError(t, err)
	assert.Len(t, weekly[models.WeekdaySunday], 2)
	assert.Len(t, weekly[models.WeekdayMonday], 1)
}

func TestTimetableServiceRemoveSlot(t *testing.T) {
	repo := &timetableRepoMock{
		details: map[string]*models.TimetableSlotDetail{
			"slot-1": {TimetableSlot: models.TimetableSlot{
				ID: "slot-1", TermID: "term-1", SectionID: "section-1", TeacherID: "teacher-1",
				DayOfWeek: models.WeekdayMonday, Period: "P1",
			}},
		},
	}
	audit := &auditMock{}
	service := newTimetableServiceForTest(repo, audit)

	require.NoError(t, service.RemoveSlot(context.Background(), "admin-1", "slot-1"))
	assert.Equal(t, []string{"slot-1"}, repo.deleted)
	assert.Contains(t, audit.actions(), models.AuditActionSlotRemoved)
}
