package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andikarf/school-core-api/internal/models"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
)

type attendanceRepoMock struct {
	session   *models.AttendanceSession
	records   []models.AttendanceRecord
	submitted []models.AttendanceRecord
	finalized bool
	raceLost  bool
	counts    *models.AttendanceCounts
}

func (m *attendanceRepoMock) FindSessionByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if m.session == nil || m.session.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *m.session
	return &cp, nil
}

func (m *attendanceRepoMock) GetOrCreateSession(ctx context.Context, session *models.AttendanceSession) (*models.AttendanceSession, bool, error) {
	if m.session != nil {
		return m.session, false, nil
	}
	session.ID = "att-created"
	session.Status = models.AttendanceSessionDraft
	m.session = session
	return session, true, nil
}

func (m *attendanceRepoMock) ListRecords(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	return m.records, nil
}

func (m *attendanceRepoMock) SubmitSession(ctx context.Context, sessionID string, submittedAt time.Time, records []models.AttendanceRecord) (bool, error) {
	if m.raceLost {
		return false, nil
	}
	m.submitted = records
	m.finalized = true
	m.session.Status = models.AttendanceSessionSubmitted
	m.session.SubmittedAt = &submittedAt
	return true, nil
}

func (m *attendanceRepoMock) CountRecords(ctx context.Context, sessionID string) (*models.AttendanceCounts, error) {
	if m.counts != nil {
		return m.counts, nil
	}
	counts := &models.AttendanceCounts{}
	for _, record := range m.submitted {
		counts.Total++
		switch record.Status {
		case models.AttendanceStatusPresent:
			counts.Present++
		case models.AttendanceStatusAbsent:
			counts.Absent++
		}
	}
	return counts, nil
}

func newAttendanceServiceForTest(repo *attendanceRepoMock, roster *rosterMock, authz *AuthzService, audit *auditMock) *AttendanceService {
	if authz == nil {
		authz = NewAuthzService(
			&assignmentStub{assigned: map[string]bool{"teacher-1/section-1": true}},
			&roleCheckerStub{},
		)
	}
	return NewAttendanceService(repo, roster, &activeTermStub{term: sampleTerm("term-1", true)}, authz, audit, nil, zap.NewNop())
}

func draftSession(id string) *models.AttendanceSession {
	return &models.AttendanceSession{
		ID:        id,
		SectionID: "section-1",
		Date:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Status:    models.AttendanceSessionDraft,
		CreatedBy: "teacher-1",
	}
}

func TestAttendanceServiceCreateOrGetSession(t *testing.T) {
	repo := &attendanceRepoMock{}
	roster := &rosterMock{students: []models.RosterStudent{
		{StudentID: "student-1", StudentName: "Student One", RollNo: 1},
		{StudentID: "student-2", StudentName: "Student Two", RollNo: 2},
	}}
	audit := &auditMock{}
	service := newAttendanceServiceForTest(repo, roster, nil, audit)

	result, err := service.CreateOrGetSession(context.Background(), CreateOrGetSessionRequest{
		SectionID: "section-1",
		Date:      "2026-01-05",
		TeacherID: "teacher-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, models.AttendanceSessionDraft, result.Session.Status)
	require.Len(t, result.Roster, 2)
	assert.Nil(t, result.Roster[0].Status)
	assert.Contains(t, audit.actions(), models.AuditActionAttendanceCreated)
}

func TestAttendanceServiceCreateOrGetSessionForbidden(t *testing.T) {
	service := newAttendanceServiceForTest(&attendanceRepoMock{}, &rosterMock{}, nil, &auditMock{})

	_, err := service.CreateOrGetSession(context.Background(), CreateOrGetSessionRequest{
		SectionID: "section-1",
		Date:      "2026-01-05",
		TeacherID: "teacher-9",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAttendanceServiceCreateOrGetSessionElevatedBypass(t *testing.T) {
	authz := NewAuthzService(
		&assignmentStub{},
		&roleCheckerStub{elevated: map[string]bool{"principal-1": true}},
	)
	service := newAttendanceServiceForTest(&attendanceRepoMock{}, &rosterMock{}, authz, &auditMock{})

	result, err := service.CreateOrGetSession(context.Background(), CreateOrGetSessionRequest{
		SectionID: "section-1",
		Date:      "2026-01-05",
		TeacherID: "principal-1",
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
}

func TestAttendanceServiceSubmitSession(t *testing.T) {
	repo := &attendanceRepoMock{session: draftSession("att-1")}
	audit := &auditMock{}
	service := newAttendanceServiceForTest(repo, &rosterMock{}, nil, audit)

	reason := "sick"
	counts, err := service.SubmitSession(context.Background(), "att-1", SubmitSessionRequest{
		TeacherID: "teacher-1",
		Records: []AttendanceRecordInput{
			{StudentID: "student-1", Status: "PRESENT"},
			{StudentID: "student-2", Status: "ABSENT", Reason: &reason},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Present)
	assert.Equal(t, 1, counts.Absent)
	assert.Equal(t, 2, counts.Total)
	assert.Contains(t, audit.actions(), models.AuditActionAttendanceSubmitted)
	assert.Contains(t, audit.actions(), models.AuditActionAbsenceRecorded)
}

func TestAttendanceServiceSubmitSessionDropsReasonForPresent(t *testing.T) {
	repo := &attendanceRepoMock{session: draftSession("att-1")}
	service := newAttendanceServiceForTest(repo, &rosterMock{}, nil, &auditMock{})

	reason := "stale note"
	_, err := service.SubmitSession(context.Background(), "att-1", SubmitSessionRequest{
		TeacherID: "teacher-1",
		Records: []AttendanceRecordInput{
			{StudentID: "student-1", Status: "PRESENT", Reason: &reason},
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.submitted, 1)
	assert.Nil(t, repo.submitted[0].Reason)
}

func TestAttendanceServiceSubmitSessionAlreadyFinalized(t *testing.T) {
	session := draftSession("att-1")
	session.Status = models.AttendanceSessionSubmitted
	repo := &attendanceRepoMock{session: session}
	service := newAttendanceServiceForTest(repo, &rosterMock{}, nil, &auditMock{})

	_, err := service.SubmitSession(context.Background(), "att-1", SubmitSessionRequest{
		TeacherID: "teacher-1",
		Records:   []AttendanceRecordInput{{StudentID: "student-1", Status: "PRESENT"}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErr.Code)
}

func TestAttendanceServiceSubmitSessionLostFinalizeRace(t *testing.T) {
	repo := &attendanceRepoMock{session: draftSession("att-1"), raceLost: true}
	audit := &auditMock{}
	service := newAttendanceServiceForTest(repo, &rosterMock{}, nil, audit)

	_, err := service.SubmitSession(context.Background(), "att-1", SubmitSessionRequest{
		TeacherID: "teacher-1",
		Records:   []AttendanceRecordInput{{StudentID: "student-1", Status: "PRESENT"}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErr.Code)
	assert.Empty(t, audit.entries)
}

func TestAttendanceServiceSubmitSessionSubstituteRequiresAssignment(t *testing.T) {
	repo := &attendanceRepoMock{session: draftSession("att-1")}
	service := newAttendanceServiceForTest(repo, &rosterMock{}, nil, &auditMock{})

	_, err := service.SubmitSession(context.Background(), "att-1", SubmitSessionRequest{
		TeacherID: "teacher-9",
		Records:   []AttendanceRecordInput{{StudentID: "student-1", Status: "PRESENT"}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAttendanceServiceSubmitSessionRejectsUnknownStatus(t *testing.T) {
	repo := &attendanceRepoMock{session: draftSession("att-1")}
	service := newAttendanceServiceForTest(repo, &rosterMock{}, nil, &auditMock{})

	_, err := service.SubmitSession(context.Background(), "att-1", SubmitSessionRequest{
		TeacherID: "teacher-1",
		Records:   []AttendanceRecordInput{{StudentID: "student-1", Status: "LATE"}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAttendanceServiceGetSessionMergesRoster(t *testing.T) {
	status := models.AttendanceStatusAbsent
	reason := "sick"
	repo := &attendanceRepoMock{
		session: draftSession("att-1"),
		records: []models.AttendanceRecord{
			{SessionID: "att-1", StudentID: "student-2", Status: status, Reason: &reason},
		},
	}
	roster := &rosterMock{students: []models.RosterStudent{
		{StudentID: "student-1", StudentName: "Student One", RollNo: 1},
		{StudentID: "student-2", StudentName: "Student Two", RollNo: 2},
	}}
	service := newAttendanceServiceForTest(repo, roster, nil, &auditMock{})

	result, err := service.GetSession(context.Background(), "att-1")
	require.NoError(t, err)
	require.Len(t, result.Roster, 2)
	assert.Nil(t, result.Roster[0].Status)
	require.NotNil(t, result.Roster[1].Status)
	assert.Equal(t, models.AttendanceStatusAbsent, *result.Roster[1].Status)
	assert.Equal(t, "sick", *result.Roster[1].Reason)
}

func TestAttendanceServiceExportSessionCSV(t *testing.T) {
	repo := &attendanceRepoMock{session: draftSession("att-1")}
	roster := &rosterMock{students: []models.RosterStudent{
		{StudentID: "student-1", StudentName: "Student One", RollNo: 1},
	}}
	service := newAttendanceServiceForTest(repo, roster, nil, &auditMock{})

	payload, filename, err := service.ExportSession(context.Background(), "att-1", "csv")
	require.NoError(t, err)
	assert.Contains(t, filename, ".csv")
	assert.Contains(t, string(payload), "Student One")
}

func TestAttendanceServiceExportSessionUnknownFormat(t *testing.T) {
	repo := &attendanceRepoMock{session: draftSession("att-1")}
	service := newAttendanceServiceForTest(repo, &rosterMock{}, nil, &auditMock{})

	_, _, err := service.ExportSession(context.Background(), "att-1", "xlsx")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
