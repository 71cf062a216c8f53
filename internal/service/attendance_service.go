package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andikarf/school-core-api/internal/models"
	"github.com/andikarf/school-core-api/pkg/export"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
)

type attendanceRepository interface {
	FindSessionByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	GetOrCreateSession(ctx context.Context, session *models.AttendanceSession) (*models.AttendanceSession, bool, error)
	ListRecords(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error)
	SubmitSession(ctx context.Context, sessionID string, submittedAt time.Time, records []models.AttendanceRecord) (bool, error)
	CountRecords(ctx context.Context, sessionID string) (*models.AttendanceCounts, error)
}

// CreateOrGetSessionRequest opens (or fetches) the attendance session of a
// section for one day.
type CreateOrGetSessionRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
}

// AttendanceSessionResult carries the session plus the roster merged with any
// already-recorded marks.
type AttendanceSessionResult struct {
	Session *models.AttendanceSession `json:"session"`
	Roster  []models.RosterEntry      `json:"roster"`
	Created bool                      `json:"created"`
}

// AttendanceRecordInput is one per-student mark in a submission.
type AttendanceRecordInput struct {
	StudentID string  `json:"student_id" validate:"required"`
	Status    string  `json:"status" validate:"required,attendance_status"`
	Reason    *string `json:"reason"`
}

// SubmitSessionRequest finalizes a draft attendance session.
type SubmitSessionRequest struct {
	TeacherID string                  `json:"teacher_id" validate:"required"`
	Records   []AttendanceRecordInput `json:"records" validate:"required,min=1,dive"`
}

// AttendanceService drives the draft → submitted session state machine.
type AttendanceService struct {
	repo        attendanceRepository
	enrollments rosterResolver
	activeTerm  activeTermResolver
	authz       *AuthzService
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, enrollments rosterResolver, activeTerm activeTermResolver, authz *AuthzService, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{
		repo:        repo,
		enrollments: enrollments,
		activeTerm:  activeTerm,
		authz:       authz,
		audit:       audit,
		validator:   validate,
		logger:      logger,
	}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// CreateOrGetSession returns the section's attendance session for the day,
// creating a draft on first call. Concurrent creators converge on the same
// record; only the true creator produces an audit entry.
func (s *AttendanceService) CreateOrGetSession(ctx context.Context, req CreateOrGetSessionRequest) (*AttendanceSessionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance session payload")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	term, err := resolveActiveTerm(ctx, s.activeTerm)
	if err != nil {
		return nil, err
	}

	allowed, err := s.authz.CanManageSection(ctx, req.TeacherID, req.SectionID, term.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to authorize teacher")
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher is not assigned to this section")
	}

	session, created, err := s.repo.GetOrCreateSession(ctx, &models.AttendanceSession{
		SectionID: req.SectionID,
		Date:      date,
		Status:    models.AttendanceSessionDraft,
		CreatedBy: req.TeacherID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open attendance session")
	}

	if created {
		s.recordSessionAudit(ctx, req.TeacherID, models.AuditActionAttendanceCreated, session, "attendance session opened")
	}

	roster, err := s.mergedRoster(ctx, session, term.ID)
	if err != nil {
		return nil, err
	}

	return &AttendanceSessionResult{Session: session, Roster: roster, Created: created}, nil
}

// SubmitSession upserts the submitted marks and finalizes the session. The
// transition and all record writes are one atomic unit; a session that left
// DRAFT can never be re-submitted.
func (s *AttendanceService) SubmitSession(ctx context.Context, sessionID string, req SubmitSessionRequest) (*models.AttendanceCounts, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance submission")
	}

	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance session")
	}
	if session.Status != models.AttendanceSessionDraft {
		return nil, appErrors.ErrFinalized
	}

	// A substitute finishing another teacher's draft must pass the same
	// section-assignment check as creation.
	if session.CreatedBy != req.TeacherID {
		term, err := resolveActiveTerm(ctx, s.activeTerm)
		if err != nil {
			return nil, err
		}
		allowed, err := s.authz.CanManageSection(ctx, req.TeacherID, session.SectionID, term.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to authorize teacher")
		}
		if !allowed {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher is not assigned to this section")
		}
	}

	records := make([]models.AttendanceRecord, 0, len(req.Records))
	for _, input := range req.Records {
		status := models.AttendanceStatus(strings.ToUpper(input.Status))
		var reason *string
		if status == models.AttendanceStatusAbsent {
			reason = input.Reason
		}
		records = append(records, models.AttendanceRecord{
			SessionID: sessionID,
			StudentID: input.StudentID,
			Status:    status,
			Reason:    reason,
		})
	}

	submittedAt := time.Now().UTC()
	finalized, err := s.repo.SubmitSession(ctx, sessionID, submittedAt, records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit attendance session")
	}
	if !finalized {
		return nil, appErrors.ErrFinalized
	}

	for _, record := range records {
		if record.Status == models.AttendanceStatusAbsent {
			s.recordAbsenceAudit(ctx, req.TeacherID, session, record)
		}
	}
	s.recordSessionAudit(ctx, req.TeacherID, models.AuditActionAttendanceSubmitted, session, "attendance session submitted")

	counts, err := s.repo.CountRecords(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance records")
	}
	return counts, nil
}

// GetSession returns a session with its merged roster, for review screens
// and exports.
func (s *AttendanceService) GetSession(ctx context.Context, sessionID string) (*AttendanceSessionResult, error) {
	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance session")
	}

	term, err := resolveActiveTerm(ctx, s.activeTerm)
	if err != nil {
		return nil, err
	}

	roster, err := s.mergedRoster(ctx, session, term.ID)
	if err != nil {
		return nil, err
	}
	return &AttendanceSessionResult{Session: session, Roster: roster}, nil
}

// ExportSession renders a session's sheet as CSV or PDF.
func (s *AttendanceService) ExportSession(ctx context.Context, sessionID, format string) ([]byte, string, error) {
	result, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	sheet := export.Sheet{
		Title:   fmt.Sprintf("Attendance %s", result.Session.Date.Format(dateLayout)),
		Headers: []string{"Roll No", "Student", "Status", "Reason"},
	}
	for _, entry := range result.Roster {
		status := ""
		if entry.Status != nil {
			status = string(*entry.Status)
		}
		reason := ""
		if entry.Reason != nil {
			reason = *entry.Reason
		}
		sheet.Rows = append(sheet.Rows, []string{fmt.Sprintf("%d", entry.RollNo), entry.StudentName, status, reason})
	}

	base := fmt.Sprintf("attendance-%s-%s", result.Session.SectionID, result.Session.Date.Format(dateLayout))
	switch strings.ToLower(format) {
	case "pdf":
		payload, err := export.NewPDFExporter().Render(sheet)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, base + ".pdf", nil
	case "", "csv":
		payload, err := export.NewCSVExporter().Render(sheet)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, base + ".csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// mergedRoster combines the enrolled roster with recorded marks. Students
// without a record keep a nil status: undetermined, not absent.
func (s *AttendanceService) mergedRoster(ctx context.Context, session *models.AttendanceSession, termID string) ([]models.RosterEntry, error) {
	roster, err := s.enrollments.ActiveRoster(ctx, session.SectionID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve roster")
	}
	records, err := s.repo.ListRecords(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}

	marks := make(map[string]models.AttendanceRecord, len(records))
	for _, record := range records {
		marks[record.StudentID] = record
	}

	entries := make([]models.RosterEntry, 0, len(roster))
	for _, student := range roster {
		entry := models.RosterEntry{
			StudentID:   student.StudentID,
			StudentName: student.StudentName,
			RollNo:      student.RollNo,
		}
		if record, ok := marks[student.StudentID]; ok {
			status := record.Status
			entry.Status = &status
			entry.Reason = record.Reason
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *AttendanceService) recordSessionAudit(ctx context.Context, actorID, action string, session *models.AttendanceSession, description string) {
	metadata, _ := json.Marshal(map[string]string{
		"section_id": session.SectionID,
		"date":       session.Date.Format(dateLayout),
	})
	if err := s.audit.Create(ctx, &models.AuditEntry{
		ActorID:     &actorID,
		Action:      action,
		Entity:      "attendance_session",
		EntityID:    &session.ID,
		Description: description,
		Metadata:    metadata,
	}); err != nil {
		s.logger.Warn("failed to record attendance audit entry", zap.Error(err))
	}
}

func (s *AttendanceService) recordAbsenceAudit(ctx context.Context, actorID string, session *models.AttendanceSession, record models.AttendanceRecord) {
	meta := map[string]string{
		"section_id": session.SectionID,
		"date":       session.Date.Format(dateLayout),
		"student_id": record.StudentID,
	}
	if record.Reason != nil {
		meta["reason"] = *record.Reason
	}
	metadata, _ := json.Marshal(meta)
	if err := s.audit.Create(ctx, &models.AuditEntry{
		ActorID:     &actorID,
		Action:      models.AuditActionAbsenceRecorded,
		Entity:      "attendance_record",
		EntityID:    &record.StudentID,
		Description: fmt.Sprintf("student %s marked absent", record.StudentID),
		Metadata:    metadata,
	}); err != nil {
		s.logger.Warn("failed to record absence audit entry", zap.Error(err))
	}
}
