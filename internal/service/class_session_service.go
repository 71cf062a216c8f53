package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andikarf/school-core-api/internal/models"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type classSessionRepository interface {
	GetOrCreate(ctx context.Context, session *models.ClassSession) (*models.ClassSession, bool, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassSessionDetail, error)
}

type slotMatcher interface {
	FindMatch(ctx context.Context, termID, teacherID, sectionID, subjectID string, day models.Weekday, period string) (*models.TimetableSlot, error)
}

type rosterResolver interface {
	ActiveRoster(ctx context.Context, sectionID, termID string) ([]models.RosterStudent, error)
}

// resolveActiveTerm maps the absence of an active term to its domain error.
func resolveActiveTerm(ctx context.Context, resolver activeTermResolver) (*models.Term, error) {
	term, err := resolver.FindActive(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNoActiveTerm
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active term")
	}
	return term, nil
}

// OpenSessionRequest describes a teacher opening a concrete class meeting.
type OpenSessionRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	Period    string `json:"period" validate:"required"`
	Date      string `json:"date" validate:"required"`
}

// OpenSessionResult carries the session plus the ordered section roster.
type OpenSessionResult struct {
	Session *models.ClassSession   `json:"session"`
	Roster  []models.RosterStudent `json:"roster"`
	Created bool                   `json:"created"`
}

// ClassSessionService resolves teacher "open class" requests against the
// timetable before durably recording that the class occurred.
type ClassSessionService struct {
	repo        classSessionRepository
	timetable   slotMatcher
	enrollments rosterResolver
	activeTerm  activeTermResolver
	audit       auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassSessionService constructs the service.
func NewClassSessionService(repo classSessionRepository, timetable slotMatcher, enrollments rosterResolver, activeTerm activeTermResolver, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ClassSessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassSessionService{
		repo:        repo,
		timetable:   timetable,
		enrollments: enrollments,
		activeTerm:  activeTerm,
		audit:       audit,
		validator:   validate,
		logger:      logger,
	}
}

// OpenSession validates the request against the active term's timetable and
// returns the class session for the tuple, creating it on first open.
// Repeated opens with identical arguments return the existing record with
// opened_at untouched, so flaky clients can retry safely.
func (s *ClassSessionService) OpenSession(ctx context.Context, req OpenSessionRequest) (*OpenSessionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	term, err := resolveActiveTerm(ctx, s.activeTerm)
	if err != nil {
		return nil, err
	}

	day, ok := models.SchoolWeekday(date)
	if !ok {
		return nil, appErrors.ErrNoClassToday
	}

	if _, err := s.timetable.FindMatch(ctx, term.ID, req.TeacherID, req.SectionID, req.SubjectID, day, req.Period); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrTimetableMismatch
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to match timetable slot")
	}

	session, created, err := s.repo.GetOrCreate(ctx, &models.ClassSession{
		TermID:    term.ID,
		SectionID: req.SectionID,
		SubjectID: req.SubjectID,
		Period:    req.Period,
		Date:      date,
		OpenedBy:  req.TeacherID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open class session")
	}

	if created {
		s.recordOpenAudit(ctx, req, session)
	}

	roster, err := s.enrollments.ActiveRoster(ctx, req.SectionID, term.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve roster")
	}

	return &OpenSessionResult{Session: session, Roster: roster, Created: created}, nil
}

// GetSession fetches a session with its referenced entities resolved.
func (s *ClassSessionService) GetSession(ctx context.Context, id string) (*models.ClassSessionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class session")
	}
	return detail, nil
}

func (s *ClassSessionService) recordOpenAudit(ctx context.Context, req OpenSessionRequest, session *models.ClassSession) {
	metadata, _ := json.Marshal(map[string]string{
		"section_id": session.SectionID,
		"subject_id": session.SubjectID,
		"period":     session.Period,
		"date":       session.Date.Format(dateLayout),
	})
	if err := s.audit.Create(ctx, &models.AuditEntry{
		ActorID:     &req.TeacherID,
		Action:      models.AuditActionClassSessionOpened,
		Entity:      "class_session",
		EntityID:    &session.ID,
		Description: fmt.Sprintf("class session opened for section %s period %s", session.SectionID, session.Period),
		Metadata:    metadata,
	}); err != nil {
		s.logger.Warn("failed to record class session audit entry", zap.Error(err))
	}
}
