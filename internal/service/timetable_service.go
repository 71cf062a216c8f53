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
	"github.com/andikarf/school-core-api/internal/repository"
	"github.com/andikarf/school-core-api/pkg/cache"
	"github.com/andikarf/school-core-api/pkg/database"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
)

type timetableRepository interface {
	FindSectionSlot(ctx context.Context, termID, sectionID string, day models.Weekday, period string) (*models.TimetableSlot, error)
	FindTeacherSlot(ctx context.Context, termID, teacherID string, day models.Weekday, period string) (*models.TimetableSlot, error)
	FindDetailByID(ctx context.Context, id string) (*models.TimetableSlotDetail, error)
	ListBySection(ctx context.Context, sectionID, termID string) ([]models.TimetableSlotDetail, error)
	ListByTeacher(ctx context.Context, teacherID, termID string) ([]models.TimetableSlotDetail, error)
	Create(ctx context.Context, slot *models.TimetableSlot) error
	Delete(ctx context.Context, id string) error
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type activeTermResolver interface {
	FindActive(ctx context.Context) (*models.Term, error)
}

// AssignSlotRequest describes payload for assigning a timetable slot.
type AssignSlotRequest struct {
	TermID    string `json:"term_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
	DayOfWeek string `json:"day_of_week" validate:"required"`
	Period    string `json:"period" validate:"required"`
}

// TimetableService is the conflict engine guarding weekly slot assignments.
type TimetableService struct {
	repo      timetableRepository
	sections  sectionReader
	subjects  subjectReader
	teachers  teacherReader
	terms     termReader
	activeTerm activeTermResolver
	authz     *AuthzService
	audit     auditRecorder
	cache     *cache.Cache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// TimetableServiceDeps bundles constructor dependencies.
type TimetableServiceDeps struct {
	Repo       timetableRepository
	Sections   sectionReader
	Subjects   subjectReader
	Teachers   teacherReader
	Terms      termReader
	ActiveTerm activeTermResolver
	Authz      *AuthzService
	Audit      auditRecorder
	Cache      *cache.Cache
	CacheTTL   time.Duration
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// NewTimetableService instantiates TimetableService.
func NewTimetableService(deps TimetableServiceDeps) *TimetableService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &TimetableService{
		repo:       deps.Repo,
		sections:   deps.Sections,
		subjects:   deps.Subjects,
		teachers:   deps.Teachers,
		terms:      deps.Terms,
		activeTerm: deps.ActiveTerm,
		authz:      deps.Authz,
		audit:      deps.Audit,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		validator:  deps.Validator,
		logger:     deps.Logger,
	}
}

// AssignSlot books a (section, subject, teacher, weekday, period) tuple for a
// term. The section dimension is checked before the teacher dimension and the
// first violation found is reported. The unique indexes remain the source of
// truth; a lost insert race maps to the same conflict errors.
func (s *TimetableService) AssignSlot(ctx context.Context, actorID string, req AssignSlotRequest) (*models.TimetableSlotDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	day := models.Weekday(req.DayOfWeek)
	if !day.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be a school day")
	}

	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		return nil, notFoundOr(err, "term not found", "failed to load term")
	}
	if _, err := s.sections.FindByID(ctx, req.SectionID); err != nil {
		return nil, notFoundOr(err, "section not found", "failed to load section")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		return nil, notFoundOr(err, "subject not found", "failed to load subject")
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		return nil, notFoundOr(err, "teacher not found", "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}
	isTeacher, err := s.authz.HasTeacherRole(ctx, req.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher role")
	}
	if !isTeacher {
		return nil, appErrors.Clone(appErrors.ErrValidation, "referenced teacher does not hold the teacher role")
	}

	if err := s.ensureNoConflict(ctx, req.TermID, req.SectionID, req.TeacherID, day, req.Period); err != nil {
		return nil, err
	}

	slot := &models.TimetableSlot{
		TermID:    req.TermID,
		SectionID: req.SectionID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		DayOfWeek: day,
		Period:    req.Period,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		if constraint, ok := database.UniqueViolation(err); ok {
			switch constraint {
			case repository.ConstraintSectionSlot:
				return nil, appErrors.ErrSectionConflict
			case repository.ConstraintTeacherSlot:
				return nil, appErrors.ErrTeacherConflict
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable slot")
	}

	s.invalidateLookups(ctx, req.SectionID, req.TeacherID, req.TermID)
	s.recordSlotAudit(ctx, actorID, models.AuditActionSlotAssigned, slot)

	detail, err := s.repo.FindDetailByID(ctx, slot.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load created slot")
	}
	return detail, nil
}

// RemoveSlot deletes a slot. Replacement is delete plus re-create, which
// re-validates both conflict dimensions on the way back in.
func (s *TimetableService) RemoveSlot(ctx context.Context, actorID, id string) error {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "timetable slot not found", "failed to load timetable slot")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable slot")
	}

	s.invalidateLookups(ctx, detail.SectionID, detail.TeacherID, detail.TermID)
	s.recordSlotAudit(ctx, actorID, models.AuditActionSlotRemoved, &detail.TimetableSlot)
	return nil
}

// SectionTimetable returns the section's weekly timetable grouped by weekday.
// An empty termID resolves against the active term.
func (s *TimetableService) SectionTimetable(ctx context.Context, sectionID, termID string) (models.WeeklyTimetable, error) {
	termID, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("timetable:section:%s:%s", sectionID, termID)
	var cached models.WeeklyTimetable
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	slots, err := s.repo.ListBySection(ctx, sectionID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list section timetable")
	}
	weekly := groupByWeekday(slots)

	if err := s.cache.Set(ctx, key, weekly, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache section timetable", zap.Error(err))
	}
	return weekly, nil
}

// TeacherTimetable returns the teacher's weekly timetable grouped by weekday.
func (s *TimetableService) TeacherTimetable(ctx context.Context, teacherID, termID string) (models.WeeklyTimetable, error) {
	termID, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("timetable:teacher:%s:%s", teacherID, termID)
	var cached models.WeeklyTimetable
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	slots, err := s.repo.ListByTeacher(ctx, teacherID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher timetable")
	}
	weekly := groupByWeekday(slots)

	if err := s.cache.Set(ctx, key, weekly, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache teacher timetable", zap.Error(err))
	}
	return weekly, nil
}

func (s *TimetableService) resolveTerm(ctx context.Context, termID string) (string, error) {
	if termID != "" {
		return termID, nil
	}
	term, err := resolveActiveTerm(ctx, s.activeTerm)
	if err != nil {
		return "", err
	}
	return term.ID, nil
}

// ensureNoConflict is the friendly pre-check; the section dimension is
// reported before the teacher dimension, never both.
func (s *TimetableService) ensureNoConflict(ctx context.Context, termID, sectionID, teacherID string, day models.Weekday, period string) error {
	if _, err := s.repo.FindSectionSlot(ctx, termID, sectionID, day, period); err == nil {
		return appErrors.ErrSectionConflict
	} else if err != sql.ErrNoRows {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section conflicts")
	}

	if _, err := s.repo.FindTeacherSlot(ctx, termID, teacherID, day, period); err == nil {
		return appErrors.ErrTeacherConflict
	} else if err != sql.ErrNoRows {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher conflicts")
	}

	return nil
}

func (s *TimetableService) invalidateLookups(ctx context.Context, sectionID, teacherID, termID string) {
	keys := []string{
		fmt.Sprintf("timetable:section:%s:%s", sectionID, termID),
		fmt.Sprintf("timetable:teacher:%s:%s", teacherID, termID),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
	}
}

func (s *TimetableService) recordSlotAudit(ctx context.Context, actorID, action string, slot *models.TimetableSlot) {
	metadata, _ := json.Marshal(map[string]string{
		"term_id":     slot.TermID,
		"section_id":  slot.SectionID,
		"subject_id":  slot.SubjectID,
		"teacher_id":  slot.TeacherID,
		"day_of_week": string(slot.DayOfWeek),
		"period":      slot.Period,
	})
	if err := s.audit.Create(ctx, &models.AuditEntry{
		ActorID:     &actorID,
		Action:      action,
		Entity:      "timetable_slot",
		EntityID:    &slot.ID,
		Description: fmt.Sprintf("slot %s %s for section %s", slot.DayOfWeek, slot.Period, slot.SectionID),
		Metadata:    metadata,
	}); err != nil {
		s.logger.Warn("failed to record timetable audit entry", zap.Error(err))
	}
}

func groupByWeekday(slots []models.TimetableSlotDetail) models.WeeklyTimetable {
	weekly := make(models.WeeklyTimetable, len(slots))
	for _, slot := range slots {
		weekly[slot.DayOfWeek] = append(weekly[slot.DayOfWeek], slot)
	}
	return weekly
}

func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if err == sql.ErrNoRows {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internalMsg)
}
