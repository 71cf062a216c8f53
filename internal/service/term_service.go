package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andikarf/school-core-api/internal/models"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
)

type termRepository interface {
	List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error)
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindActive(ctx context.Context) (*models.Term, error)
	Create(ctx context.Context, term *models.Term) error
	Activate(ctx context.Context, id string) error
}

type auditRecorder interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
}

// CreateTermRequest describes payload for creating a term.
type CreateTermRequest struct {
	Name         string    `json:"name" validate:"required"`
	AcademicYear string    `json:"academic_year" validate:"required"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required"`
}

// TermService is the calendar registry every other component resolves "now"
// against. The active term is read fresh per request, never cached.
type TermService struct {
	repo      termRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTermService instantiates TermService.
func NewTermService(repo termRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *TermService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns terms with pagination metadata.
func (s *TermService) List(ctx context.Context, filter models.TermFilter) ([]models.Term, *models.Pagination, error) {
	terms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return terms, pagination, nil
}

// Active resolves the single currently active term.
func (s *TermService) Active(ctx context.Context) (*models.Term, error) {
	term, err := s.repo.FindActive(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrNoActiveTerm
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active term")
	}
	return term, nil
}

// Create inserts a new, initially inactive term.
func (s *TermService) Create(ctx context.Context, req CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}

	term := &models.Term{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		IsActive:     false,
	}
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// Activate flips the single active flag to the given term.
func (s *TermService) Activate(ctx context.Context, actorID, id string) (*models.Term, error) {
	if err := s.repo.Activate(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate term")
	}

	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activated term")
	}

	if err := s.audit.Create(ctx, &models.AuditEntry{
		ActorID:     &actorID,
		Action:      models.AuditActionTermActivated,
		Entity:      "term",
		EntityID:    &term.ID,
		Description: "term " + term.Name + " activated",
	}); err != nil {
		s.logger.Warn("failed to record term activation audit entry", zap.Error(err))
	}

	return term, nil
}
