package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/andikarf/school-core-api/internal/models"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
)

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error)
}

// AuditService exposes read access over the append-only audit trail.
type AuditService struct {
	repo   auditLister
	logger *zap.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo auditLister, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// List returns audit entries with pagination metadata, newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
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
	return entries, pagination, nil
}
