package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/andikarf/school-core-api/internal/models"
	"github.com/andikarf/school-core-api/pkg/database"
)

const classSessionColumns = "id, term_id, section_id, subject_id, period, date, opened_by, opened_at, closed_at"

// ClassSessionRepository persists concrete class meetings.
type ClassSessionRepository struct {
	db *sqlx.DB
}

// NewClassSessionRepository constructs the repository.
func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

// FindByKey loads the session for (section, subject, period, date).
func (r *ClassSessionRepository) FindByKey(ctx context.Context, sectionID, subjectID, period string, date time.Time) (*models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE section_id = $1 AND subject_id = $2 AND period = $3 AND date = $4`, classSessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, sectionID, subjectID, period, date); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetOrCreate returns the session for the key, creating it when absent.
// A duplicate-key insert lost to a concurrent creator is resolved by
// re-fetching the winning row, so both callers observe the same record.
// The returned bool is true when this call created the row.
func (r *ClassSessionRepository) GetOrCreate(ctx context.Context, session *models.ClassSession) (*models.ClassSession, bool, error) {
	existing, err := r.FindByKey(ctx, session.SectionID, session.SubjectID, session.Period, session.Date)
	if err == nil {
		return existing, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("find class session: %w", err)
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.OpenedAt.IsZero() {
		session.OpenedAt = time.Now().UTC()
	}

	const insert = `INSERT INTO class_sessions (id, term_id, section_id, subject_id, period, date, opened_by, opened_at) VALUES (:id, :term_id, :section_id, :subject_id, :period, :date, :opened_by, :opened_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, session); err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			winner, fetchErr := r.FindByKey(ctx, session.SectionID, session.SubjectID, session.Period, session.Date)
			if fetchErr != nil {
				return nil, false, fmt.Errorf("refetch class session after lost race: %w", fetchErr)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("create class session: %w", err)
	}
	return session, true, nil
}

// FindDetailByID loads a session with section, subject and teacher resolved.
func (r *ClassSessionRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassSessionDetail, error) {
	const query = `
SELECT cs.id, cs.term_id, cs.section_id, cs.subject_id, cs.period, cs.date, cs.opened_by, cs.opened_at, cs.closed_at,
       sec.name AS section_name, sub.name AS subject_name, tr.full_name AS teacher_name
FROM class_sessions cs
JOIN sections sec ON sec.id = cs.section_id
JOIN subjects sub ON sub.id = cs.subject_id
JOIN teachers tr ON tr.id = cs.opened_by
WHERE cs.id = $1`
	var detail models.ClassSessionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}
