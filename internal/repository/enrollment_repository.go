package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andikarf/school-core-api/internal/models"
)

// EnrollmentRepository reads the enrollment directory owned by the CRUD shell.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ActiveRoster returns all actively enrolled students of a section for a
// term, ordered by roll number.
func (r *EnrollmentRepository) ActiveRoster(ctx context.Context, sectionID, termID string) ([]models.RosterStudent, error) {
	const query = `
SELECT e.student_id, st.full_name AS student_name, e.roll_no
FROM enrollments e
JOIN students st ON st.id = e.student_id
WHERE e.section_id = $1 AND e.term_id = $2 AND e.status = 'ACTIVE'
ORDER BY e.roll_no ASC`
	var roster []models.RosterStudent
	if err := r.db.SelectContext(ctx, &roster, query, sectionID, termID); err != nil {
		return nil, fmt.Errorf("resolve section roster: %w", err)
	}
	return roster, nil
}
