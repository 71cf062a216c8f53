package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/andikarf/school-core-api/internal/models"
)

// Unique index names backing the two timetable conflict dimensions. The
// indexes are the race-breaker; the application pre-checks only exist for
// friendlier error messages.
const (
	ConstraintSectionSlot = "timetable_slots_section_slot_key"
	ConstraintTeacherSlot = "timetable_slots_teacher_slot_key"
)

const slotColumns = "id, term_id, section_id, subject_id, teacher_id, day_of_week, period, created_at"

const slotDetailQuery = `
SELECT ts.id, ts.term_id, ts.section_id, ts.subject_id, ts.teacher_id, ts.day_of_week, ts.period, ts.created_at,
       sec.name AS section_name, sub.name AS subject_name, tr.full_name AS teacher_name, t.name AS term_name
FROM timetable_slots ts
JOIN sections sec ON sec.id = ts.section_id
JOIN subjects sub ON sub.id = ts.subject_id
JOIN teachers tr ON tr.id = ts.teacher_id
JOIN terms t ON t.id = ts.term_id`

// TimetableRepository persists weekly timetable slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// FindSectionSlot returns the slot occupying (term, section, weekday, period).
func (r *TimetableRepository) FindSectionSlot(ctx context.Context, termID, sectionID string, day models.Weekday, period string) (*models.TimetableSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_slots WHERE term_id = $1 AND section_id = $2 AND day_of_week = $3 AND period = $4`, slotColumns)
	var slot models.TimetableSlot
	if err := r.db.GetContext(ctx, &slot, query, termID, sectionID, day, period); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindTeacherSlot returns the slot occupying (term, teacher, weekday, period).
func (r *TimetableRepository) FindTeacherSlot(ctx context.Context, termID, teacherID string, day models.Weekday, period string) (*models.TimetableSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_slots WHERE term_id = $1 AND teacher_id = $2 AND day_of_week = $3 AND period = $4`, slotColumns)
	var slot models.TimetableSlot
	if err := r.db.GetContext(ctx, &slot, query, termID, teacherID, day, period); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindMatch looks up the slot a teacher is scheduled to teach for the exact
// (term, teacher, section, subject, weekday, period) tuple.
func (r *TimetableRepository) FindMatch(ctx context.Context, termID, teacherID, sectionID, subjectID string, day models.Weekday, period string) (*models.TimetableSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_slots WHERE term_id = $1 AND teacher_id = $2 AND section_id = $3 AND subject_id = $4 AND day_of_week = $5 AND period = $6`, slotColumns)
	var slot models.TimetableSlot
	if err := r.db.GetContext(ctx, &slot, query, termID, teacherID, sectionID, subjectID, day, period); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindDetailByID loads a slot with referenced entities resolved.
func (r *TimetableRepository) FindDetailByID(ctx context.Context, id string) (*models.TimetableSlotDetail, error) {
	query := slotDetailQuery + " WHERE ts.id = $1"
	var detail models.TimetableSlotDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListBySection returns all slots for a section in a term ordered by day and period.
func (r *TimetableRepository) ListBySection(ctx context.Context, sectionID, termID string) ([]models.TimetableSlotDetail, error) {
	query := slotDetailQuery + " WHERE ts.section_id = $1 AND ts.term_id = $2 ORDER BY ts.day_of_week ASC, ts.period ASC"
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, sectionID, termID); err != nil {
		return nil, fmt.Errorf("list section slots: %w", err)
	}
	return slots, nil
}

// ListByTeacher returns all slots taught by a teacher in a term.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, teacherID, termID string) ([]models.TimetableSlotDetail, error) {
	query := slotDetailQuery + " WHERE ts.teacher_id = $1 AND ts.term_id = $2 ORDER BY ts.day_of_week ASC, ts.period ASC"
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, teacherID, termID); err != nil {
		return nil, fmt.Errorf("list teacher slots: %w", err)
	}
	return slots, nil
}

// ExistsForTeacherSection reports whether the teacher holds any slot for the
// section in the term. Backs the section-assignment authorization check.
func (r *TimetableRepository) ExistsForTeacherSection(ctx context.Context, teacherID, sectionID, termID string) (bool, error) {
	const query = `SELECT 1 FROM timetable_slots WHERE teacher_id = $1 AND section_id = $2 AND term_id = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, sectionID, termID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher section assignment: %w", err)
	}
	return true, nil
}

// Create stores a new slot. Callers must map unique violations on the slot
// indexes to the matching conflict dimension.
func (r *TimetableRepository) Create(ctx context.Context, slot *models.TimetableSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO timetable_slots (id, term_id, section_id, subject_id, teacher_id, day_of_week, period, created_at) VALUES (:id, :term_id, :section_id, :subject_id, :teacher_id, :day_of_week, :period, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return err
	}
	return nil
}

// Delete removes a slot by id.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM timetable_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted slot rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
