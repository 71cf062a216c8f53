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

const attendanceSessionColumns = "id, section_id, date, status, created_by, created_at, submitted_at, updated_at"

// AttendanceRepository persists attendance sessions and their records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindSessionByID loads an attendance session.
func (r *AttendanceRepository) FindSessionByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE id = $1`, attendanceSessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindSessionByKey loads the session for (section, date).
func (r *AttendanceRepository) FindSessionByKey(ctx context.Context, sectionID string, date time.Time) (*models.AttendanceSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_sessions WHERE section_id = $1 AND date = $2`, attendanceSessionColumns)
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, sectionID, date); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetOrCreateSession returns the session for (section, date), creating a
// draft when absent. The unique index on the key breaks creation races; a
// lost insert is resolved by re-fetching the winner. The returned bool is
// true when this call created the row.
func (r *AttendanceRepository) GetOrCreateSession(ctx context.Context, session *models.AttendanceSession) (*models.AttendanceSession, bool, error) {
	existing, err := r.FindSessionByKey(ctx, session.SectionID, session.Date)
	if err == nil {
		return existing, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("find attendance session: %w", err)
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Status == "" {
		session.Status = models.AttendanceSessionDraft
	}

	const insert = `INSERT INTO attendance_sessions (id, section_id, date, status, created_by, created_at, updated_at) VALUES (:id, :section_id, :date, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, session); err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			winner, fetchErr := r.FindSessionByKey(ctx, session.SectionID, session.Date)
			if fetchErr != nil {
				return nil, false, fmt.Errorf("refetch attendance session after lost race: %w", fetchErr)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("create attendance session: %w", err)
	}
	return session, true, nil
}

// ListRecords returns the records of a session keyed for roster merging.
func (r *AttendanceRepository) ListRecords(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, session_id, student_id, status, reason, created_at, updated_at FROM attendance_records WHERE session_id = $1 ORDER BY created_at ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// SubmitSession upserts all records and transitions the session from DRAFT to
// SUBMITTED as one atomic unit. The transition is a conditional update; when
// it matches no row the session was already finalized by a concurrent caller
// and false is returned with nothing written.
func (r *AttendanceRepository) SubmitSession(ctx context.Context, sessionID string, submittedAt time.Time, records []models.AttendanceRecord) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin submit tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Claim the draft first so a concurrent submitter observes zero rows and
	// never interleaves record writes with ours.
	var result sql.Result
	result, err = tx.ExecContext(ctx, `UPDATE attendance_sessions SET status = $2, submitted_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`,
		sessionID, models.AttendanceSessionSubmitted, submittedAt, models.AttendanceSessionDraft)
	if err != nil {
		return false, fmt.Errorf("finalize attendance session: %w", err)
	}
	var affected int64
	if affected, err = result.RowsAffected(); err != nil {
		return false, fmt.Errorf("check finalized session rows: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return false, nil
	}

	const upsert = `INSERT INTO attendance_records (id, session_id, student_id, status, reason, created_at, updated_at)
VALUES (:id, :session_id, :student_id, :status, :reason, :created_at, :updated_at)
ON CONFLICT (session_id, student_id) DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason, updated_at = EXCLUDED.updated_at`
	for i := range records {
		payload := records[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.SessionID = sessionID
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = submittedAt
		}
		payload.UpdatedAt = submittedAt
		if _, err = sqlx.NamedExecContext(ctx, tx, upsert, &payload); err != nil {
			return false, fmt.Errorf("upsert attendance record: %w", err)
		}
		records[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit submit tx: %w", err)
	}
	return true, nil
}

// CountRecords summarises a session's marks.
func (r *AttendanceRepository) CountRecords(ctx context.Context, sessionID string) (*models.AttendanceCounts, error) {
	const query = `
SELECT COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
       COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent,
       COUNT(*) AS total
FROM attendance_records WHERE session_id = $1`
	var counts models.AttendanceCounts
	if err := r.db.GetContext(ctx, &counts, query, sessionID); err != nil {
		return nil, fmt.Errorf("count attendance records: %w", err)
	}
	return &counts, nil
}
