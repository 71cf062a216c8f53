package models

import "time"

// AttendanceSessionStatus tracks the lifecycle of an attendance session.
type AttendanceSessionStatus string

const (
	AttendanceSessionDraft     AttendanceSessionStatus = "DRAFT"
	AttendanceSessionSubmitted AttendanceSessionStatus = "SUBMITTED"
	// AttendanceSessionLocked is reserved for a future archival operation.
	// No code path transitions into it.
	AttendanceSessionLocked AttendanceSessionStatus = "LOCKED"
)

// AttendanceStatus represents a per-student mark inside a session.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceSession is the per-section, per-day attendance roster. It stays
// mutable while in DRAFT and freezes on submission.
type AttendanceSession struct {
	ID          string                  `db:"id" json:"id"`
	SectionID   string                  `db:"section_id" json:"section_id"`
	Date        time.Time               `db:"date" json:"date"`
	Status      AttendanceSessionStatus `db:"status" json:"status"`
	CreatedBy   string                  `db:"created_by" json:"created_by"`
	CreatedAt   time.Time               `db:"created_at" json:"created_at"`
	SubmittedAt *time.Time              `db:"submitted_at" json:"submitted_at,omitempty"`
	UpdatedAt   time.Time               `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord marks one student within a session. At most one record
// exists per (session, student); resubmission overwrites.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Reason    *string          `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// RosterEntry combines an enrolled student with any recorded mark. Status is
// nil for students not yet marked; callers must treat that as undetermined,
// not as an absence.
type RosterEntry struct {
	StudentID   string            `db:"student_id" json:"student_id"`
	StudentName string            `db:"student_name" json:"student_name"`
	RollNo      int               `db:"roll_no" json:"roll_no"`
	Status      *AttendanceStatus `db:"status" json:"status,omitempty"`
	Reason      *string           `db:"reason" json:"reason,omitempty"`
}

// AttendanceCounts summarises a submitted session.
type AttendanceCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}
