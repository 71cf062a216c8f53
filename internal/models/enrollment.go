package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusLeft        EnrollmentStatus = "LEFT"
)

// Enrollment captures a student's registration to a section within a term.
// The enrollment directory is owned by the surrounding CRUD shell; the core
// only reads it to resolve rosters.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	SectionID string           `db:"section_id" json:"section_id"`
	TermID    string           `db:"term_id" json:"term_id"`
	RollNo    int              `db:"roll_no" json:"roll_no"`
	JoinedAt  time.Time        `db:"joined_at" json:"joined_at"`
	LeftAt    *time.Time       `db:"left_at" json:"left_at,omitempty"`
	Status    EnrollmentStatus `db:"status" json:"status"`
}

// RosterStudent is one enrolled student resolved for a session roster.
type RosterStudent struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	RollNo      int    `db:"roll_no" json:"roll_no"`
}
