package models

import "time"

// ClassSession is one concrete, dated occurrence of a timetable slot being
// taught. At most one session exists per (section, subject, period, date);
// repeated opens return the existing record unchanged.
type ClassSession struct {
	ID        string     `db:"id" json:"id"`
	TermID    string     `db:"term_id" json:"term_id"`
	SectionID string     `db:"section_id" json:"section_id"`
	SubjectID string     `db:"subject_id" json:"subject_id"`
	Period    string     `db:"period" json:"period"`
	Date      time.Time  `db:"date" json:"date"`
	OpenedBy  string     `db:"opened_by" json:"opened_by"`
	OpenedAt  time.Time  `db:"opened_at" json:"opened_at"`
	ClosedAt  *time.Time `db:"closed_at" json:"closed_at,omitempty"`
}

// ClassSessionDetail resolves the session's referenced entities.
type ClassSessionDetail struct {
	ClassSession
	SectionName string `db:"section_name" json:"section_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}
