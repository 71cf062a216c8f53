package models

import (
	"time"
)

// Weekday represents a school day. The school week runs Sunday through
// Thursday; Friday and Saturday hold no classes.
type Weekday string

const (
	WeekdaySunday    Weekday = "SUNDAY"
	WeekdayMonday    Weekday = "MONDAY"
	WeekdayTuesday   Weekday = "TUESDAY"
	WeekdayWednesday Weekday = "WEDNESDAY"
	WeekdayThursday  Weekday = "THURSDAY"
)

// Valid returns true when the weekday is a school day.
func (d Weekday) Valid() bool {
	switch d {
	case WeekdaySunday, WeekdayMonday, WeekdayTuesday, WeekdayWednesday, WeekdayThursday:
		return true
	default:
		return false
	}
}

// SchoolWeekday maps a calendar date to a school weekday. ok is false on
// Friday and Saturday.
func SchoolWeekday(date time.Time) (Weekday, bool) {
	switch date.Weekday() {
	case time.Sunday:
		return WeekdaySunday, true
	case time.Monday:
		return WeekdayMonday, true
	case time.Tuesday:
		return WeekdayTuesday, true
	case time.Wednesday:
		return WeekdayWednesday, true
	case time.Thursday:
		return WeekdayThursday, true
	default:
		return "", false
	}
}

// TimetableSlot is a recurring weekly booking of a teacher and subject for a
// section. Slots are immutable; replacing one is a delete plus re-create,
// which re-validates both conflict dimensions.
type TimetableSlot struct {
	ID        string    `db:"id" json:"id"`
	TermID    string    `db:"term_id" json:"term_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek Weekday   `db:"day_of_week" json:"day_of_week"`
	Period    string    `db:"period" json:"period"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TimetableSlotDetail enriches a slot with its referenced entity names.
type TimetableSlotDetail struct {
	TimetableSlot
	SectionName string `db:"section_name" json:"section_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	TermName    string `db:"term_name" json:"term_name"`
}

// WeeklyTimetable groups slots by school weekday for lookup responses.
type WeeklyTimetable map[Weekday][]TimetableSlotDetail
