package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchoolWeekday(t *testing.T) {
	cases := []struct {
		date    string
		weekday Weekday
		school  bool
	}{
		{"2026-01-04", WeekdaySunday, true},
		{"2026-01-05", WeekdayMonday, true},
		{"2026-01-06", WeekdayTuesday, true},
		{"2026-01-07", WeekdayWednesday, true},
		{"2026-01-08", WeekdayThursday, true},
		{"2026-01-02", "", false}, // Friday
		{"2026-01-03", "", false}, // Saturday
	}

	for _, tc := range cases {
		date, err := time.Parse("2006-01-02", tc.date)
		assert.NoError(t, err)
		weekday, ok := SchoolWeekday(date)
		assert.Equal(t, tc.school, ok, tc.date)
		if tc.school {
			assert.Equal(t, tc.weekday, weekday, tc.date)
		}
	}
}

func TestWeekdayValid(t *testing.T) {
	assert.True(t, WeekdaySunday.Valid())
	assert.True(t, WeekdayThursday.Valid())
	assert.False(t, Weekday("FRIDAY").Valid())
	assert.False(t, Weekday("monday").Valid())
}

func TestAttendanceStatusValid(t *testing.T) {
	assert.True(t, AttendanceStatusPresent.Valid())
	assert.True(t, AttendanceStatusAbsent.Valid())
	assert.False(t, AttendanceStatus("LATE").Valid())
}
