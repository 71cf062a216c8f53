package models

import "time"

// Audit actions emitted by the lifecycle services.
const (
	AuditActionLogin                = "LOGIN"
	AuditActionSlotAssigned         = "TIMETABLE_SLOT_ASSIGNED"
	AuditActionSlotRemoved          = "TIMETABLE_SLOT_REMOVED"
	AuditActionTermActivated        = "TERM_ACTIVATED"
	AuditActionClassSessionOpened   = "CLASS_SESSION_OPENED"
	AuditActionAttendanceCreated    = "ATTENDANCE_SESSION_CREATED"
	AuditActionAttendanceSubmitted  = "ATTENDANCE_SESSION_SUBMITTED"
	AuditActionAbsenceRecorded      = "ATTENDANCE_ABSENCE_RECORDED"
)

// AuditEntry is an append-only record of a state-changing action.
type AuditEntry struct {
	ID          string    `db:"id" json:"id"`
	ActorID     *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	Entity      string    `db:"entity" json:"entity"`
	EntityID    *string   `db:"entity_id" json:"entity_id,omitempty"`
	Description string    `db:"description" json:"description"`
	Metadata    []byte    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter scopes audit listing queries.
type AuditFilter struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Page     int
	PageSize int
}
