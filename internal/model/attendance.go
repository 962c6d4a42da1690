package model

import (
	"time"

	"github.com/google/uuid"
)

// GroupAttendanceRecord is one participant's row for a group session,
// carrying individual attendance and homework grade. The record set for a
// session is fixed at schedule time from the group's active enrollments;
// students enrolled later gain no rows for past sessions.
type GroupAttendanceRecord struct {
	ID            uuid.UUID  `json:"id"`
	SessionID     uuid.UUID  `json:"session_id"`
	StudentID     int        `json:"student_id"`
	Attendance    Attendance `json:"attendance,omitempty"`
	HomeworkGrade *float64   `json:"homework_grade,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
