package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionType distinguishes one-on-one sessions from group sessions.
type SessionType string

const (
	SessionTypePrivate SessionType = "PRIVATE"
	SessionTypeGroup   SessionType = "GROUP"
)

// SessionStatus enumerates session lifecycle states.
type SessionStatus string

const (
	SessionStatusPending            SessionStatus = "PENDING"
	SessionStatusScheduled          SessionStatus = "SCHEDULED"
	SessionStatusCompleted          SessionStatus = "COMPLETED"
	SessionStatusMissed             SessionStatus = "MISSED"
	SessionStatusCancelledByParent  SessionStatus = "CANCELLED_BY_PARENT"
	SessionStatusCancelledByTeacher SessionStatus = "CANCELLED_BY_TEACHER"
)

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusMissed,
		SessionStatusCancelledByParent, SessionStatusCancelledByTeacher:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is legal. PENDING and
// SCHEDULED are interchangeable initial states (SCHEDULED marks administrative
// confirmation); every other state is terminal. All status writes go through
// this check; there are no free-form status assignments elsewhere.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case SessionStatusPending, SessionStatusScheduled,
		SessionStatusCompleted, SessionStatusMissed,
		SessionStatusCancelledByParent, SessionStatusCancelledByTeacher:
		return true
	}
	return false
}

// Attendance enumerates per-session attendance outcomes. The zero value means
// not yet marked.
type Attendance string

const (
	AttendancePresent   Attendance = "PRESENT"
	AttendanceAbsent    Attendance = "ABSENT"
	AttendanceExcused   Attendance = "EXCUSED"
	AttendanceUnexcused Attendance = "UNEXCUSED"
)

// CancelActor identifies who initiated a cancellation.
type CancelActor string

const (
	CancelActorParent  CancelActor = "PARENT"
	CancelActorTeacher CancelActor = "TEACHER"
)

// SubjectKind discriminates the owner of a session or counter set.
type SubjectKind string

const (
	SubjectStudent SubjectKind = "STUDENT"
	SubjectGroup   SubjectKind = "GROUP"
)

// SubjectRef identifies the single owner of a session: a student for private
// sessions, a group for group sessions. The storage layer maps this to the
// student_id/group_id column pair behind a CHECK constraint; domain code never
// sees two nullable foreign keys.
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   int         `json:"id"`
}

// Session is one scheduled tutoring session, private or group.
type Session struct {
	ID            uuid.UUID   `json:"id"`
	Type          SessionType `json:"session_type"`
	Subject       SubjectRef  `json:"subject"`
	SessionNumber int         `json:"session_number"`

	// SessionDate and SessionTime hold the canonical-zone wall clock exactly
	// as the administrator entered it. StartsAt is the same instant in UTC,
	// derived through full timezone rules at write time.
	SessionDate time.Time `json:"session_date"`
	SessionTime string    `json:"session_time"`
	StartsAt    time.Time `json:"starts_at"`

	Status      SessionStatus `json:"status"`
	Attendance  Attendance    `json:"attendance,omitempty"`
	CancelledBy CancelActor   `json:"cancelled_by,omitempty"`
	// Reason holds the stated absence or cancellation reason.
	Reason      string `json:"reason,omitempty"`
	MeetingLink string `json:"meeting_link,omitempty"`

	Reminder24hSentAt *time.Time `json:"reminder_24h_sent_at,omitempty"`
	Reminder1hSentAt  *time.Time `json:"reminder_1h_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPrivateSession builds an unsaved session owned by a student.
func NewPrivateSession(studentID, number int, sessionDate time.Time, sessionTime string, startsAt time.Time, status SessionStatus, meetingLink string) *Session {
	return &Session{
		ID:            uuid.New(),
		Type:          SessionTypePrivate,
		Subject:       SubjectRef{Kind: SubjectStudent, ID: studentID},
		SessionNumber: number,
		SessionDate:   sessionDate,
		SessionTime:   sessionTime,
		StartsAt:      startsAt,
		Status:        status,
		MeetingLink:   meetingLink,
	}
}

// NewGroupSession builds an unsaved session owned by a group.
func NewGroupSession(groupID, number int, sessionDate time.Time, sessionTime string, startsAt time.Time, status SessionStatus, meetingLink string) *Session {
	return &Session{
		ID:            uuid.New(),
		Type:          SessionTypeGroup,
		Subject:       SubjectRef{Kind: SubjectGroup, ID: groupID},
		SessionNumber: number,
		SessionDate:   sessionDate,
		SessionTime:   sessionTime,
		StartsAt:      startsAt,
		Status:        status,
		MeetingLink:   meetingLink,
	}
}

// SessionSlotInput is one canonical-zone wall-clock slot in a schedule request.
type SessionSlotInput struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// ScheduleSessionsRequest is the payload for batch-creating sessions.
// Confirmed selects the SCHEDULED initial status instead of PENDING.
// RedeemCreditID optionally redeems a makeup credit in the same transaction.
type ScheduleSessionsRequest struct {
	SubjectKind    SubjectKind        `json:"subject_kind" binding:"required,oneof=STUDENT GROUP"`
	SubjectID      int                `json:"subject_id" binding:"required,gt=0"`
	Slots          []SessionSlotInput `json:"slots" binding:"required,min=1,max=50,dive"`
	MeetingLink    string             `json:"meeting_link" binding:"omitempty,url"`
	Confirmed      bool               `json:"confirmed"`
	RedeemCreditID string             `json:"redeem_credit_id" binding:"omitempty,uuid"`
}

// CancelSessionRequest is the payload for cancelling a session.
type CancelSessionRequest struct {
	Actor  CancelActor `json:"actor" binding:"required,oneof=PARENT TEACHER"`
	Reason string      `json:"reason" binding:"omitempty,max=500"`
}

// MarkAbsentRequest carries the absence reason for a private session.
type MarkAbsentRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ParticipantMark is one participant's outcome in a group attendance pass.
type ParticipantMark struct {
	StudentID     int        `json:"student_id" binding:"required,gt=0"`
	Attendance    Attendance `json:"attendance" binding:"required,oneof=PRESENT ABSENT EXCUSED UNEXCUSED"`
	HomeworkGrade *float64   `json:"homework_grade" binding:"omitempty,gte=0,lte=100"`
	Reason        string     `json:"reason" binding:"omitempty,max=500"`
}

// MarkGroupAttendanceRequest is the payload for a group attendance pass.
type MarkGroupAttendanceRequest struct {
	Marks []ParticipantMark `json:"marks" binding:"required,min=1,dive"`
}
