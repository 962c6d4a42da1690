package model

import (
	"github.com/google/uuid"
)

// SessionView is a session rendered for one recipient: the canonical
// wall-clock fields next to the recipient's local date, time and weekday.
// This is the data handed to notification templates and the agenda endpoint.
type SessionView struct {
	SessionID     uuid.UUID     `json:"session_id"`
	SessionType   SessionType   `json:"session_type"`
	SessionNumber int           `json:"session_number"`
	Status        SessionStatus `json:"status"`
	MeetingLink   string        `json:"meeting_link,omitempty"`

	CanonicalDate string `json:"canonical_date"`
	CanonicalTime string `json:"canonical_time"`

	LocalDate string `json:"local_date"`
	LocalTime string `json:"local_time"`
	DayOfWeek string `json:"day_of_week"`
	Timezone  string `json:"timezone"`
}
