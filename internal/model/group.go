package model

import "time"

// Group represents a batch of students tutored together. A group carries its
// own timezone (used as the display fallback for members without one) and its
// own session counters over the group's session sequence.
type Group struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Timezone          string    `json:"timezone"`
	TotalSessions     int       `json:"total_sessions"`
	CompletedSessions int       `json:"completed_sessions"`
	RemainingSessions int       `json:"remaining_sessions"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// GroupMember is one student's enrollment in a group. Attendance fan-out at
// schedule time covers exactly the members active at that moment.
type GroupMember struct {
	GroupID   int       `json:"group_id"`
	StudentID int       `json:"student_id"`
	Active    bool      `json:"active"`
	JoinedAt  time.Time `json:"joined_at"`
}

// CreateGroupRequest is the payload for creating a group.
type CreateGroupRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=100"`
	Timezone      string `json:"timezone" binding:"omitempty,max=64"`
	TotalSessions int    `json:"total_sessions" binding:"omitempty,gte=0"`
}

// AddGroupMemberRequest enrolls a student into a group.
type AddGroupMemberRequest struct {
	StudentID int `json:"student_id" binding:"required,gt=0"`
}
