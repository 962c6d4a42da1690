package model

import "time"

// Student represents a tutored student together with the session balance
// counters the scheduling rules operate on. RemainingSessions is consumed on
// completion, returned on parent cancellation, and never goes negative.
type Student struct {
	ID                int       `json:"id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	Timezone          string    `json:"timezone"`
	TotalSessions     int       `json:"total_sessions"`
	CompletedSessions int       `json:"completed_sessions"`
	RemainingSessions int       `json:"remaining_sessions"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreateStudentRequest is the payload for registering a student. An initial
// package of TotalSessions seeds both total and remaining counters.
type CreateStudentRequest struct {
	FullName      string `json:"full_name" binding:"required,min=2,max=100"`
	Email         string `json:"email" binding:"required,email"`
	Timezone      string `json:"timezone" binding:"omitempty,max=64"`
	TotalSessions int    `json:"total_sessions" binding:"omitempty,gte=0"`
}

// UpdateStudentRequest is the payload for updating a student's profile.
type UpdateStudentRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Timezone string `json:"timezone" binding:"omitempty,max=64"`
	Active   *bool  `json:"active" binding:"required"`
}

// AddSessionBalanceRequest tops up a student's purchased session package.
type AddSessionBalanceRequest struct {
	Sessions int `json:"sessions" binding:"required,gt=0"`
}
