package service

import (
	"context"

	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/repository"
)

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	ActiveStudents      int                                   `json:"active_students"`
	ActiveGroups        int                                   `json:"active_groups"`
	TotalSessions       int                                   `json:"total_sessions"`
	AvailableCredits    int                                   `json:"available_credits"`
	SessionStatusCounts map[model.SessionStatus]int           `json:"session_status_counts"`
	UpcomingSessions    []repository.DashboardUpcomingSession `json:"upcoming_sessions"`
	RecentAttendance    []repository.DashboardAttendanceWeek  `json:"recent_attendance"`
}

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData orchestrates fetching all dashboard metrics concurrently or sequentially.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	students, groups, sessions, credits, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.repo.GetSessionStatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	upcoming, err := s.repo.GetUpcomingSessions(ctx, 5)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetRecentAttendance(ctx, 8)
	if err != nil {
		return nil, err
	}

	data := &DashboardData{
		ActiveStudents:      students,
		ActiveGroups:        groups,
		TotalSessions:       sessions,
		AvailableCredits:    credits,
		SessionStatusCounts: statusCounts,
		UpcomingSessions:    upcoming,
		RecentAttendance:    recent,
	}

	return data, nil
}
