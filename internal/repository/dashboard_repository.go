package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutoria/tutoria-backend/internal/model"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (activeStudents, activeGroups, totalSessions, availableCredits int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM students WHERE active),
			(SELECT COUNT(*) FROM groups WHERE active),
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM makeup_credits WHERE status = 'AVAILABLE')`,
	).Scan(&activeStudents, &activeGroups, &totalSessions, &availableCredits)
	return
}

// GetSessionStatusCounts retrieves the distribution of sessions by status.
func (r *DashboardRepository) GetSessionStatusCounts(ctx context.Context) (map[model.SessionStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.SessionStatus]int)
	for rows.Next() {
		var status model.SessionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DashboardUpcomingSession represents minimal data for upcoming sessions.
type DashboardUpcomingSession struct {
	ID          uuid.UUID         `json:"id"`
	Type        model.SessionType `json:"session_type"`
	SubjectName string            `json:"subject_name"`
	SessionDate time.Time         `json:"session_date"`
	SessionTime string            `json:"session_time"`
	StartsAt    time.Time         `json:"starts_at"`
}

// GetUpcomingSessions retrieves the next N sessions still awaiting their
// start.
func (r *DashboardRepository) GetUpcomingSessions(ctx context.Context, limit int) ([]DashboardUpcomingSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.session_type, COALESCE(st.full_name, g.name, ''), s.session_date, s.session_time, s.starts_at
		 FROM sessions s
		 LEFT JOIN students st ON s.student_id = st.id
		 LEFT JOIN groups g ON s.group_id = g.id
		 WHERE s.status IN ('PENDING', 'SCHEDULED') AND s.starts_at > NOW()
		 ORDER BY s.starts_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []DashboardUpcomingSession
	for rows.Next() {
		var s DashboardUpcomingSession
		if err := rows.Scan(&s.ID, &s.Type, &s.SubjectName, &s.SessionDate, &s.SessionTime, &s.StartsAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if sessions == nil {
		sessions = []DashboardUpcomingSession{}
	}
	return sessions, rows.Err()
}

// DashboardAttendanceWeek represents one week's completion and absence
// totals.
type DashboardAttendanceWeek struct {
	WeekStart time.Time `json:"week_start"`
	Completed int       `json:"completed"`
	Missed    int       `json:"missed"`
	Cancelled int       `json:"cancelled"`
}

// GetRecentAttendance retrieves per-week outcome totals over the last N
// weeks, newest first.
func (r *DashboardRepository) GetRecentAttendance(ctx context.Context, weeks int) ([]DashboardAttendanceWeek, error) {
	query := `
		SELECT
			date_trunc('week', session_date)::date AS week_start,
			COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed,
			COUNT(*) FILTER (WHERE status = 'MISSED') AS missed,
			COUNT(*) FILTER (WHERE status IN ('CANCELLED_BY_PARENT', 'CANCELLED_BY_TEACHER')) AS cancelled
		FROM sessions
		WHERE session_date >= CURRENT_DATE - ($1 * INTERVAL '1 week')
		GROUP BY week_start
		ORDER BY week_start DESC
	`
	rows, err := r.pool.Query(ctx, query, weeks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DashboardAttendanceWeek
	for rows.Next() {
		var w DashboardAttendanceWeek
		if err := rows.Scan(&w.WeekStart, &w.Completed, &w.Missed, &w.Cancelled); err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	if results == nil {
		results = []DashboardAttendanceWeek{}
	}
	return results, rows.Err()
}
