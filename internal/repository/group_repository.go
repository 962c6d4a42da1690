package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutoria/tutoria-backend/internal/model"
)

// GroupRepository handles group and enrollment data access.
type GroupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// Create inserts a new group.
func (r *GroupRepository) Create(ctx context.Context, g *model.Group) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO groups (name, timezone, total_sessions, completed_sessions, remaining_sessions, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		g.Name, g.Timezone, g.TotalSessions, g.CompletedSessions, g.RemainingSessions, g.Active,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
}

// GetByID retrieves a group by ID.
func (r *GroupRepository) GetByID(ctx context.Context, id int) (*model.Group, error) {
	return r.getByID(ctx, r.pool, id, "")
}

// GetByIDForUpdate locks the group row for the surrounding transaction,
// serializing session numbering per group.
func (r *GroupRepository) GetByIDForUpdate(ctx context.Context, db DB, id int) (*model.Group, error) {
	return r.getByID(ctx, db, id, " FOR UPDATE")
}

func (r *GroupRepository) getByID(ctx context.Context, db DB, id int, suffix string) (*model.Group, error) {
	g := &model.Group{}
	err := db.QueryRow(ctx,
		`SELECT id, name, timezone, total_sessions, completed_sessions, remaining_sessions, active, created_at, updated_at
		 FROM groups WHERE id = $1`+suffix, id,
	).Scan(&g.ID, &g.Name, &g.Timezone, &g.TotalSessions, &g.CompletedSessions, &g.RemainingSessions, &g.Active, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// ListPaginated retrieves groups with pagination, ordered by name.
func (r *GroupRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Group, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM groups`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, timezone, total_sessions, completed_sessions, remaining_sessions, active, created_at, updated_at
		 FROM groups
		 ORDER BY name
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Timezone, &g.TotalSessions, &g.CompletedSessions, &g.RemainingSessions, &g.Active, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, 0, err
		}
		groups = append(groups, g)
	}
	return groups, total, rows.Err()
}

// AddMember enrolls a student, reactivating a previous enrollment if one
// exists.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, student_id, active)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (group_id, student_id) DO UPDATE SET active = TRUE`,
		groupID, studentID)
	return err
}

// RemoveMember deactivates an enrollment. Past attendance records are kept;
// the student simply stops receiving fan-out rows for new sessions.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE group_members SET active = FALSE
		 WHERE group_id = $1 AND student_id = $2`,
		groupID, studentID)
	return err
}

// ListActiveMembers returns the students with an active enrollment in the
// group. This is the recipient set for notifications and the membership view.
func (r *GroupRepository) ListActiveMembers(ctx context.Context, groupID int) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.full_name, s.email, s.timezone, s.total_sessions, s.completed_sessions, s.remaining_sessions, s.active, s.created_at, s.updated_at
		 FROM group_members gm
		 JOIN students s ON gm.student_id = s.id
		 WHERE gm.group_id = $1 AND gm.active AND s.active
		 ORDER BY s.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.FullName, &s.Email, &s.Timezone, &s.TotalSessions, &s.CompletedSessions, &s.RemainingSessions, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// ListActiveMemberIDs returns the ids of actively enrolled students, read
// through db so the scheduling transaction sees the enrollment set it fans
// out to.
func (r *GroupRepository) ListActiveMemberIDs(ctx context.Context, db DB, groupID int) ([]int, error) {
	rows, err := db.Query(ctx,
		`SELECT gm.student_id
		 FROM group_members gm
		 JOIN students s ON gm.student_id = s.id
		 WHERE gm.group_id = $1 AND gm.active AND s.active
		 ORDER BY gm.student_id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ApplyCounterDeltas adjusts a group's own session counters, clamped at zero.
func (r *GroupRepository) ApplyCounterDeltas(ctx context.Context, db DB, groupID, completedDelta, remainingDelta int) error {
	_, err := db.Exec(ctx,
		`UPDATE groups
		 SET completed_sessions = GREATEST(completed_sessions + $2, 0),
		     remaining_sessions = GREATEST(remaining_sessions + $3, 0),
		     updated_at = NOW()
		 WHERE id = $1`,
		groupID, completedDelta, remainingDelta)
	return err
}
