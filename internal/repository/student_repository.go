package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutoria/tutoria-backend/internal/model"
)

var ErrDuplicateEmail = errors.New("student with this email already exists")

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (full_name, email, timezone, total_sessions, completed_sessions, remaining_sessions, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		s.FullName, s.Email, s.Timezone, s.TotalSessions, s.CompletedSessions, s.RemainingSessions, s.Active,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return r.getByID(ctx, r.pool, id, "")
}

// GetByIDForUpdate locks the student row for the surrounding transaction.
// Scheduling locks the subject row so session numbering and the balance
// precondition are serialized per subject.
func (r *StudentRepository) GetByIDForUpdate(ctx context.Context, db DB, id int) (*model.Student, error) {
	return r.getByID(ctx, db, id, " FOR UPDATE")
}

func (r *StudentRepository) getByID(ctx context.Context, db DB, id int, suffix string) (*model.Student, error) {
	s := &model.Student{}
	err := db.QueryRow(ctx,
		`SELECT id, full_name, email, timezone, total_sessions, completed_sessions, remaining_sessions, active, created_at, updated_at
		 FROM students WHERE id = $1`+suffix, id,
	).Scan(&s.ID, &s.FullName, &s.Email, &s.Timezone, &s.TotalSessions, &s.CompletedSessions, &s.RemainingSessions, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update modifies a student's profile fields.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students
		 SET full_name = $2, email = $3, timezone = $4, active = $5, updated_at = NOW()
		 WHERE id = $1`,
		s.ID, s.FullName, s.Email, s.Timezone, s.Active,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// ListPaginated retrieves students with pagination, ordered by name.
func (r *StudentRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Student, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, full_name, email, timezone, total_sessions, completed_sessions, remaining_sessions, active, created_at, updated_at
		 FROM students
		 ORDER BY full_name
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.FullName, &s.Email, &s.Timezone, &s.TotalSessions, &s.CompletedSessions, &s.RemainingSessions, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// AddBalance tops up the purchased package: total and remaining both grow.
func (r *StudentRepository) AddBalance(ctx context.Context, id, sessions int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students
		 SET total_sessions = total_sessions + $2,
		     remaining_sessions = remaining_sessions + $2,
		     updated_at = NOW()
		 WHERE id = $1`,
		id, sessions)
	return err
}

// ApplyCounterDeltas adjusts a student's lifecycle counters. Both counters
// are clamped at zero so reversal deltas can never drive them negative.
func (r *StudentRepository) ApplyCounterDeltas(ctx context.Context, db DB, studentID, completedDelta, remainingDelta int) error {
	_, err := db.Exec(ctx,
		`UPDATE students
		 SET completed_sessions = GREATEST(completed_sessions + $2, 0),
		     remaining_sessions = GREATEST(remaining_sessions + $3, 0),
		     updated_at = NOW()
		 WHERE id = $1`,
		studentID, completedDelta, remainingDelta)
	return err
}
