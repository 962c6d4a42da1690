package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutoria/tutoria-backend/internal/model"
)

const attendanceColumns = `id, session_id, student_id, attendance, homework_grade, reason, created_at, updated_at`

// AttendanceRepository handles per-participant attendance rows for group
// sessions.
type AttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func scanAttendance(row rowScanner) (*model.GroupAttendanceRecord, error) {
	rec := &model.GroupAttendanceRecord{}
	var attendance, reason *string
	err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.StudentID, &attendance,
		&rec.HomeworkGrade, &reason, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if attendance != nil {
		rec.Attendance = model.Attendance(*attendance)
	}
	if reason != nil {
		rec.Reason = *reason
	}
	return rec, nil
}

// CreateBatch inserts one blank record per participant. Issued inside the
// scheduling transaction so the record set commits with its session.
func (r *AttendanceRepository) CreateBatch(ctx context.Context, db DB, records []*model.GroupAttendanceRecord) error {
	for _, rec := range records {
		err := db.QueryRow(ctx,
			`INSERT INTO group_session_attendance (id, session_id, student_id)
			 VALUES ($1, $2, $3)
			 RETURNING created_at, updated_at`,
			rec.ID, rec.SessionID, rec.StudentID,
		).Scan(&rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListBySession retrieves a session's attendance records ordered by student.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.GroupAttendanceRecord, error) {
	return r.listBySession(ctx, r.pool, sessionID, false)
}

// ListBySessionForUpdate locks and retrieves the records inside a marking
// transaction, so concurrent passes over the same session serialize.
func (r *AttendanceRepository) ListBySessionForUpdate(ctx context.Context, db DB, sessionID uuid.UUID) ([]model.GroupAttendanceRecord, error) {
	return r.listBySession(ctx, db, sessionID, true)
}

func (r *AttendanceRepository) listBySession(ctx context.Context, db DB, sessionID uuid.UUID, forUpdate bool) ([]model.GroupAttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM group_session_attendance
	 WHERE session_id = $1 ORDER BY student_id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.GroupAttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// UpdateMark writes one participant's attendance outcome. Returns
// pgx.ErrNoRows when the student has no record on the session.
func (r *AttendanceRepository) UpdateMark(ctx context.Context, db DB, sessionID uuid.UUID, studentID int, attendance model.Attendance, homeworkGrade *float64, reason string) error {
	tag, err := db.Exec(ctx,
		`UPDATE group_session_attendance
		 SET attendance = $3, homework_grade = $4, reason = $5, updated_at = NOW()
		 WHERE session_id = $1 AND student_id = $2`,
		sessionID, studentID, string(attendance), homeworkGrade, nullifEmpty(reason))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteBySession removes a session's attendance rows ahead of deleting the
// session itself.
func (r *AttendanceRepository) DeleteBySession(ctx context.Context, db DB, sessionID uuid.UUID) error {
	_, err := db.Exec(ctx,
		`DELETE FROM group_session_attendance WHERE session_id = $1`, sessionID)
	return err
}
