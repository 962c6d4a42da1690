package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutoria/tutoria-backend/internal/model"
)

const sessionColumns = `id, session_type, student_id, group_id, session_number, session_date, session_time, starts_at, status, attendance, cancelled_by, reason, meeting_link, reminder_24h_sent_at, reminder_1h_sent_at, created_at, updated_at`

// SessionRepository handles tutoring session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(row rowScanner) (*model.Session, error) {
	s := &model.Session{}
	var studentID, groupID *int
	var attendance, cancelledBy, reason, meetingLink *string
	err := row.Scan(
		&s.ID, &s.Type, &studentID, &groupID, &s.SessionNumber,
		&s.SessionDate, &s.SessionTime, &s.StartsAt, &s.Status,
		&attendance, &cancelledBy, &reason, &meetingLink,
		&s.Reminder24hSentAt, &s.Reminder1hSentAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	switch {
	case studentID != nil:
		s.Subject = model.SubjectRef{Kind: model.SubjectStudent, ID: *studentID}
	case groupID != nil:
		s.Subject = model.SubjectRef{Kind: model.SubjectGroup, ID: *groupID}
	}
	if attendance != nil {
		s.Attendance = model.Attendance(*attendance)
	}
	if cancelledBy != nil {
		s.CancelledBy = model.CancelActor(*cancelledBy)
	}
	if reason != nil {
		s.Reason = *reason
	}
	if meetingLink != nil {
		s.MeetingLink = *meetingLink
	}
	return s, nil
}

func subjectColumns(subject model.SubjectRef) (studentID, groupID *int) {
	id := subject.ID
	switch subject.Kind {
	case model.SubjectStudent:
		studentID = &id
	case model.SubjectGroup:
		groupID = &id
	}
	return studentID, groupID
}

// CreateBatch inserts a batch of sessions. Callers run it inside one
// transaction so a failed insert persists nothing from the batch.
func (r *SessionRepository) CreateBatch(ctx context.Context, db DB, sessions []*model.Session) error {
	for _, s := range sessions {
		studentID, groupID := subjectColumns(s.Subject)
		err := db.QueryRow(ctx,
			`INSERT INTO sessions (id, session_type, student_id, group_id, session_number, session_date, session_time, starts_at, status, meeting_link)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING created_at, updated_at`,
			s.ID, s.Type, studentID, groupID, s.SessionNumber,
			s.SessionDate, s.SessionTime, s.StartsAt, s.Status, nullifEmpty(s.MeetingLink),
		).Scan(&s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// CountBySubject counts all sessions ever created for a subject. The next
// session number continues from here; callers hold the subject row lock.
func (r *SessionRepository) CountBySubject(ctx context.Context, db DB, subject model.SubjectRef) (int, error) {
	column := "student_id"
	if subject.Kind == model.SubjectGroup {
		column = "group_id"
	}
	var count int
	err := db.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE `+column+` = $1`, subject.ID,
	).Scan(&count)
	return count, err
}

// GetByID retrieves a session by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return r.getByID(ctx, r.pool, id, "")
}

// GetByIDForUpdate locks the session row for the surrounding transaction.
// Group attendance passes serialize here so overlapping passes see each
// other's committed outcome.
func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, db DB, id uuid.UUID) (*model.Session, error) {
	return r.getByID(ctx, db, id, " FOR UPDATE")
}

func (r *SessionRepository) getByID(ctx context.Context, db DB, id uuid.UUID, suffix string) (*model.Session, error) {
	return scanSession(db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`+suffix, id))
}

// ListFiltered retrieves sessions with optional subject, status and canonical
// date range filters, paginated, newest start first.
func (r *SessionRepository) ListFiltered(ctx context.Context, subject *model.SubjectRef, status *model.SessionStatus, from, to *time.Time, limit, offset int) ([]model.Session, int, error) {
	baseQuery := ` FROM sessions WHERE 1=1`
	var args []any

	if subject != nil {
		column := "student_id"
		if subject.Kind == model.SubjectGroup {
			column = "group_id"
		}
		args = append(args, subject.ID)
		baseQuery += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	if status != nil {
		args = append(args, *status)
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if from != nil {
		args = append(args, *from)
		baseQuery += fmt.Sprintf(" AND session_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		baseQuery += fmt.Sprintf(" AND session_date <= $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + sessionColumns + baseQuery +
		fmt.Sprintf(" ORDER BY starts_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, total, rows.Err()
}

// ListForAgenda returns a subject's sessions on one canonical date, earliest
// first.
func (r *SessionRepository) ListForAgenda(ctx context.Context, subject model.SubjectRef, date time.Time) ([]model.Session, error) {
	column := "student_id"
	if subject.Kind == model.SubjectGroup {
		column = "group_id"
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE `+column+` = $1 AND session_date = $2
		 ORDER BY starts_at ASC`, subject.ID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// MarkCompleted flips a pending session to COMPLETED with its attendance
// outcome. Returns pgx.ErrNoRows when the row is gone or no longer in an
// initial state, re-verifying transition legality under concurrency.
func (r *SessionRepository) MarkCompleted(ctx context.Context, db DB, id uuid.UUID, attendance model.Attendance) error {
	tag, err := db.Exec(ctx,
		`UPDATE sessions
		 SET status = $2, attendance = $3, updated_at = NOW()
		 WHERE id = $1 AND status IN ('PENDING', 'SCHEDULED')`,
		id, model.SessionStatusCompleted, string(attendance))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkMissed flips a pending session to MISSED with an ABSENT outcome.
func (r *SessionRepository) MarkMissed(ctx context.Context, db DB, id uuid.UUID, reason string) error {
	tag, err := db.Exec(ctx,
		`UPDATE sessions
		 SET status = $2, attendance = $3, reason = $4, updated_at = NOW()
		 WHERE id = $1 AND status IN ('PENDING', 'SCHEDULED')`,
		id, model.SessionStatusMissed, string(model.AttendanceAbsent), nullifEmpty(reason))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkCancelled flips a pending session to a cancelled status.
func (r *SessionRepository) MarkCancelled(ctx context.Context, db DB, id uuid.UUID, status model.SessionStatus, actor model.CancelActor, reason string) error {
	tag, err := db.Exec(ctx,
		`UPDATE sessions
		 SET status = $2, cancelled_by = $3, reason = $4, updated_at = NOW()
		 WHERE id = $1 AND status IN ('PENDING', 'SCHEDULED')`,
		id, status, string(actor), nullifEmpty(reason))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CompleteGroupSession flips a group session to COMPLETED. This is issued as
// the last statement of an attendance-marking transaction so a crash mid-pass
// leaves the session in its prior state for retry.
func (r *SessionRepository) CompleteGroupSession(ctx context.Context, db DB, id uuid.UUID) error {
	tag, err := db.Exec(ctx,
		`UPDATE sessions
		 SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status IN ('PENDING', 'SCHEDULED')`,
		id, model.SessionStatusCompleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a session row still in an initial state. The "not yet
// started" rule is enforced by the caller; the status guard keeps a
// concurrently completed session from being deleted.
func (r *SessionRepository) Delete(ctx context.Context, db DB, id uuid.UUID) error {
	tag, err := db.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1 AND status IN ('PENDING', 'SCHEDULED')`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListDueDayAhead returns sessions on the given canonical date still in an
// initial state and not yet stamped with a day-ahead reminder.
func (r *SessionRepository) ListDueDayAhead(ctx context.Context, date time.Time) ([]model.Session, error) {
	return r.listDue(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE session_date = $1
		   AND status IN ('PENDING', 'SCHEDULED')
		   AND reminder_24h_sent_at IS NULL
		 ORDER BY starts_at ASC`, date)
}

// ListDueWithinHour returns sessions starting inside (from, to] still in an
// initial state and not yet stamped with an hour-ahead reminder. The
// persisted stamp, not bucket alignment, is what keeps dispatch exact.
func (r *SessionRepository) ListDueWithinHour(ctx context.Context, from, to time.Time) ([]model.Session, error) {
	return r.listDue(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE starts_at > $1 AND starts_at <= $2
		   AND status IN ('PENDING', 'SCHEDULED')
		   AND reminder_1h_sent_at IS NULL
		 ORDER BY starts_at ASC`, from, to)
}

func (r *SessionRepository) listDue(ctx context.Context, query string, args ...any) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// MarkReminder24hSent stamps the day-ahead threshold. Guarded IS NULL so an
// overlapping pass cannot double-stamp.
func (r *SessionRepository) MarkReminder24hSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET reminder_24h_sent_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND reminder_24h_sent_at IS NULL`, id)
	return err
}

// MarkReminder1hSent stamps the hour-ahead threshold.
func (r *SessionRepository) MarkReminder1hSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET reminder_1h_sent_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND reminder_1h_sent_at IS NULL`, id)
	return err
}
