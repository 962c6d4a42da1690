package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutoria/tutoria-backend/internal/model"
)

const creditColumns = `id, student_id, original_session_id, reason, status, credit_date, used_date`

// CreditRepository handles makeup credit data access.
type CreditRepository struct {
	pool *pgxpool.Pool
}

// NewCreditRepository creates a new CreditRepository.
func NewCreditRepository(pool *pgxpool.Pool) *CreditRepository {
	return &CreditRepository{pool: pool}
}

func scanCredit(row rowScanner) (*model.MakeupCredit, error) {
	c := &model.MakeupCredit{}
	var reason *string
	err := row.Scan(
		&c.ID, &c.StudentID, &c.OriginalSessionID, &reason,
		&c.Status, &c.CreditDate, &c.UsedDate,
	)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		c.Reason = *reason
	}
	return c, nil
}

// Create inserts a makeup credit. Runs through db so credits created by a
// cancellation or absence commit atomically with the session transition.
func (r *CreditRepository) Create(ctx context.Context, db DB, credit *model.MakeupCredit) error {
	return db.QueryRow(ctx,
		`INSERT INTO makeup_credits (id, student_id, original_session_id, reason, status, credit_date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING credit_date`,
		credit.ID, credit.StudentID, credit.OriginalSessionID,
		nullifEmpty(credit.Reason), credit.Status, credit.CreditDate,
	).Scan(&credit.CreditDate)
}

// GetByID retrieves a credit by ID.
func (r *CreditRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MakeupCredit, error) {
	return r.getByID(ctx, r.pool, id, "")
}

// GetByIDForUpdate locks the credit row for the surrounding transaction, so
// the ownership and status checks preceding a redemption read the same state
// the guarded UPDATE will act on.
func (r *CreditRepository) GetByIDForUpdate(ctx context.Context, db DB, id uuid.UUID) (*model.MakeupCredit, error) {
	return r.getByID(ctx, db, id, " FOR UPDATE")
}

func (r *CreditRepository) getByID(ctx context.Context, db DB, id uuid.UUID, suffix string) (*model.MakeupCredit, error) {
	return scanCredit(db.QueryRow(ctx,
		`SELECT `+creditColumns+` FROM makeup_credits WHERE id = $1`+suffix, id))
}

// ListByStudent retrieves a student's credits, optionally filtered by status,
// newest grant first.
func (r *CreditRepository) ListByStudent(ctx context.Context, studentID int, status *model.CreditStatus) ([]model.MakeupCredit, error) {
	query := `SELECT ` + creditColumns + ` FROM makeup_credits WHERE student_id = $1`
	args := []any{studentID}
	if status != nil {
		args = append(args, *status)
		query += ` AND status = $2`
	}
	query += ` ORDER BY credit_date DESC, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credits []model.MakeupCredit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		credits = append(credits, *c)
	}
	return credits, rows.Err()
}

// Redeem flips an AVAILABLE credit to USED. Returns pgx.ErrNoRows when the
// credit is missing or already used; the single guarded statement is what
// makes concurrent redemption of one credit settle to exactly one winner.
func (r *CreditRepository) Redeem(ctx context.Context, db DB, id uuid.UUID, usedAt time.Time) error {
	tag, err := db.Exec(ctx,
		`UPDATE makeup_credits
		 SET status = $2, used_date = $3
		 WHERE id = $1 AND status = $4`,
		id, model.CreditStatusUsed, usedAt, model.CreditStatusAvailable)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CountAvailable counts a student's unredeemed credits.
func (r *CreditRepository) CountAvailable(ctx context.Context, studentID int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM makeup_credits WHERE student_id = $1 AND status = $2`,
		studentID, model.CreditStatusAvailable,
	).Scan(&count)
	return count, err
}
