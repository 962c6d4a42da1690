package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/repository"
)

// LedgerService manages the makeup credit ledger. Credits move
// AVAILABLE to USED exactly once and are never deleted.
type LedgerService struct {
	tx       TxRunner
	credits  CreditStore
	students StudentStore
	log      zerolog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(tx TxRunner, credits CreditStore, students StudentStore, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		tx:       tx,
		credits:  credits,
		students: students,
		log:      log.With().Str("component", "ledger_service").Logger(),
	}
}

// Grant creates an AVAILABLE credit for a student. originSession is nil for
// manually granted credits.
func (s *LedgerService) Grant(ctx context.Context, studentID int, originSession *uuid.UUID, reason string) (*model.MakeupCredit, error) {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}

	credit := &model.MakeupCredit{
		ID:                uuid.New(),
		StudentID:         studentID,
		OriginalSessionID: originSession,
		Reason:            reason,
		Status:            model.CreditStatusAvailable,
		CreditDate:        time.Now().UTC(),
	}
	err := s.tx.InTx(ctx, func(db repository.DB) error {
		return s.credits.Create(ctx, db, credit)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("credit_id", credit.ID.String()).
		Int("student_id", studentID).
		Msg("Makeup credit granted")
	return credit, nil
}

// Redeem marks a credit USED. The guarded single-statement update is what
// settles concurrent redemptions to exactly one winner; zero affected rows
// distinguish a used credit from a missing one by re-reading.
func (s *LedgerService) Redeem(ctx context.Context, id uuid.UUID) (*model.MakeupCredit, error) {
	err := s.tx.InTx(ctx, func(db repository.DB) error {
		return s.credits.Redeem(ctx, db, id, time.Now().UTC())
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if _, getErr := s.credits.GetByID(ctx, id); getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return nil, ErrCreditNotFound
			}
			return nil, getErr
		}
		return nil, ErrCreditAlreadyUsed
	}

	s.log.Info().Str("credit_id", id.String()).Msg("Makeup credit redeemed")
	return s.credits.GetByID(ctx, id)
}

// ListByStudent returns a student's credits, optionally filtered by status,
// newest grant first.
func (s *LedgerService) ListByStudent(ctx context.Context, studentID int, status *model.CreditStatus) ([]model.MakeupCredit, error) {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	credits, err := s.credits.ListByStudent(ctx, studentID, status)
	if err != nil {
		return nil, err
	}
	if credits == nil {
		credits = []model.MakeupCredit{}
	}
	return credits, nil
}

// Get retrieves a credit by ID.
func (s *LedgerService) Get(ctx context.Context, id uuid.UUID) (*model.MakeupCredit, error) {
	credit, err := s.credits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCreditNotFound
		}
		return nil, err
	}
	return credit, nil
}
