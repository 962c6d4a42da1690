package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/notifier"
	"github.com/tutoria/tutoria-backend/internal/repository"
	"github.com/tutoria/tutoria-backend/internal/timezone"
)

// LifecycleService drives session state transitions and their side effects:
// credit issuance, counter updates and cancellation notices. Every
// transition is pre-validated through the status type and re-verified by
// the guarded update inside the transaction.
type LifecycleService struct {
	tx         TxRunner
	sessions   SessionStore
	students   StudentStore
	groups     GroupStore
	attendance AttendanceStore
	credits    CreditStore
	tz         *timezone.Normalizer
	notif      notifier.Notifier
	rdb        *redis.Client
	cancelLead time.Duration
	log        zerolog.Logger
}

// NewLifecycleService creates a new LifecycleService. cancelLead is the
// minimum lead time for parent-initiated cancellations.
func NewLifecycleService(
	tx TxRunner,
	sessions SessionStore,
	students StudentStore,
	groups GroupStore,
	attendance AttendanceStore,
	credits CreditStore,
	tz *timezone.Normalizer,
	notif notifier.Notifier,
	rdb *redis.Client,
	cancelLead time.Duration,
	log zerolog.Logger,
) *LifecycleService {
	return &LifecycleService{
		tx:         tx,
		sessions:   sessions,
		students:   students,
		groups:     groups,
		attendance: attendance,
		credits:    credits,
		tz:         tz,
		notif:      notif,
		rdb:        rdb,
		cancelLead: cancelLead,
		log:        log.With().Str("component", "lifecycle_service").Logger(),
	}
}

func (s *LifecycleService) getSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// MarkPresent completes a private session: attendance PRESENT, one session
// consumed from the student's balance.
func (s *LifecycleService) MarkPresent(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Type != model.SessionTypePrivate {
		return nil, ErrNotPrivateSession
	}
	if !sess.Status.CanTransitionTo(model.SessionStatusCompleted) {
		return nil, ErrInvalidStateTransition
	}

	err = s.tx.InTx(ctx, func(db repository.DB) error {
		if err := s.sessions.MarkCompleted(ctx, db, sess.ID, model.AttendancePresent); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidStateTransition
			}
			return err
		}
		return s.students.ApplyCounterDeltas(ctx, db, sess.Subject.ID, 1, -1)
	})
	if err != nil {
		return nil, err
	}

	invalidateAgenda(ctx, s.rdb, s.log, sess.Subject, sess.SessionDate)
	s.log.Info().Str("session_id", sess.ID.String()).Msg("Session completed")
	return s.getSession(ctx, sess.ID)
}

// MarkAbsent marks a private session missed: attendance ABSENT, one new
// AVAILABLE credit referencing the session. The balance is untouched; the
// credit is the compensation.
func (s *LifecycleService) MarkAbsent(ctx context.Context, id uuid.UUID, reason string) (*model.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Type != model.SessionTypePrivate {
		return nil, ErrNotPrivateSession
	}
	if !sess.Status.CanTransitionTo(model.SessionStatusMissed) {
		return nil, ErrInvalidStateTransition
	}

	err = s.tx.InTx(ctx, func(db repository.DB) error {
		if err := s.sessions.MarkMissed(ctx, db, sess.ID, reason); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidStateTransition
			}
			return err
		}
		return s.credits.Create(ctx, db, newSessionCredit(sess.Subject.ID, sess.ID, reason))
	})
	if err != nil {
		return nil, err
	}

	invalidateAgenda(ctx, s.rdb, s.log, sess.Subject, sess.SessionDate)
	s.log.Info().Str("session_id", sess.ID.String()).Msg("Session marked missed")
	return s.getSession(ctx, sess.ID)
}

// Cancel cancels a session on behalf of an actor. Both actors produce one
// AVAILABLE credit per affected student; a parent cancellation additionally
// returns the slot to the subject's balance and must respect the minimum
// lead time before the start instant.
func (s *LifecycleService) Cancel(ctx context.Context, id uuid.UUID, actor model.CancelActor, reason string) (*model.Session, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	target := model.SessionStatusCancelledByTeacher
	if actor == model.CancelActorParent {
		target = model.SessionStatusCancelledByParent
	}
	if !sess.Status.CanTransitionTo(target) {
		return nil, ErrInvalidStateTransition
	}
	if actor == model.CancelActorParent && time.Until(sess.StartsAt) < s.cancelLead {
		return nil, ErrCancellationWindowClosed
	}

	err = s.tx.InTx(ctx, func(db repository.DB) error {
		// Guarded first statement: if another transition won, nothing below
		// runs and the whole cancellation rolls back.
		if err := s.sessions.MarkCancelled(ctx, db, sess.ID, target, actor, reason); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidStateTransition
			}
			return err
		}

		studentIDs := []int{sess.Subject.ID}
		if sess.Type == model.SessionTypeGroup {
			ids, err := s.groups.ListActiveMemberIDs(ctx, db, sess.Subject.ID)
			if err != nil {
				return err
			}
			studentIDs = ids
		}
		for _, studentID := range studentIDs {
			if err := s.credits.Create(ctx, db, newSessionCredit(studentID, sess.ID, reason)); err != nil {
				return err
			}
		}

		if actor == model.CancelActorParent {
			return s.applySubjectDeltas(ctx, db, sess.Subject, 0, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateAgenda(ctx, s.rdb, s.log, sess.Subject, sess.SessionDate)
	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("actor", string(actor)).
		Msg("Session cancelled")

	updated, err := s.getSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	s.notifyCancelled(ctx, updated)
	return updated, nil
}

// MarkGroupAttendance applies one marking pass over a group session. The
// pass diffs each participant's previous outcome against the new one so
// repeated passes and corrections settle counters exactly once, grants one
// credit per newly absent participant, and flips the session to COMPLETED
// as the final statement once every participant has an outcome. Corrections
// on an already completed session stay legal; missed and cancelled sessions
// reject the pass.
func (s *LifecycleService) MarkGroupAttendance(ctx context.Context, id uuid.UUID, marks []model.ParticipantMark) (*model.Session, []model.GroupAttendanceRecord, error) {
	sess, err := s.getSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sess.Type != model.SessionTypeGroup {
		return nil, nil, ErrNotGroupSession
	}

	err = s.tx.InTx(ctx, func(db repository.DB) error {
		// Lock the session row: overlapping passes serialize here and each
		// sees the committed status of the one before it.
		cur, err := s.sessions.GetByIDForUpdate(ctx, db, sess.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSessionNotFound
			}
			return err
		}
		if cur.Status != model.SessionStatusCompleted && cur.Status.IsTerminal() {
			return ErrInvalidStateTransition
		}

		records, err := s.attendance.ListBySessionForUpdate(ctx, db, sess.ID)
		if err != nil {
			return err
		}
		outcome := make(map[int]model.Attendance, len(records))
		for _, rec := range records {
			outcome[rec.StudentID] = rec.Attendance
		}

		for _, mark := range marks {
			before, ok := outcome[mark.StudentID]
			if !ok {
				return fmt.Errorf("%w: student %d", ErrUnknownParticipant, mark.StudentID)
			}
			if err := s.attendance.UpdateMark(ctx, db, sess.ID, mark.StudentID, mark.Attendance, mark.HomeworkGrade, mark.Reason); err != nil {
				return err
			}

			prevCompleted, prevRemaining := counterDelta(before)
			newCompleted, newRemaining := counterDelta(mark.Attendance)
			if dc, dr := newCompleted-prevCompleted, newRemaining-prevRemaining; dc != 0 || dr != 0 {
				if err := s.students.ApplyCounterDeltas(ctx, db, mark.StudentID, dc, dr); err != nil {
					return err
				}
			}
			if mark.Attendance == model.AttendanceAbsent && before != model.AttendanceAbsent {
				if err := s.credits.Create(ctx, db, newSessionCredit(mark.StudentID, sess.ID, mark.Reason)); err != nil {
					return err
				}
			}
			outcome[mark.StudentID] = mark.Attendance
		}

		if cur.Status != model.SessionStatusCompleted && passCoversGroup(outcome) {
			if err := s.groups.ApplyCounterDeltas(ctx, db, sess.Subject.ID, 1, -1); err != nil {
				return err
			}
			// Status flip last: a crash mid-pass leaves the session in its
			// prior state for retry.
			if err := s.sessions.CompleteGroupSession(ctx, db, sess.ID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrInvalidStateTransition
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	invalidateAgenda(ctx, s.rdb, s.log, sess.Subject, sess.SessionDate)
	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("marks", len(marks)).
		Msg("Group attendance marked")

	updated, err := s.getSession(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.attendance.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	return updated, records, nil
}

// applySubjectDeltas routes a counter delta to the owning student or group.
func (s *LifecycleService) applySubjectDeltas(ctx context.Context, db repository.DB, subject model.SubjectRef, completedDelta, remainingDelta int) error {
	if subject.Kind == model.SubjectGroup {
		return s.groups.ApplyCounterDeltas(ctx, db, subject.ID, completedDelta, remainingDelta)
	}
	return s.students.ApplyCounterDeltas(ctx, db, subject.ID, completedDelta, remainingDelta)
}

// notifyCancelled tells every recipient their session is off. Failures are
// logged and never unwind the committed cancellation.
func (s *LifecycleService) notifyCancelled(ctx context.Context, sess *model.Session) {
	recipients, zoneFallback, err := subjectRecipients(ctx, s.students, s.groups, sess.Subject)
	if err != nil {
		s.log.Warn().Err(err).
			Str("session_id", sess.ID.String()).
			Msg("Failed to resolve cancellation recipients")
		return
	}
	for _, r := range recipients {
		zone := firstZone(r.Timezone, zoneFallback)
		view := renderSessionView(s.tz, sess, zone)
		msg := notifier.Message{
			To:      r.Email,
			ToName:  r.FullName,
			Subject: "Your tutoring session was cancelled",
			Body: fmt.Sprintf(
				"Hi %s,\n\nSession %d on %s %s at %s (%s) has been cancelled. A makeup credit has been added to your account.\n",
				r.FullName, view.SessionNumber, view.DayOfWeek, view.LocalDate, view.LocalTime, view.Timezone),
		}
		sendCtx, cancel := context.WithTimeout(ctx, NotifyTimeout)
		if err := s.notif.Send(sendCtx, msg); err != nil {
			s.log.Warn().Err(err).Str("to", msg.To).Msg("Cancellation notice dispatch failed")
		}
		cancel()
	}
}

// newSessionCredit builds an AVAILABLE credit compensating one student for
// one session.
func newSessionCredit(studentID int, sessionID uuid.UUID, reason string) *model.MakeupCredit {
	return &model.MakeupCredit{
		ID:                uuid.New(),
		StudentID:         studentID,
		OriginalSessionID: &sessionID,
		Reason:            reason,
		Status:            model.CreditStatusAvailable,
		CreditDate:        time.Now().UTC(),
	}
}

// counterDelta maps an attendance outcome to its effect on a student's
// counters. Only PRESENT consumes balance; ABSENT compensates through a
// credit instead; EXCUSED and UNEXCUSED are record-only.
func counterDelta(a model.Attendance) (completed, remaining int) {
	if a == model.AttendancePresent {
		return 1, -1
	}
	return 0, 0
}

// passCoversGroup reports whether every participant now has an outcome.
func passCoversGroup(outcome map[int]model.Attendance) bool {
	if len(outcome) == 0 {
		return false
	}
	for _, a := range outcome {
		if a == "" {
			return false
		}
	}
	return true
}
