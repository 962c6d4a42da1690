package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/notifier"
	"github.com/tutoria/tutoria-backend/internal/repository"
	"github.com/tutoria/tutoria-backend/internal/response"
	"github.com/tutoria/tutoria-backend/internal/timezone"
)

// NotifyTimeout bounds every outbound notification call so a hung channel
// never stalls a request or a reminder pass.
const NotifyTimeout = 5 * time.Second

// SchedulingService creates session batches, serves session queries and
// removes sessions that have not run yet.
type SchedulingService struct {
	tx          TxRunner
	sessions    SessionStore
	students    StudentStore
	groups      GroupStore
	attendance  AttendanceStore
	credits     CreditStore
	settings    SettingStore
	tz          *timezone.Normalizer
	notif       notifier.Notifier
	rdb         *redis.Client
	fallbackURL string
	log         zerolog.Logger
}

// NewSchedulingService creates a new SchedulingService. fallbackURL is the
// configured meeting link used when neither the request nor the settings
// store provides one.
func NewSchedulingService(
	tx TxRunner,
	sessions SessionStore,
	students StudentStore,
	groups GroupStore,
	attendance AttendanceStore,
	credits CreditStore,
	settings SettingStore,
	tz *timezone.Normalizer,
	notif notifier.Notifier,
	rdb *redis.Client,
	fallbackURL string,
	log zerolog.Logger,
) *SchedulingService {
	return &SchedulingService{
		tx:          tx,
		sessions:    sessions,
		students:    students,
		groups:      groups,
		attendance:  attendance,
		credits:     credits,
		settings:    settings,
		tz:          tz,
		notif:       notif,
		rdb:         rdb,
		fallbackURL: fallbackURL,
		log:         log.With().Str("component", "scheduling_service").Logger(),
	}
}

// Schedule creates every requested session in one transaction: subject
// lock, balance precondition, contiguous numbering, group fan-out and the
// optional credit redemption all commit together or not at all. Every slot
// is normalized before the first write, so one malformed pair rejects the
// whole batch. After commit each recipient gets a confirmation rendered in
// their own timezone.
func (s *SchedulingService) Schedule(ctx context.Context, req *model.ScheduleSessionsRequest) ([]model.Session, error) {
	slots := make([]timezone.CanonicalSlot, 0, len(req.Slots))
	for _, in := range req.Slots {
		slot, err := s.tz.NormalizeSlot(in.Date, in.Time)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	var redeemID uuid.UUID
	if req.RedeemCreditID != "" {
		id, err := uuid.Parse(req.RedeemCreditID)
		if err != nil {
			return nil, ErrCreditNotFound
		}
		redeemID = id
	}

	subject := model.SubjectRef{Kind: req.SubjectKind, ID: req.SubjectID}
	status := model.SessionStatusPending
	if req.Confirmed {
		status = model.SessionStatusScheduled
	}
	meetingLink := req.MeetingLink
	if meetingLink == "" {
		meetingLink = s.defaultMeetingLink(ctx)
	}

	var created []*model.Session
	err := s.tx.InTx(ctx, func(db repository.DB) error {
		created = created[:0]

		if err := s.checkSubject(ctx, db, subject, len(slots)); err != nil {
			return err
		}

		count, err := s.sessions.CountBySubject(ctx, db, subject)
		if err != nil {
			return err
		}
		for i, slot := range slots {
			number := count + i + 1
			var sess *model.Session
			if subject.Kind == model.SubjectStudent {
				sess = model.NewPrivateSession(subject.ID, number, slot.SessionDate, slot.SessionTime, slot.StartsAt, status, meetingLink)
			} else {
				sess = model.NewGroupSession(subject.ID, number, slot.SessionDate, slot.SessionTime, slot.StartsAt, status, meetingLink)
			}
			created = append(created, sess)
		}
		if err := s.sessions.CreateBatch(ctx, db, created); err != nil {
			return err
		}

		if subject.Kind == model.SubjectGroup {
			if err := s.fanOutAttendance(ctx, db, subject.ID, created); err != nil {
				return err
			}
		}

		if redeemID != uuid.Nil {
			if err := s.redeemForSubject(ctx, db, redeemID, subject); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(created))
	out := make([]model.Session, 0, len(created))
	for _, sess := range created {
		dates = append(dates, sess.SessionDate)
		out = append(out, *sess)
	}
	invalidateAgenda(ctx, s.rdb, s.log, subject, dates...)
	s.notifyScheduled(ctx, subject, out)

	s.log.Info().
		Str("subject_kind", string(subject.Kind)).
		Int("subject_id", subject.ID).
		Int("sessions", len(out)).
		Msg("Sessions scheduled")
	return out, nil
}

// checkSubject locks the subject row and verifies the scheduling
// preconditions. The row lock serializes numbering and the balance check
// per subject. Group scheduling is capacity driven and carries no balance
// precondition.
func (s *SchedulingService) checkSubject(ctx context.Context, db repository.DB, subject model.SubjectRef, requested int) error {
	switch subject.Kind {
	case model.SubjectStudent:
		student, err := s.students.GetByIDForUpdate(ctx, db, subject.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSubjectNotFound
			}
			return err
		}
		if !student.Active {
			return ErrSubjectInactive
		}
		if student.RemainingSessions < requested {
			return ErrInsufficientSessionBalance
		}
		return nil
	case model.SubjectGroup:
		group, err := s.groups.GetByIDForUpdate(ctx, db, subject.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSubjectNotFound
			}
			return err
		}
		if !group.Active {
			return ErrSubjectInactive
		}
		return nil
	}
	return ErrSubjectNotFound
}

// fanOutAttendance inserts one blank record per active enrollment per new
// session. Students enrolled later never gain rows for these sessions.
func (s *SchedulingService) fanOutAttendance(ctx context.Context, db repository.DB, groupID int, sessions []*model.Session) error {
	memberIDs, err := s.groups.ListActiveMemberIDs(ctx, db, groupID)
	if err != nil {
		return err
	}
	// A session with no attendance rows could never complete: no mark would
	// ever cover the group.
	if len(memberIDs) == 0 {
		return ErrGroupEmpty
	}
	for _, sess := range sessions {
		records := make([]*model.GroupAttendanceRecord, 0, len(memberIDs))
		for _, studentID := range memberIDs {
			records = append(records, &model.GroupAttendanceRecord{
				ID:        uuid.New(),
				SessionID: sess.ID,
				StudentID: studentID,
			})
		}
		if err := s.attendance.CreateBatch(ctx, db, records); err != nil {
			return err
		}
	}
	return nil
}

// redeemForSubject redeems a credit inside the scheduling transaction. The
// credit must belong to the student being scheduled; a group batch cannot
// consume a student's credit.
func (s *SchedulingService) redeemForSubject(ctx context.Context, db repository.DB, id uuid.UUID, subject model.SubjectRef) error {
	if subject.Kind != model.SubjectStudent {
		return ErrCreditNotFound
	}
	credit, err := s.credits.GetByIDForUpdate(ctx, db, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCreditNotFound
		}
		return err
	}
	if credit.StudentID != subject.ID {
		return ErrCreditNotFound
	}
	if credit.Status != model.CreditStatusAvailable {
		return ErrCreditAlreadyUsed
	}
	if err := s.credits.Redeem(ctx, db, id, time.Now().UTC()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCreditAlreadyUsed
		}
		return err
	}
	return nil
}

// defaultMeetingLink resolves the link for requests that omit one: the
// default_meeting_link setting first, then the configured fallback.
func (s *SchedulingService) defaultMeetingLink(ctx context.Context) string {
	setting, err := s.settings.GetByKey(ctx, model.SettingDefaultMeetingLink)
	if err == nil && setting.Value != "" {
		return setting.Value
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		s.log.Warn().Err(err).Msg("Failed to read default meeting link setting")
	}
	return s.fallbackURL
}

// notifyScheduled sends one confirmation per recipient with the whole batch
// rendered in that recipient's timezone, order preserved. Failures are
// logged and never unwind the committed schedule.
func (s *SchedulingService) notifyScheduled(ctx context.Context, subject model.SubjectRef, sessions []model.Session) {
	recipients, zoneFallback, err := subjectRecipients(ctx, s.students, s.groups, subject)
	if err != nil {
		s.log.Warn().Err(err).
			Str("subject_kind", string(subject.Kind)).
			Int("subject_id", subject.ID).
			Msg("Failed to resolve confirmation recipients")
		return
	}
	for _, r := range recipients {
		zone := firstZone(r.Timezone, zoneFallback)
		views := renderSessionViews(s.tz, sessions, zone)
		s.send(ctx, notifier.Message{
			To:      r.Email,
			ToName:  r.FullName,
			Subject: confirmationSubject(len(views)),
			Body:    confirmationBody(r.FullName, views),
		})
	}
}

func (s *SchedulingService) send(ctx context.Context, msg notifier.Message) {
	sendCtx, cancel := context.WithTimeout(ctx, NotifyTimeout)
	defer cancel()
	if err := s.notif.Send(sendCtx, msg); err != nil {
		s.log.Warn().Err(err).Str("to", msg.To).Msg("Confirmation dispatch failed")
	}
}

func confirmationSubject(count int) string {
	if count == 1 {
		return "Your tutoring session is booked"
	}
	return fmt.Sprintf("%d tutoring sessions are booked", count)
}

func confirmationBody(name string, views []model.SessionView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYour upcoming sessions (times shown in %s):\n", name, views[0].Timezone)
	for _, v := range views {
		fmt.Fprintf(&b, "  Session %d: %s %s at %s", v.SessionNumber, v.DayOfWeek, v.LocalDate, v.LocalTime)
		if v.MeetingLink != "" {
			fmt.Fprintf(&b, " (%s)", v.MeetingLink)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// List retrieves sessions with optional subject, status and date filters,
// paginated.
func (s *SchedulingService) List(ctx context.Context, subject *model.SubjectRef, status *model.SessionStatus, from, to *time.Time, page, perPage int) ([]model.Session, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	sessions, total, err := s.sessions.ListFiltered(ctx, subject, status, from, to, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if sessions == nil {
		sessions = []model.Session{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
	return sessions, pagination, nil
}

// Get retrieves a session by ID.
func (s *SchedulingService) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// Attendance returns a group session's participant records.
func (s *SchedulingService) Attendance(ctx context.Context, id uuid.UUID) ([]model.GroupAttendanceRecord, error) {
	records, err := s.attendance.ListBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.GroupAttendanceRecord{}
	}
	return records, nil
}

// Delete removes a session that has not run: initial status and a start
// instant still in the future. COMPLETED sessions are history and can never
// be deleted. Group sessions drop their attendance rows in the same
// transaction.
func (s *SchedulingService) Delete(ctx context.Context, id uuid.UUID) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status.IsTerminal() || !time.Now().Before(sess.StartsAt) {
		return ErrInvalidStateTransition
	}

	err = s.tx.InTx(ctx, func(db repository.DB) error {
		if sess.Type == model.SessionTypeGroup {
			if err := s.attendance.DeleteBySession(ctx, db, sess.ID); err != nil {
				return err
			}
		}
		if err := s.sessions.Delete(ctx, db, sess.ID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidStateTransition
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	invalidateAgenda(ctx, s.rdb, s.log, sess.Subject, sess.SessionDate)
	s.log.Info().Str("session_id", sess.ID.String()).Msg("Session deleted")
	return nil
}
