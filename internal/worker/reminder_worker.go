package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/tutoria/tutoria-backend/internal/config"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/notifier"
	"github.com/tutoria/tutoria-backend/internal/repository"
	"github.com/tutoria/tutoria-backend/internal/timezone"
)

// ReminderSendTimeout bounds each outbound reminder so one hung call cannot
// stall a whole pass.
const ReminderSendTimeout = 5 * time.Second

// SessionSource is the slice of session persistence the reminder passes use:
// due selection, a pre-dispatch re-read and the sent stamps.
type SessionSource interface {
	ListDueDayAhead(ctx context.Context, date time.Time) ([]model.Session, error)
	ListDueWithinHour(ctx context.Context, from, to time.Time) ([]model.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	MarkReminder24hSent(ctx context.Context, id uuid.UUID) error
	MarkReminder1hSent(ctx context.Context, id uuid.UUID) error
}

// StudentSource resolves the recipient of a private session.
type StudentSource interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
}

// GroupSource resolves the recipients of a group session.
type GroupSource interface {
	GetByID(ctx context.Context, id int) (*model.Group, error)
	ListActiveMembers(ctx context.Context, groupID int) ([]model.Student, error)
}

var (
	_ SessionSource = (*repository.SessionRepository)(nil)
	_ StudentSource = (*repository.StudentRepository)(nil)
	_ GroupSource   = (*repository.GroupRepository)(nil)
)

// ReminderWorker runs the two scheduled reminder passes: a day-ahead pass at
// a fixed canonical wall clock and an hour-ahead pass at the top of every
// hour. Dispatch is tracked per session through the reminder stamps, so a
// restarted or overlapping process never re-sends what is already stamped.
type ReminderWorker struct {
	sessions   SessionSource
	students   StudentSource
	groups     GroupSource
	tz         *timezone.Normalizer
	notif      notifier.Notifier
	rdb        *redis.Client
	dayAheadAt string
	cron       *cron.Cron
	now        func() time.Time
	log        zerolog.Logger
}

func NewReminderWorker(
	sessions SessionSource,
	students StudentSource,
	groups GroupSource,
	tz *timezone.Normalizer,
	notif notifier.Notifier,
	rdb *redis.Client,
	dayAheadAt string,
	log zerolog.Logger,
) *ReminderWorker {
	return &ReminderWorker{
		sessions:   sessions,
		students:   students,
		groups:     groups,
		tz:         tz,
		notif:      notif,
		rdb:        rdb,
		dayAheadAt: dayAheadAt,
		now:        time.Now,
		log:        log.With().Str("component", "reminder_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Cron lifecycle
// ----------------------------------------------------------------

// Start registers both passes and starts the cron scheduler in the canonical
// zone. A pass still running when its next tick fires is skipped, not
// stacked.
func (w *ReminderWorker) Start(ctx context.Context) error {
	hour, minute, err := timezone.ParseClock(w.dayAheadAt)
	if err != nil {
		return fmt.Errorf("parse day-ahead reminder time: %w", err)
	}

	c := cron.New(
		cron.WithLocation(w.tz.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{w.log})),
	)
	if _, err := c.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), func() {
		w.runDayAhead(ctx)
	}); err != nil {
		return fmt.Errorf("register day-ahead pass: %w", err)
	}
	if _, err := c.AddFunc("0 * * * *", func() {
		w.runHourAhead(ctx)
	}); err != nil {
		return fmt.Errorf("register hour-ahead pass: %w", err)
	}
	c.Start()
	w.cron = c

	w.log.Info().
		Str("day_ahead_at", w.dayAheadAt).
		Str("timezone", w.tz.Zone()).
		Msg("ReminderWorker started")
	return nil
}

// Stop halts the scheduler and waits for any running pass to finish.
func (w *ReminderWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.cron = nil
	w.log.Info().Msg("ReminderWorker stopped")
}

// ----------------------------------------------------------------
// Reminder passes
// ----------------------------------------------------------------

func (w *ReminderWorker) runDayAhead(ctx context.Context) {
	tomorrow := w.tz.DayInCanonical(w.now()).AddDate(0, 0, 1)
	due, err := w.sessions.ListDueDayAhead(ctx, tomorrow)
	if err != nil {
		w.log.Error().Err(err).Msg("Day-ahead select failed")
		return
	}

	dispatched := w.dispatchAll(ctx, due, "tomorrow", w.sessions.MarkReminder24hSent)
	w.recordPass(ctx, config.ReminderKey.SentDayAheadCounter, config.ReminderKey.LastDayAheadPass, dispatched)
	w.log.Info().Int("due", len(due)).Int("dispatched", dispatched).Msg("Day-ahead pass finished")
}

func (w *ReminderWorker) runHourAhead(ctx context.Context) {
	now := w.now()
	due, err := w.sessions.ListDueWithinHour(ctx, now, now.Add(time.Hour))
	if err != nil {
		w.log.Error().Err(err).Msg("Hour-ahead select failed")
		return
	}

	dispatched := w.dispatchAll(ctx, due, "starting soon", w.sessions.MarkReminder1hSent)
	w.recordPass(ctx, config.ReminderKey.SentHourAheadCounter, config.ReminderKey.LastHourAheadPass, dispatched)
	w.log.Info().Int("due", len(due)).Int("dispatched", dispatched).Msg("Hour-ahead pass finished")
}

// dispatchAll sends reminders for every due session and stamps a session only
// after at least one of its recipients was reached. A fully failed session is
// left unstamped for the next pass. One session's failure never blocks the
// rest of the batch.
func (w *ReminderWorker) dispatchAll(ctx context.Context, due []model.Session, horizon string, mark func(context.Context, uuid.UUID) error) int {
	dispatched := 0
	for i := range due {
		// Re-read right before dispatch: the session may have been
		// cancelled or deleted since the select.
		sess, err := w.sessions.GetByID(ctx, due[i].ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			w.log.Error().Err(err).Str("session_id", due[i].ID.String()).Msg("Reminder re-read failed")
			continue
		}
		if sess.Status.IsTerminal() {
			continue
		}

		if !w.remindSession(ctx, sess, horizon) {
			continue
		}
		if err := mark(ctx, sess.ID); err != nil {
			w.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to stamp reminder")
			continue
		}
		dispatched++
	}
	return dispatched
}

// remindSession fans one reminder out to every recipient, each rendered in
// their own timezone. Reports whether at least one send succeeded.
func (w *ReminderWorker) remindSession(ctx context.Context, sess *model.Session, horizon string) bool {
	recipients, zoneFallback, err := w.recipients(ctx, sess)
	if err != nil {
		w.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to resolve reminder recipients")
		return false
	}

	sent := 0
	for _, r := range recipients {
		zone := r.Timezone
		if zone == "" {
			zone = zoneFallback
		}
		disp, zone := w.display(sess, zone)

		sendCtx, cancel := context.WithTimeout(ctx, ReminderSendTimeout)
		err := w.notif.Send(sendCtx, notifier.Message{
			To:      r.Email,
			ToName:  r.FullName,
			Subject: fmt.Sprintf("Reminder: tutoring session %s", horizon),
			Body:    reminderBody(r.FullName, sess, disp, zone, horizon),
		})
		cancel()
		if err != nil {
			w.log.Warn().Err(err).
				Str("to", r.Email).
				Str("session_id", sess.ID.String()).
				Msg("Reminder dispatch failed")
			continue
		}
		sent++
	}
	return sent > 0
}

func (w *ReminderWorker) recipients(ctx context.Context, sess *model.Session) ([]model.Student, string, error) {
	if sess.Type == model.SessionTypePrivate {
		student, err := w.students.GetByID(ctx, sess.Subject.ID)
		if err != nil {
			return nil, "", err
		}
		return []model.Student{*student}, "", nil
	}

	group, err := w.groups.GetByID(ctx, sess.Subject.ID)
	if err != nil {
		return nil, "", err
	}
	members, err := w.groups.ListActiveMembers(ctx, sess.Subject.ID)
	if err != nil {
		return nil, "", err
	}
	return members, group.Timezone, nil
}

// display renders the start instant in zone, falling back to the canonical
// zone for an empty or unknown name. A stored bad zone must never block a
// reminder.
func (w *ReminderWorker) display(sess *model.Session, zone string) (timezone.DisplayTime, string) {
	if zone == "" {
		zone = w.tz.Zone()
	}
	disp, err := w.tz.ToDisplay(sess.StartsAt, zone)
	if err != nil {
		zone = w.tz.Zone()
		disp, _ = w.tz.ToDisplay(sess.StartsAt, zone)
	}
	return disp, zone
}

func reminderBody(name string, sess *model.Session, disp timezone.DisplayTime, zone, horizon string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nSession %d is %s: %s %s at %s (%s).\n",
		name, sess.SessionNumber, horizon, disp.DayOfWeek, disp.Date, disp.Time, zone)
	if sess.MeetingLink != "" {
		fmt.Fprintf(&b, "Join link: %s\n", sess.MeetingLink)
	}
	return b.String()
}

// ----------------------------------------------------------------
// Pass bookkeeping in Redis
// ----------------------------------------------------------------

// recordPass bumps the dispatch counter and stamps the pass instant. Both
// are observability reads for the system endpoint; Redis being down never
// affects dispatch.
func (w *ReminderWorker) recordPass(ctx context.Context, counterKey, passKey string, dispatched int) {
	if w.rdb == nil {
		return
	}
	if dispatched > 0 {
		if err := w.rdb.IncrBy(ctx, counterKey, int64(dispatched)).Err(); err != nil {
			w.log.Warn().Err(err).Msg("Failed to bump reminder counter")
		}
	}
	if err := w.rdb.Set(ctx, passKey, w.now().UTC().Format(time.RFC3339), 0).Err(); err != nil {
		w.log.Warn().Err(err).Msg("Failed to stamp reminder pass")
	}
}

// cronLogger adapts zerolog to the cron.Logger interface. Skip notices log
// at debug; they are routine under long passes.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
