package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tutoria/tutoria-backend/internal/model"
)

func TestMarkPresent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "pia", "", 5)
	subject := model.SubjectRef{Kind: model.SubjectStudent, ID: student.ID}

	t.Run("consumes one session", func(t *testing.T) {
		sess := env.addSession(t, subject, 1, time.Now().Add(-time.Hour), model.SessionStatusScheduled)

		updated, err := env.lifecycle.MarkPresent(context.Background(), sess.ID)
		if err != nil {
			t.Fatalf("MarkPresent: %v", err)
		}
		if updated.Status != model.SessionStatusCompleted {
			t.Errorf("status = %s, want COMPLETED", updated.Status)
		}
		if updated.Attendance != model.AttendancePresent {
			t.Errorf("attendance = %s, want PRESENT", updated.Attendance)
		}
		got := env.student(t, student.ID)
		if got.CompletedSessions != 1 || got.RemainingSessions != 4 {
			t.Errorf("counters = (%d, %d), want (1, 4)", got.CompletedSessions, got.RemainingSessions)
		}
	})

	t.Run("re-mark rejected", func(t *testing.T) {
		sess := env.addSession(t, subject, 2, time.Now().Add(-time.Hour), model.SessionStatusCompleted)
		if _, err := env.lifecycle.MarkPresent(context.Background(), sess.ID); !errors.Is(err, ErrInvalidStateTransition) {
			t.Errorf("err = %v, want ErrInvalidStateTransition", err)
		}
	})

	t.Run("group session rejected", func(t *testing.T) {
		group := env.addGroup(t, "duo", "", 5)
		sess := env.addSession(t, model.SubjectRef{Kind: model.SubjectGroup, ID: group.ID}, 1, time.Now(), model.SessionStatusPending)
		if _, err := env.lifecycle.MarkPresent(context.Background(), sess.ID); !errors.Is(err, ErrNotPrivateSession) {
			t.Errorf("err = %v, want ErrNotPrivateSession", err)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		if _, err := env.lifecycle.MarkPresent(context.Background(), uuid.New()); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestMarkPresentClampsAtZero(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "quy", "", 0)
	sess := env.addSession(t, model.SubjectRef{Kind: model.SubjectStudent, ID: student.ID}, 1, time.Now(), model.SessionStatusPending)

	if _, err := env.lifecycle.MarkPresent(context.Background(), sess.ID); err != nil {
		t.Fatalf("MarkPresent: %v", err)
	}
	got := env.student(t, student.ID)
	if got.CompletedSessions != 1 || got.RemainingSessions != 0 {
		t.Errorf("counters = (%d, %d), want (1, 0)", got.CompletedSessions, got.RemainingSessions)
	}
}

func TestMarkAbsent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "rui", "", 5)
	subject := model.SubjectRef{Kind: model.SubjectStudent, ID: student.ID}
	sess := env.addSession(t, subject, 1, time.Now().Add(-time.Hour), model.SessionStatusPending)

	updated, err := env.lifecycle.MarkAbsent(context.Background(), sess.ID, "overslept")
	if err != nil {
		t.Fatalf("MarkAbsent: %v", err)
	}
	if updated.Status != model.SessionStatusMissed {
		t.Errorf("status = %s, want MISSED", updated.Status)
	}
	if updated.Attendance != model.AttendanceAbsent {
		t.Errorf("attendance = %s, want ABSENT", updated.Attendance)
	}
	if updated.Reason != "overslept" {
		t.Errorf("reason = %q, want overslept", updated.Reason)
	}

	// The balance stays put; the compensation is the credit
	got := env.student(t, student.ID)
	if got.CompletedSessions != 0 || got.RemainingSessions != 5 {
		t.Errorf("counters = (%d, %d), want (0, 5)", got.CompletedSessions, got.RemainingSessions)
	}
	credits := env.studentCredits(t, student.ID)
	if len(credits) != 1 {
		t.Fatalf("granted %d credits, want 1", len(credits))
	}
	c := credits[0]
	if c.Status != model.CreditStatusAvailable {
		t.Errorf("credit status = %s, want AVAILABLE", c.Status)
	}
	if c.OriginalSessionID == nil || *c.OriginalSessionID != sess.ID {
		t.Error("credit must reference the missed session")
	}
	if c.Reason != "overslept" {
		t.Errorf("credit reason = %q, want overslept", c.Reason)
	}
}

func TestCancelByParent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "sol", "America/New_York", 5)
	subject := model.SubjectRef{Kind: model.SubjectStudent, ID: student.ID}

	t.Run("inside the lead window", func(t *testing.T) {
		sess := env.addSession(t, subject, 1, time.Now().Add(time.Hour), model.SessionStatusScheduled)

		_, err := env.lifecycle.Cancel(context.Background(), sess.ID, model.CancelActorParent, "sick")
		if !errors.Is(err, ErrCancellationWindowClosed) {
			t.Fatalf("err = %v, want ErrCancellationWindowClosed", err)
		}
		if got := env.session(t, sess.ID); got.Status != model.SessionStatusScheduled {
			t.Errorf("status changed to %s on a rejected cancel", got.Status)
		}
		if len(env.studentCredits(t, student.ID)) != 0 {
			t.Error("rejected cancel must grant no credit")
		}
	})

	t.Run("with enough lead", func(t *testing.T) {
		sess := env.addSession(t, subject, 2, time.Now().Add(3*time.Hour), model.SessionStatusScheduled)

		updated, err := env.lifecycle.Cancel(context.Background(), sess.ID, model.CancelActorParent, "family trip")
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if updated.Status != model.SessionStatusCancelledByParent {
			t.Errorf("status = %s, want CANCELLED_BY_PARENT", updated.Status)
		}
		if updated.CancelledBy != model.CancelActorParent {
			t.Errorf("cancelled_by = %s, want PARENT", updated.CancelledBy)
		}

		// Parent cancellation both returns the slot and grants a credit
		got := env.student(t, student.ID)
		if got.RemainingSessions != 6 {
			t.Errorf("remaining = %d, want 6", got.RemainingSessions)
		}
		credits := env.studentCredits(t, student.ID)
		if len(credits) != 1 || credits[0].Status != model.CreditStatusAvailable {
			t.Fatalf("credits = %+v, want one AVAILABLE", credits)
		}

		msgs := env.notif.messages()
		if len(msgs) != 1 {
			t.Fatalf("sent %d messages, want 1", len(msgs))
		}
		if !strings.Contains(msgs[0].Body, "cancelled") || !strings.Contains(msgs[0].Body, "America/New_York") {
			t.Errorf("notice body missing cancellation text or zone:\n%s", msgs[0].Body)
		}
	})

	t.Run("terminal session", func(t *testing.T) {
		sess := env.addSession(t, subject, 3, time.Now().Add(24*time.Hour), model.SessionStatusCompleted)
		if _, err := env.lifecycle.Cancel(context.Background(), sess.ID, model.CancelActorParent, ""); !errors.Is(err, ErrInvalidStateTransition) {
			t.Errorf("err = %v, want ErrInvalidStateTransition", err)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		if _, err := env.lifecycle.Cancel(context.Background(), uuid.New(), model.CancelActorParent, ""); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})
}

func TestCancelByTeacher(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "tam", "", 5)
	subject := model.SubjectRef{Kind: model.SubjectStudent, ID: student.ID}

	// 30 minutes out: a parent is already locked in, the teacher is not
	sess := env.addSession(t, subject, 1, time.Now().Add(30*time.Minute), model.SessionStatusPending)

	updated, err := env.lifecycle.Cancel(context.Background(), sess.ID, model.CancelActorTeacher, "no power")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != model.SessionStatusCancelledByTeacher {
		t.Errorf("status = %s, want CANCELLED_BY_TEACHER", updated.Status)
	}

	// Credit only; the balance is untouched on teacher cancellations
	got := env.student(t, student.ID)
	if got.RemainingSessions != 5 {
		t.Errorf("remaining = %d, want 5", got.RemainingSessions)
	}
	if len(env.studentCredits(t, student.ID)) != 1 {
		t.Error("teacher cancellation must still grant a credit")
	}
}

func TestCancelGroupSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	group := env.addGroup(t, "trio", "Europe/London", 8)
	a := env.addStudent(t, "uma", "", 0)
	b := env.addStudent(t, "vic", "", 0)
	gone := env.addStudent(t, "wes", "", 0)
	env.enroll(t, group.ID, a.ID, b.ID, gone.ID)
	if err := (memGroups{env.state}).RemoveMember(context.Background(), group.ID, gone.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	subject := model.SubjectRef{Kind: model.SubjectGroup, ID: group.ID}

	t.Run("teacher grants a credit per active member", func(t *testing.T) {
		sess := env.addSession(t, subject, 1, time.Now().Add(24*time.Hour), model.SessionStatusScheduled)

		if _, err := env.lifecycle.Cancel(context.Background(), sess.ID, model.CancelActorTeacher, "holiday"); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if n := len(env.studentCredits(t, a.ID)); n != 1 {
			t.Errorf("member a got %d credits, want 1", n)
		}
		if n := len(env.studentCredits(t, b.ID)); n != 1 {
			t.Errorf("member b got %d credits, want 1", n)
		}
		if n := len(env.studentCredits(t, gone.ID)); n != 0 {
			t.Errorf("removed member got %d credits, want 0", n)
		}
		if got := env.group(t, group.ID); got.RemainingSessions != 8 {
			t.Errorf("group remaining = %d, want 8", got.RemainingSessions)
		}
		if msgs := env.notif.messages(); len(msgs) != 2 {
			t.Errorf("sent %d notices, want 2", len(msgs))
		}
	})

	t.Run("parent also returns the group slot", func(t *testing.T) {
		sess := env.addSession(t, subject, 2, time.Now().Add(24*time.Hour), model.SessionStatusScheduled)

		if _, err := env.lifecycle.Cancel(context.Background(), sess.ID, model.CancelActorParent, "strike day"); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if got := env.group(t, group.ID); got.RemainingSessions != 9 {
			t.Errorf("group remaining = %d, want 9", got.RemainingSessions)
		}
		if n := len(env.studentCredits(t, a.ID)); n != 2 {
			t.Errorf("member a has %d credits after two cancellations, want 2", n)
		}
	})
}

func TestMarkGroupAttendance(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	group := env.addGroup(t, "algebra", "", 10)
	a := env.addStudent(t, "xia", "", 5)
	b := env.addStudent(t, "yan", "", 5)
	c := env.addStudent(t, "zoe", "", 5)
	env.enroll(t, group.ID, a.ID, b.ID, c.ID)
	subject := model.SubjectRef{Kind: model.SubjectGroup, ID: group.ID}

	grade := func(v float64) *float64 { return &v }

	sess := env.addSession(t, subject, 1, time.Now().Add(-time.Hour), model.SessionStatusScheduled)
	env.addAttendanceRows(t, sess.ID, a.ID, b.ID, c.ID)

	t.Run("partial pass leaves the session open", func(t *testing.T) {
		updated, _, err := env.lifecycle.MarkGroupAttendance(context.Background(), sess.ID,
			[]model.ParticipantMark{{StudentID: a.ID, Attendance: model.AttendancePresent, HomeworkGrade: grade(87.5)}})
		if err != nil {
			t.Fatalf("MarkGroupAttendance: %v", err)
		}
		if updated.Status != model.SessionStatusScheduled {
			t.Errorf("status = %s, want SCHEDULED while participants are unmarked", updated.Status)
		}
		got := env.student(t, a.ID)
		if got.CompletedSessions != 1 || got.RemainingSessions != 4 {
			t.Errorf("present counters = (%d, %d), want (1, 4)", got.CompletedSessions, got.RemainingSessions)
		}
		if g := env.group(t, group.ID); g.CompletedSessions != 0 || g.RemainingSessions != 10 {
			t.Errorf("group counters = (%d, %d), want (0, 10)", g.CompletedSessions, g.RemainingSessions)
		}
	})

	t.Run("covering pass completes the session once", func(t *testing.T) {
		updated, records, err := env.lifecycle.MarkGroupAttendance(context.Background(), sess.ID,
			[]model.ParticipantMark{
				{StudentID: b.ID, Attendance: model.AttendanceAbsent, Reason: "sick"},
				{StudentID: c.ID, Attendance: model.AttendanceExcused, Reason: "school event"},
			})
		if err != nil {
			t.Fatalf("MarkGroupAttendance: %v", err)
		}
		if updated.Status != model.SessionStatusCompleted {
			t.Errorf("status = %s, want COMPLETED", updated.Status)
		}
		if len(records) != 3 {
			t.Fatalf("returned %d records, want 3", len(records))
		}
		if records[0].HomeworkGrade == nil || *records[0].HomeworkGrade != 87.5 {
			t.Error("homework grade not stored")
		}

		// Absent member: a credit, no counter movement
		if n := len(env.studentCredits(t, b.ID)); n != 1 {
			t.Errorf("absent member has %d credits, want 1", n)
		}
		if got := env.student(t, b.ID); got.RemainingSessions != 5 {
			t.Errorf("absent member remaining = %d, want 5", got.RemainingSessions)
		}
		// Excused is record-only but still counts as an outcome
		if n := len(env.studentCredits(t, c.ID)); n != 0 {
			t.Errorf("excused member has %d credits, want 0", n)
		}
		if g := env.group(t, group.ID); g.CompletedSessions != 1 || g.RemainingSessions != 9 {
			t.Errorf("group counters = (%d, %d), want (1, 9)", g.CompletedSessions, g.RemainingSessions)
		}
	})

	t.Run("correction settles the diff without re-completing", func(t *testing.T) {
		// b was marked absent in error: absent -> present moves the
		// counters forward, the earlier credit stays on the ledger
		_, _, err := env.lifecycle.MarkGroupAttendance(context.Background(), sess.ID,
			[]model.ParticipantMark{{StudentID: b.ID, Attendance: model.AttendancePresent}})
		if err != nil {
			t.Fatalf("correction: %v", err)
		}
		got := env.student(t, b.ID)
		if got.CompletedSessions != 1 || got.RemainingSessions != 4 {
			t.Errorf("corrected counters = (%d, %d), want (1, 4)", got.CompletedSessions, got.RemainingSessions)
		}
		if n := len(env.studentCredits(t, b.ID)); n != 1 {
			t.Errorf("correction changed credit count to %d, want 1", n)
		}
		if g := env.group(t, group.ID); g.CompletedSessions != 1 || g.RemainingSessions != 9 {
			t.Errorf("group counters re-applied: (%d, %d), want (1, 9)", g.CompletedSessions, g.RemainingSessions)
		}
	})

	t.Run("reverse correction refunds and compensates", func(t *testing.T) {
		// a actually never showed: present -> absent reverses the
		// consumption and grants the newly absent credit
		_, _, err := env.lifecycle.MarkGroupAttendance(context.Background(), sess.ID,
			[]model.ParticipantMark{{StudentID: a.ID, Attendance: model.AttendanceAbsent, Reason: "no-show"}})
		if err != nil {
			t.Fatalf("correction: %v", err)
		}
		got := env.student(t, a.ID)
		if got.CompletedSessions != 0 || got.RemainingSessions != 5 {
			t.Errorf("reversed counters = (%d, %d), want (0, 5)", got.CompletedSessions, got.RemainingSessions)
		}
		if n := len(env.studentCredits(t, a.ID)); n != 1 {
			t.Errorf("newly absent member has %d credits, want 1", n)
		}
	})
}

func TestMarkGroupAttendanceRejections(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	group := env.addGroup(t, "chem", "", 5)
	member := env.addStudent(t, "avi", "", 5)
	outsider := env.addStudent(t, "bao", "", 5)
	env.enroll(t, group.ID, member.ID)
	subject := model.SubjectRef{Kind: model.SubjectGroup, ID: group.ID}

	t.Run("unknown participant rolls the pass back", func(t *testing.T) {
		sess := env.addSession(t, subject, 1, time.Now(), model.SessionStatusPending)
		env.addAttendanceRows(t, sess.ID, member.ID)

		_, _, err := env.lifecycle.MarkGroupAttendance(context.Background(), sess.ID,
			[]model.ParticipantMark{
				{StudentID: member.ID, Attendance: model.AttendancePresent},
				{StudentID: outsider.ID, Attendance: model.AttendancePresent},
			})
		if !errors.Is(err, ErrUnknownParticipant) {
			t.Fatalf("err = %v, want ErrUnknownParticipant", err)
		}
		if !strings.Contains(err.Error(), "student") {
			t.Errorf("error %q does not name the participant", err)
		}
		// The valid mark in the same pass must not stick
		if got := env.student(t, member.ID); got.CompletedSessions != 0 || got.RemainingSessions != 5 {
			t.Errorf("counters = (%d, %d) after rollback, want (0, 5)", got.CompletedSessions, got.RemainingSessions)
		}
		records, _ := (memAttendance{env.state}).ListBySession(context.Background(), sess.ID)
		if records[0].Attendance != "" {
			t.Error("mark persisted despite rollback")
		}
	})

	t.Run("cancelled session rejects the pass", func(t *testing.T) {
		sess := env.addSession(t, subject, 2, time.Now(), model.SessionStatusCancelledByTeacher)
		env.addAttendanceRows(t, sess.ID, member.ID)

		_, _, err := env.lifecycle.MarkGroupAttendance(context.Background(), sess.ID,
			[]model.ParticipantMark{{StudentID: member.ID, Attendance: model.AttendancePresent}})
		if !errors.Is(err, ErrInvalidStateTransition) {
			t.Errorf("err = %v, want ErrInvalidStateTransition", err)
		}
	})

	t.Run("private session rejected", func(t *testing.T) {
		sess := env.addSession(t, model.SubjectRef{Kind: model.SubjectStudent, ID: member.ID}, 1, time.Now(), model.SessionStatusPending)
		_, _, err := env.lifecycle.MarkGroupAttendance(context.Background(), sess.ID,
			[]model.ParticipantMark{{StudentID: member.ID, Attendance: model.AttendancePresent}})
		if !errors.Is(err, ErrNotGroupSession) {
			t.Errorf("err = %v, want ErrNotGroupSession", err)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		_, _, err := env.lifecycle.MarkGroupAttendance(context.Background(), uuid.New(), nil)
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})
}
