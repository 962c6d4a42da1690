package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/timezone"
)

func TestAgendaRendersInSubjectZone(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "fay", "America/New_York", 5)
	subject := model.SubjectRef{Kind: model.SubjectStudent, ID: student.ID}

	// 18:00 canonical on 2027-01-19 is 11:00 UTC, 06:00 in New York
	env.addSession(t, subject, 1, time.Date(2027, 1, 19, 11, 0, 0, 0, time.UTC), model.SessionStatusScheduled)

	views, err := env.agenda.Agenda(context.Background(), subject, "2027-01-19")
	if err != nil {
		t.Fatalf("Agenda: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("agenda has %d entries, want 1", len(views))
	}
	v := views[0]
	if v.Timezone != "America/New_York" {
		t.Errorf("timezone = %q, want America/New_York", v.Timezone)
	}
	if v.LocalDate != "2027-01-19" || v.LocalTime != "06:00" || v.DayOfWeek != "Tuesday" {
		t.Errorf("local rendering = %s %s %s, want Tuesday 2027-01-19 06:00", v.DayOfWeek, v.LocalDate, v.LocalTime)
	}
	if v.CanonicalDate != "2027-01-19" || v.CanonicalTime != "18:00" {
		t.Errorf("canonical rendering = %s %s, want 2027-01-19 18:00", v.CanonicalDate, v.CanonicalTime)
	}
}

func TestAgendaCrossesDateWestward(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "gus", "America/New_York", 5)
	subject := model.SubjectRef{Kind: model.SubjectStudent, ID: student.ID}

	// 08:00 canonical on 2027-01-19 is still the previous evening in New
	// York; the agenda day stays the canonical one
	env.addSession(t, subject, 1, time.Date(2027, 1, 19, 1, 0, 0, 0, time.UTC), model.SessionStatusPending)

	views, err := env.agenda.Agenda(context.Background(), subject, "2027-01-19")
	if err != nil {
		t.Fatalf("Agenda: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("agenda has %d entries, want 1", len(views))
	}
	v := views[0]
	if v.LocalDate != "2027-01-18" || v.LocalTime != "20:00" || v.DayOfWeek != "Monday" {
		t.Errorf("local rendering = %s %s %s, want Monday 2027-01-18 20:00", v.DayOfWeek, v.LocalDate, v.LocalTime)
	}
	if v.CanonicalDate != "2027-01-19" {
		t.Errorf("canonical date = %s, want 2027-01-19", v.CanonicalDate)
	}
}

func TestAgendaOrdersAndFiltersByDay(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "hue", "", 5)
	subject := model.SubjectRef{Kind: model.SubjectStudent, ID: student.ID}

	late := env.addSession(t, subject, 1, time.Date(2027, 1, 19, 11, 0, 0, 0, time.UTC), model.SessionStatusPending)
	early := env.addSession(t, subject, 2, time.Date(2027, 1, 19, 2, 0, 0, 0, time.UTC), model.SessionStatusPending)
	env.addSession(t, subject, 3, time.Date(2027, 1, 20, 11, 0, 0, 0, time.UTC), model.SessionStatusPending)

	views, err := env.agenda.Agenda(context.Background(), subject, "2027-01-19")
	if err != nil {
		t.Fatalf("Agenda: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("agenda has %d entries, want 2", len(views))
	}
	if views[0].SessionID != early.ID || views[1].SessionID != late.ID {
		t.Error("agenda not ordered earliest first")
	}
	// No zone on the student: rendered canonically
	if views[0].Timezone != testCanonicalZone {
		t.Errorf("timezone = %q, want canonical %q", views[0].Timezone, testCanonicalZone)
	}
}

func TestAgendaGroupUsesGroupZone(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	group := env.addGroup(t, "physics", "Europe/London", 5)
	subject := model.SubjectRef{Kind: model.SubjectGroup, ID: group.ID}

	env.addSession(t, subject, 1, time.Date(2027, 1, 19, 11, 0, 0, 0, time.UTC), model.SessionStatusPending)

	views, err := env.agenda.Agenda(context.Background(), subject, "2027-01-19")
	if err != nil {
		t.Fatalf("Agenda: %v", err)
	}
	if len(views) != 1 || views[0].Timezone != "Europe/London" {
		t.Errorf("views = %+v, want one entry in Europe/London", views)
	}
	if views[0].LocalTime != "11:00" {
		t.Errorf("local time = %s, want 11:00 (GMT in January)", views[0].LocalTime)
	}
}

func TestAgendaRejections(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "ian", "", 5)

	t.Run("malformed date", func(t *testing.T) {
		_, err := env.agenda.Agenda(context.Background(),
			model.SubjectRef{Kind: model.SubjectStudent, ID: student.ID}, "19-01-2027")
		if !errors.Is(err, timezone.ErrInvalidTimeInput) {
			t.Errorf("err = %v, want ErrInvalidTimeInput", err)
		}
	})

	t.Run("unknown subject", func(t *testing.T) {
		_, err := env.agenda.Agenda(context.Background(),
			model.SubjectRef{Kind: model.SubjectStudent, ID: 999}, "2027-01-19")
		if !errors.Is(err, ErrSubjectNotFound) {
			t.Errorf("err = %v, want ErrSubjectNotFound", err)
		}
	})
}
