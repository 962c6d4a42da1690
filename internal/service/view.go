package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/timezone"
)

// renderSessionView renders a session for one recipient. An empty zone falls
// back to the canonical zone; an unknown zone is rendered canonically rather
// than failing a read path over stored data.
func renderSessionView(tz *timezone.Normalizer, s *model.Session, zone string) model.SessionView {
	if zone == "" {
		zone = tz.Zone()
	}
	view := model.SessionView{
		SessionID:     s.ID,
		SessionType:   s.Type,
		SessionNumber: s.SessionNumber,
		Status:        s.Status,
		MeetingLink:   s.MeetingLink,
		CanonicalDate: s.SessionDate.Format(timezone.DateLayout),
		CanonicalTime: s.SessionTime,
		Timezone:      zone,
	}
	disp, err := tz.ToDisplay(s.StartsAt, zone)
	if err != nil {
		view.Timezone = tz.Zone()
		disp, _ = tz.ToDisplay(s.StartsAt, view.Timezone)
	}
	view.LocalDate = disp.Date
	view.LocalTime = disp.Time
	view.DayOfWeek = disp.DayOfWeek
	return view
}

// renderSessionViews renders a batch preserving its order.
func renderSessionViews(tz *timezone.Normalizer, sessions []model.Session, zone string) []model.SessionView {
	views := make([]model.SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, renderSessionView(tz, &sessions[i], zone))
	}
	return views
}

// firstZone returns the first non-empty zone name.
func firstZone(zones ...string) string {
	for _, z := range zones {
		if z != "" {
			return z
		}
	}
	return ""
}

// subjectRecipients resolves the students to notify about a subject's
// sessions plus the zone fallback for members without their own. A private
// subject notifies its one student; a group notifies every active member.
func subjectRecipients(ctx context.Context, students StudentStore, groups GroupStore, subject model.SubjectRef) ([]model.Student, string, error) {
	switch subject.Kind {
	case model.SubjectStudent:
		student, err := students.GetByID(ctx, subject.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, "", ErrSubjectNotFound
			}
			return nil, "", err
		}
		return []model.Student{*student}, "", nil
	case model.SubjectGroup:
		group, err := groups.GetByID(ctx, subject.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, "", ErrSubjectNotFound
			}
			return nil, "", err
		}
		members, err := groups.ListActiveMembers(ctx, subject.ID)
		if err != nil {
			return nil, group.Timezone, err
		}
		return members, group.Timezone, nil
	}
	return nil, "", ErrSubjectNotFound
}
