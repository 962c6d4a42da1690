package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tutoria/tutoria-backend/internal/config"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/timezone"
)

// AgendaCacheTTL bounds how stale a cached agenda can get if an
// invalidation is lost. The cache is a convenience, never a correctness
// dependency.
const AgendaCacheTTL = 10 * time.Minute

// AgendaService renders per-day session agendas in the subject's own
// timezone, cache-aside on Redis.
type AgendaService struct {
	sessions SessionStore
	students StudentStore
	groups   GroupStore
	tz       *timezone.Normalizer
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewAgendaService creates a new AgendaService.
func NewAgendaService(
	sessions SessionStore,
	students StudentStore,
	groups GroupStore,
	tz *timezone.Normalizer,
	rdb *redis.Client,
	log zerolog.Logger,
) *AgendaService {
	return &AgendaService{
		sessions: sessions,
		students: students,
		groups:   groups,
		tz:       tz,
		rdb:      rdb,
		log:      log.With().Str("component", "agenda_service").Logger(),
	}
}

// Agenda returns the subject's sessions on one canonical calendar date,
// earliest first, rendered in the subject's zone.
func (s *AgendaService) Agenda(ctx context.Context, subject model.SubjectRef, date string) ([]model.SessionView, error) {
	day, err := time.Parse(timezone.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", timezone.ErrInvalidTimeInput, date)
	}

	key := config.CacheKey.AgendaKey(string(subject.Kind), subject.ID, date)
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			var views []model.SessionView
			if err := json.Unmarshal([]byte(cached), &views); err == nil {
				return views, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Agenda cache read failed")
		}
	}

	zone, err := s.subjectZone(ctx, subject)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListForAgenda(ctx, subject, day)
	if err != nil {
		return nil, err
	}
	views := renderSessionViews(s.tz, sessions, zone)

	if s.rdb != nil {
		if payload, err := json.Marshal(views); err == nil {
			if err := s.rdb.Set(ctx, key, payload, AgendaCacheTTL).Err(); err != nil {
				s.log.Warn().Err(err).Msg("Agenda cache write failed")
			}
		}
	}
	return views, nil
}

func (s *AgendaService) subjectZone(ctx context.Context, subject model.SubjectRef) (string, error) {
	switch subject.Kind {
	case model.SubjectStudent:
		student, err := s.students.GetByID(ctx, subject.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", ErrSubjectNotFound
			}
			return "", err
		}
		return student.Timezone, nil
	case model.SubjectGroup:
		group, err := s.groups.GetByID(ctx, subject.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", ErrSubjectNotFound
			}
			return "", err
		}
		return group.Timezone, nil
	}
	return "", ErrSubjectNotFound
}

// invalidateAgenda drops the cached agenda for the given (subject, date)
// pairs. Every mutation of a subject's sessions calls this with the
// canonical dates it touched.
func invalidateAgenda(ctx context.Context, rdb *redis.Client, log zerolog.Logger, subject model.SubjectRef, dates ...time.Time) {
	if rdb == nil || len(dates) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(dates))
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		key := config.CacheKey.AgendaKey(string(subject.Kind), subject.ID, d.Format(timezone.DateLayout))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Msg("Agenda cache invalidation failed")
	}
}
