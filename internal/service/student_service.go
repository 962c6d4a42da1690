package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/response"
	"github.com/tutoria/tutoria-backend/internal/timezone"
)

// StudentService handles student registration, profiles and session
// balance top-ups.
type StudentService struct {
	students StudentStore
	tz       *timezone.Normalizer
	log      zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(students StudentStore, tz *timezone.Normalizer, log zerolog.Logger) *StudentService {
	return &StudentService{
		students: students,
		tz:       tz,
		log:      log.With().Str("component", "student_service").Logger(),
	}
}

// Create registers a student. The initial package seeds both total and
// remaining counters; an empty timezone means the canonical zone is used
// for display.
func (s *StudentService) Create(ctx context.Context, req *model.CreateStudentRequest) (*model.Student, error) {
	if req.Timezone != "" {
		if err := s.tz.ValidateZone(req.Timezone); err != nil {
			return nil, err
		}
	}

	student := &model.Student{
		FullName:          req.FullName,
		Email:             req.Email,
		Timezone:          req.Timezone,
		TotalSessions:     req.TotalSessions,
		RemainingSessions: req.TotalSessions,
		Active:            true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}

	s.log.Info().Int("student_id", student.ID).Msg("Student created")
	return student, nil
}

// Get retrieves a student by ID.
func (s *StudentService) Get(ctx context.Context, id int) (*model.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return student, nil
}

// Update modifies a student's profile. Counters are not touched here; they
// move only through lifecycle transitions and balance top-ups.
func (s *StudentService) Update(ctx context.Context, id int, req *model.UpdateStudentRequest) (*model.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Timezone != "" {
		if err := s.tz.ValidateZone(req.Timezone); err != nil {
			return nil, err
		}
	}

	student.FullName = req.FullName
	student.Email = req.Email
	student.Timezone = req.Timezone
	student.Active = *req.Active
	if err := s.students.Update(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// List retrieves students, paginated, ordered by name.
func (s *StudentService) List(ctx context.Context, page, perPage int) ([]model.Student, *response.Pagination, error) {
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

	students, total, err := s.students.ListPaginated(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if students == nil {
		students = []model.Student{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
	return students, pagination, nil
}

// AddBalance tops up the purchased package: total and remaining grow by the
// same amount.
func (s *StudentService) AddBalance(ctx context.Context, id, sessions int) (*model.Student, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.students.AddBalance(ctx, id, sessions); err != nil {
		return nil, err
	}

	s.log.Info().Int("student_id", id).Int("sessions", sessions).Msg("Session balance added")
	return s.Get(ctx, id)
}
