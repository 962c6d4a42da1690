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

// GroupService handles groups and enrollment management.
type GroupService struct {
	groups   GroupStore
	students StudentStore
	tz       *timezone.Normalizer
	log      zerolog.Logger
}

// NewGroupService creates a new GroupService.
func NewGroupService(groups GroupStore, students StudentStore, tz *timezone.Normalizer, log zerolog.Logger) *GroupService {
	return &GroupService{
		groups:   groups,
		students: students,
		tz:       tz,
		log:      log.With().Str("component", "group_service").Logger(),
	}
}

// Create registers a group. The group timezone is the display fallback for
// members without their own.
func (s *GroupService) Create(ctx context.Context, req *model.CreateGroupRequest) (*model.Group, error) {
	if req.Timezone != "" {
		if err := s.tz.ValidateZone(req.Timezone); err != nil {
			return nil, err
		}
	}

	group := &model.Group{
		Name:              req.Name,
		Timezone:          req.Timezone,
		TotalSessions:     req.TotalSessions,
		RemainingSessions: req.TotalSessions,
		Active:            true,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}

	s.log.Info().Int("group_id", group.ID).Msg("Group created")
	return group, nil
}

// Get retrieves a group by ID.
func (s *GroupService) Get(ctx context.Context, id int) (*model.Group, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return group, nil
}

// List retrieves groups, paginated, ordered by name.
func (s *GroupService) List(ctx context.Context, page, perPage int) ([]model.Group, *response.Pagination, error) {
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

	groups, total, err := s.groups.ListPaginated(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if groups == nil {
		groups = []model.Group{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
	return groups, pagination, nil
}

// Members returns the group's active members.
func (s *GroupService) Members(ctx context.Context, groupID int) ([]model.Student, error) {
	if _, err := s.Get(ctx, groupID); err != nil {
		return nil, err
	}
	members, err := s.groups.ListActiveMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []model.Student{}
	}
	return members, nil
}

// AddMember enrolls a student. Enrollment only affects sessions scheduled
// from now on; past sessions keep their record set.
func (s *GroupService) AddMember(ctx context.Context, groupID, studentID int) error {
	if _, err := s.Get(ctx, groupID); err != nil {
		return err
	}
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSubjectNotFound
		}
		return err
	}
	if !student.Active {
		return ErrSubjectInactive
	}

	if err := s.groups.AddMember(ctx, groupID, studentID); err != nil {
		return err
	}
	s.log.Info().Int("group_id", groupID).Int("student_id", studentID).Msg("Group member added")
	return nil
}

// RemoveMember deactivates an enrollment. Past attendance records survive.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, studentID int) error {
	if _, err := s.Get(ctx, groupID); err != nil {
		return err
	}
	if err := s.groups.RemoveMember(ctx, groupID, studentID); err != nil {
		return err
	}
	s.log.Info().Int("group_id", groupID).Int("student_id", studentID).Msg("Group member removed")
	return nil
}
