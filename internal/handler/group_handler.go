package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/response"
	"github.com/tutoria/tutoria-backend/internal/service"
	"github.com/tutoria/tutoria-backend/internal/timezone"
	"github.com/tutoria/tutoria-backend/internal/validator"
)

// GroupHandler handles group and enrollment endpoints.
type GroupHandler struct {
	groupService *service.GroupService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroup godoc
// POST /api/v1/groups
// Creates a tutoring group with its own timezone and session counters.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req model.CreateGroupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	group, err := h.groupService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, timezone.ErrInvalidTimeInput) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidTime)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"group": group})
}

// GetGroup godoc
// GET /api/v1/groups/:id
// Returns a group with its session counters.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	group, err := h.groupService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSubjectNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"group": group})
}

// ListGroups godoc
// GET /api/v1/groups
// Lists groups with pagination.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	groups, pagination, err := h.groupService.List(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"groups": groups}, pagination)
}

// ListMembers godoc
// GET /api/v1/groups/:id/members
// Lists the group's actively enrolled students.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	members, err := h.groupService.Members(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSubjectNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"members": members})
}

// AddMember godoc
// POST /api/v1/groups/:id/members
// Enrolls a student into the group. Fan-out covers only sessions scheduled
// after the enrollment.
func (h *GroupHandler) AddMember(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddGroupMemberRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.groupService.AddMember(c.Request.Context(), id, req.StudentID); err != nil {
		switch {
		case errors.Is(err, service.ErrSubjectNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrSubjectInactive):
			response.Fail(c, http.StatusConflict, response.ErrSubjectInactive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student enrolled successfully"})
}

// RemoveMember godoc
// DELETE /api/v1/groups/:id/members/:student_id
// Deactivates an enrollment. Past attendance records are kept.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.groupService.RemoveMember(c.Request.Context(), id, studentID); err != nil {
		if errors.Is(err, service.ErrSubjectNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student unenrolled successfully"})
}
