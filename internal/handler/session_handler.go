package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/response"
	"github.com/tutoria/tutoria-backend/internal/service"
	"github.com/tutoria/tutoria-backend/internal/timezone"
	"github.com/tutoria/tutoria-backend/internal/validator"
)

// SessionHandler handles session scheduling, lifecycle and agenda endpoints.
type SessionHandler struct {
	schedulingService *service.SchedulingService
	lifecycleService  *service.LifecycleService
	agendaService     *service.AgendaService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	schedulingService *service.SchedulingService,
	lifecycleService *service.LifecycleService,
	agendaService *service.AgendaService,
) *SessionHandler {
	return &SessionHandler{
		schedulingService: schedulingService,
		lifecycleService:  lifecycleService,
		agendaService:     agendaService,
	}
}

// ScheduleSessions godoc
// POST /api/v1/sessions
// Creates a batch of sessions for one student or group. All slots commit
// together or not at all.
func (h *SessionHandler) ScheduleSessions(c *gin.Context) {
	var req model.ScheduleSessionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sessions, err := h.schedulingService.Schedule(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, timezone.ErrInvalidTimeInput):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidTime)
		case errors.Is(err, service.ErrSubjectNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSubjectNotFound)
		case errors.Is(err, service.ErrSubjectInactive):
			response.Fail(c, http.StatusConflict, response.ErrSubjectInactive)
		case errors.Is(err, service.ErrInsufficientSessionBalance):
			response.Fail(c, http.StatusConflict, response.ErrInsufficientBalance)
		case errors.Is(err, service.ErrGroupEmpty):
			response.Fail(c, http.StatusConflict, response.ErrGroupEmpty)
		case errors.Is(err, service.ErrCreditNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrCreditNotFound)
		case errors.Is(err, service.ErrCreditAlreadyUsed):
			response.Fail(c, http.StatusConflict, response.ErrCreditAlreadyUsed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"sessions": sessions})
}

// ListSessions godoc
// GET /api/v1/sessions
// Lists sessions with optional subject, status and canonical date range
// filters, paginated.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	subject, ok := subjectFilter(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var status *model.SessionStatus
	if raw := c.Query("status"); raw != "" {
		st := model.SessionStatus(raw)
		if !st.IsTerminal() && st != model.SessionStatusPending && st != model.SessionStatusScheduled {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		status = &st
	}

	from, ok := dateFilter(c, "from")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidTime)
		return
	}
	to, ok := dateFilter(c, "to")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidTime)
		return
	}

	sessions, pagination, err := h.schedulingService.List(c.Request.Context(), subject, status, from, to, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions}, pagination)
}

// GetSession godoc
// GET /api/v1/sessions/:id
// Returns one session; group sessions include their attendance records.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.schedulingService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if sess.Type == model.SessionTypeGroup {
		records, err := h.schedulingService.Attendance(c.Request.Context(), id)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"session": sess, "attendance": records})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// DeleteSession godoc
// DELETE /api/v1/sessions/:id
// Removes a session that has not run yet. Completed sessions are history and
// cannot be deleted.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.schedulingService.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		case errors.Is(err, service.ErrInvalidStateTransition):
			response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "session deleted successfully"})
}

// MarkPresent godoc
// POST /api/v1/sessions/:id/present
// Completes a private session: attendance PRESENT, counters advanced.
func (h *SessionHandler) MarkPresent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.lifecycleService.MarkPresent(c.Request.Context(), id)
	if err != nil {
		h.failLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// MarkAbsent godoc
// POST /api/v1/sessions/:id/absent
// Marks a private session missed: one makeup credit is granted, the balance
// stays untouched. The body is optional and may carry a reason.
func (h *SessionHandler) MarkAbsent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.MarkAbsentRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	sess, err := h.lifecycleService.MarkAbsent(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.failLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// CancelSession godoc
// POST /api/v1/sessions/:id/cancel
// Cancels a session on behalf of the parent or the teacher. Parent
// cancellations are rejected inside the lead-time window.
func (h *SessionHandler) CancelSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CancelSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.lifecycleService.Cancel(c.Request.Context(), id, req.Actor, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrCancellationWindowClosed) {
			response.Fail(c, http.StatusConflict, response.ErrCancelWindow)
			return
		}
		h.failLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// MarkAttendance godoc
// POST /api/v1/sessions/:id/attendance
// Records a group session's attendance pass. Completes the session on the
// first pass; later passes correct marks with idempotent counter deltas.
func (h *SessionHandler) MarkAttendance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.MarkGroupAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, records, err := h.lifecycleService.MarkGroupAttendance(c.Request.Context(), id, req.Marks)
	if err != nil {
		if errors.Is(err, service.ErrUnknownParticipant) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"marks": err.Error()})
			return
		}
		h.failLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess, "attendance": records})
}

// GetAgenda godoc
// GET /api/v1/agenda
// Returns one subject's sessions on one canonical date, rendered in the
// subject's timezone.
func (h *SessionHandler) GetAgenda(c *gin.Context) {
	subject, ok := subjectFilter(c)
	if !ok || subject == nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	views, err := h.agendaService.Agenda(c.Request.Context(), *subject, c.Query("date"))
	if err != nil {
		switch {
		case errors.Is(err, timezone.ErrInvalidTimeInput):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidTime)
		case errors.Is(err, service.ErrSubjectNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSubjectNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"agenda": views})
}

// failLifecycle maps the lifecycle errors shared by the mark and cancel
// endpoints.
func (h *SessionHandler) failLifecycle(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrNotPrivateSession), errors.Is(err, service.ErrNotGroupSession):
		response.Fail(c, http.StatusConflict, response.ErrWrongSessionType)
	case errors.Is(err, service.ErrInvalidStateTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// subjectFilter parses the subject_kind/subject_id query pair. Both must be
// present together; ok is false when the pair is malformed or half given.
func subjectFilter(c *gin.Context) (*model.SubjectRef, bool) {
	kindRaw := c.Query("subject_kind")
	idRaw := c.Query("subject_id")
	if kindRaw == "" && idRaw == "" {
		return nil, true
	}
	if kindRaw == "" || idRaw == "" {
		return nil, false
	}

	kind := model.SubjectKind(kindRaw)
	if kind != model.SubjectStudent && kind != model.SubjectGroup {
		return nil, false
	}
	id, err := strconv.Atoi(idRaw)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &model.SubjectRef{Kind: kind, ID: id}, true
}

// dateFilter parses an optional canonical date query parameter.
func dateFilter(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	day, err := time.Parse(timezone.DateLayout, raw)
	if err != nil {
		return nil, false
	}
	return &day, true
}
