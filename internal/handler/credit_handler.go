package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tutoria/tutoria-backend/internal/model"
	"github.com/tutoria/tutoria-backend/internal/response"
	"github.com/tutoria/tutoria-backend/internal/service"
	"github.com/tutoria/tutoria-backend/internal/validator"
)

// CreditHandler handles makeup credit ledger endpoints.
type CreditHandler struct {
	ledgerService *service.LedgerService
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(ledgerService *service.LedgerService) *CreditHandler {
	return &CreditHandler{ledgerService: ledgerService}
}

// GrantCredit godoc
// POST /api/v1/credits
// Manually grants a makeup credit to a student.
func (h *CreditHandler) GrantCredit(c *gin.Context) {
	var req model.GrantCreditRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	credit, err := h.ledgerService.Grant(c.Request.Context(), req.StudentID, nil, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrSubjectNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"credit": credit})
}

// GetCredit godoc
// GET /api/v1/credits/:id
// Returns one makeup credit.
func (h *CreditHandler) GetCredit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	credit, err := h.ledgerService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCreditNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrCreditNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"credit": credit})
}

// RedeemCredit godoc
// POST /api/v1/credits/:id/redeem
// Consumes an AVAILABLE credit. Concurrent redemptions settle to exactly one
// winner.
func (h *CreditHandler) RedeemCredit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	credit, err := h.ledgerService.Redeem(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCreditNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrCreditNotFound)
		case errors.Is(err, service.ErrCreditAlreadyUsed):
			response.Fail(c, http.StatusConflict, response.ErrCreditAlreadyUsed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"credit": credit})
}

// ListStudentCredits godoc
// GET /api/v1/students/:id/credits
// Lists a student's makeup credits. The status filter defaults to AVAILABLE;
// ALL returns the full ledger.
func (h *CreditHandler) ListStudentCredits(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var status *model.CreditStatus
	switch raw := c.DefaultQuery("status", string(model.CreditStatusAvailable)); raw {
	case "ALL":
		// no filter
	case string(model.CreditStatusAvailable), string(model.CreditStatusUsed):
		st := model.CreditStatus(raw)
		status = &st
	default:
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	credits, err := h.ledgerService.ListByStudent(c.Request.Context(), studentID, status)
	if err != nil {
		if errors.Is(err, service.ErrSubjectNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"credits": credits})
}
