package marketplace

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadmarket/internal/domain/allocation"
	"leadmarket/internal/domain/credit"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"
	"leadmarket/internal/pkg/response"
	"leadmarket/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the provider marketplace. The group is expected to
// carry auth middleware that sets provider_id.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/marketplace/leads", h.AvailableLeads)
	rg.POST("/marketplace/leads/:id/unlock", h.Unlock)
	rg.GET("/marketplace/leads/:id/allocation", h.AllocationStatus)

	rg.GET("/assignments", h.Assignments)
	rg.PATCH("/assignments/:id", h.Progress)

	rg.GET("/credits", h.Balance)
	rg.POST("/credits/topup", h.TopUp)
	rg.GET("/credits/transactions", h.Transactions)
}

func (h *Handler) AvailableLeads(c *gin.Context) {
	providerID, ok := providerID(c)
	if !ok {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
		return
	}

	var filters ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters")
		return
	}

	leads, err := h.service.AvailableLeads(c.Request.Context(), providerID, filters)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotFound) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list leads")
		return
	}
	response.Success(c, http.StatusOK, leads)
}

func (h *Handler) Unlock(c *gin.Context) {
	providerID, ok := providerID(c)
	if !ok {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid lead id")
		return
	}

	res, err := h.service.Unlock(c.Request.Context(), leadID, providerID)
	if err != nil {
		writeUnlockError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// writeUnlockError maps the typed unlock refusal onto HTTP. The reason set is
// closed; anything else is an internal failure.
func writeUnlockError(c *gin.Context, err error) {
	var refusal *allocation.UnlockError
	if errors.As(err, &refusal) {
		switch refusal.Reason {
		case allocation.ReasonInsufficientCredits:
			response.ErrorWithDetails(c, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS", refusal.Message, gin.H{
				"required":  refusal.Required,
				"available": refusal.Available,
			})
		case allocation.ReasonNotAvailable:
			response.Error(c, http.StatusConflict, "LEAD_NOT_AVAILABLE", refusal.Message)
		case allocation.ReasonNotEligible:
			response.Error(c, http.StatusForbidden, "NOT_ELIGIBLE", refusal.Message)
		default:
			response.Error(c, http.StatusConflict, "TRY_AGAIN", refusal.Message)
		}
		return
	}

	switch {
	case errors.Is(err, lead.ErrLeadNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Lead not found")
	case errors.Is(err, provider.ErrProviderNotFound):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to unlock lead")
	}
}

func (h *Handler) AllocationStatus(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid lead id")
		return
	}

	status, err := h.service.AllocationStatus(c.Request.Context(), leadID)
	if err != nil {
		if errors.Is(err, lead.ErrLeadNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Lead not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch allocation status")
		return
	}
	response.Success(c, http.StatusOK, status)
}

func (h *Handler) Assignments(c *gin.Context) {
	providerID, ok := providerID(c)
	if !ok {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.service.Assignments(c.Request.Context(), providerID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list assignments")
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Progress(c *gin.Context) {
	providerID, ok := providerID(c)
	if !ok {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
		return
	}
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid assignment id")
		return
	}

	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid status", fields)
		return
	}

	asg, err := h.service.Progress(c.Request.Context(), assignmentID, providerID, allocation.AssignmentStatus(req.Status))
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, asg)
	case errors.Is(err, allocation.ErrAssignmentNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Assignment not found")
	case errors.Is(err, allocation.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Assignment cannot move to that status")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update assignment")
	}
}

func (h *Handler) Balance(c *gin.Context) {
	providerID, ok := providerID(c)
	if !ok {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
		return
	}

	balance, err := h.service.Balance(c.Request.Context(), providerID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch balance")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"balance": balance})
}

func (h *Handler) TopUp(c *gin.Context) {
	providerID, ok := providerID(c)
	if !ok {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid amount", fields)
		return
	}

	balance, err := h.service.TopUp(c.Request.Context(), providerID, req.Amount)
	if err != nil {
		if errors.Is(err, credit.ErrInvalidAmount) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Amount must be positive")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to top up")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"balance": balance})
}

func (h *Handler) Transactions(c *gin.Context) {
	providerID, ok := providerID(c)
	if !ok {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.service.Transactions(c.Request.Context(), providerID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list transactions")
		return
	}
	response.Success(c, http.StatusOK, out)
}

func providerID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("provider_id")
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
