package intake

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadmarket/internal/domain/lead"
	"leadmarket/internal/pkg/response"
	"leadmarket/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.SubmitLead)
	rg.GET("/leads/:id", h.GetLead)
}

func (h *Handler) SubmitLead(c *gin.Context) {
	clientID, ok := callerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing account identity")
		return
	}

	var req SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid lead fields", fields)
		return
	}

	l, err := h.service.Submit(c.Request.Context(), clientID, &req)
	if err != nil {
		if errors.Is(err, lead.ErrInvalidCategory) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown category")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit lead")
		return
	}

	response.Success(c, http.StatusCreated, SubmitLeadResponse{
		LeadID:          l.ID.String(),
		Status:          l.Status,
		QualityScore:    l.QualityScore,
		RejectionReason: l.RejectionReason,
		AssignedCount:   l.AssignedCount,
	})
}

func (h *Handler) GetLead(c *gin.Context) {
	clientID, ok := callerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing account identity")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid lead id")
		return
	}

	l, err := h.service.GetForClient(c.Request.Context(), id, clientID)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, l)
	case errors.Is(err, lead.ErrLeadNotFound), errors.Is(err, lead.ErrNotOwner):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Lead not found")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch lead")
	}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("account_id")
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
