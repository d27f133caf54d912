package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// RemitHandler handles agent cash turn-in endpoints
type RemitHandler struct {
	BaseHandler
	remitService *appsettlement.RemitService
}

// NewRemitHandler creates a new RemitHandler
func NewRemitHandler(remitService *appsettlement.RemitService) *RemitHandler {
	return &RemitHandler{remitService: remitService}
}

// RemitLineRequest is one receivable and the cash turned in for it
type RemitLineRequest struct {
	ReceivableID string  `json:"receivable_id" binding:"required,uuid"`
	Amount       float64 `json:"amount" binding:"required,gt=0"`
}

// RemitRequest represents an agent turning in collected cash
type RemitRequest struct {
	OperatorToken string             `json:"operator_token" binding:"required,min=1,max=100"`
	Reference     string             `json:"reference" binding:"max=100"`
	Lines         []RemitLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReleaseLocksRequest releases remit locks held by a session token
type ReleaseLocksRequest struct {
	OperatorToken string   `json:"operator_token" binding:"required,min=1,max=100"`
	ReceivableIDs []string `json:"receivable_ids" binding:"required,min=1,dive,uuid"`
}

// Remit applies an agent's cash turn-in under the session's remit locks
func (h *RemitHandler) Remit(c *gin.Context) {
	var req RemitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	lines := make([]appsettlement.RemitLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		receivableID, err := uuid.Parse(line.ReceivableID)
		if err != nil {
			h.BadRequest(c, "Invalid receivable ID in lines")
			return
		}
		lines = append(lines, appsettlement.RemitLine{
			ReceivableID: receivableID,
			Amount:       decimal.NewFromFloat(line.Amount),
		})
	}

	result, err := h.remitService.Remit(c.Request.Context(), appsettlement.RemitRequest{
		OperatorToken: req.OperatorToken,
		Lines:         lines,
		Reference:     req.Reference,
		OperatorID:    getOperatorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ReleaseLocks releases remit locks held by the session token
func (h *RemitHandler) ReleaseLocks(c *gin.Context) {
	var req ReleaseLocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ReceivableIDs))
	for _, raw := range req.ReceivableIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid receivable ID")
			return
		}
		ids = append(ids, id)
	}

	if err := h.remitService.ReleaseLocks(c.Request.Context(), req.OperatorToken, ids); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers remit routes
func (h *RemitHandler) RegisterRoutes(rg *gin.RouterGroup) {
	remits := rg.Group("/remits")
	{
		remits.POST("", h.Remit)
		remits.POST("/release", h.ReleaseLocks)
	}
}
