package handler

import (
	"github.com/gin-gonic/gin"
	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// RunHandler handles delivery run settlement endpoints
type RunHandler struct {
	BaseHandler
	runSettlementService *appsettlement.RunSettlementService
}

// NewRunHandler creates a new RunHandler
func NewRunHandler(runSettlementService *appsettlement.RunSettlementService) *RunHandler {
	return &RunHandler{runSettlementService: runSettlementService}
}

// PostBridgeRequest posts a non-cash bridge settlement against a receivable.
// A zero amount bridges as much as the reconciliation allows.
type PostBridgeRequest struct {
	ReceivableID string  `json:"receivable_id" binding:"required,uuid"`
	Amount       float64 `json:"amount" binding:"omitempty,gte=0"`
	Reference    string  `json:"reference" binding:"required,min=1,max=100"`
}

// Recompute re-runs the reconciliation for a run
func (h *RunHandler) Recompute(c *gin.Context) {
	runID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	recon, err := h.runSettlementService.RecomputeRun(c.Request.Context(), runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, recon)
}

// Reconciliation reports the run's reconciliation without mutating it
func (h *RunHandler) Reconciliation(c *gin.Context) {
	runID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	recon, err := h.runSettlementService.GetRunReconciliation(c.Request.Context(), runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, recon)
}

// PostBridge posts a non-cash bridge settlement against one receivable
func (h *RunHandler) PostBridge(c *gin.Context) {
	var req PostBridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	receivableID, ok := parseUUID(req.ReceivableID)
	if !ok {
		h.BadRequest(c, "Invalid receivable ID")
		return
	}

	event, err := h.runSettlementService.PostBridge(c.Request.Context(), receivableID, decimal.NewFromFloat(req.Amount), req.Reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, event)
}

// Finalize settles a run once its reconciliation is clean
func (h *RunHandler) Finalize(c *gin.Context) {
	runID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.runSettlementService.FinalizeSettlement(c.Request.Context(), runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, run)
}

// RegisterRoutes registers run settlement routes
func (h *RunHandler) RegisterRoutes(rg *gin.RouterGroup) {
	runs := rg.Group("/runs")
	{
		runs.POST("/:id/recompute", h.Recompute)
		runs.GET("/:id/reconciliation", h.Reconciliation)
		runs.POST("/:id/finalize", h.Finalize)
	}
	rg.POST("/bridges", h.PostBridge)
}
