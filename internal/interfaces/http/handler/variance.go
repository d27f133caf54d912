package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
)

// VarianceHandler handles cash variance workflow endpoints
type VarianceHandler struct {
	BaseHandler
	varianceService *appsettlement.VarianceService
	varianceRepo    settlement.VarianceRepository
}

// NewVarianceHandler creates a new VarianceHandler
func NewVarianceHandler(varianceService *appsettlement.VarianceService, varianceRepo settlement.VarianceRepository) *VarianceHandler {
	return &VarianceHandler{
		varianceService: varianceService,
		varianceRepo:    varianceRepo,
	}
}

// ApproveVarianceRequest records a manager ruling on a variance
type ApproveVarianceRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=CHARGE_AGENT INFO_ONLY WAIVE"`
	ApproverID string `json:"approver_id" binding:"required,uuid"`
	Notes      string `json:"notes" binding:"max=1000"`
}

// WaiveVarianceRequest writes a variance off
type WaiveVarianceRequest struct {
	ApproverID string `json:"approver_id" binding:"required,uuid"`
	Notes      string `json:"notes" binding:"max=1000"`
}

// Get returns one variance
func (h *VarianceHandler) Get(c *gin.Context) {
	varianceID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid variance ID")
		return
	}

	variance, err := h.varianceRepo.FindByID(c.Request.Context(), varianceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if variance == nil {
		h.NotFound(c, "Variance not found")
		return
	}

	h.Success(c, variance)
}

// ListByRun returns the variances recorded for a run, newest first
func (h *VarianceHandler) ListByRun(c *gin.Context) {
	runID, ok := parseUUID(c.Query("run_id"))
	if !ok {
		h.BadRequest(c, "Invalid or missing run_id")
		return
	}

	variances, err := h.varianceRepo.FindByRun(c.Request.Context(), runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, variances)
}

// Approve records a manager ruling on an open variance
func (h *VarianceHandler) Approve(c *gin.Context) {
	varianceID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid variance ID")
		return
	}

	var req ApproveVarianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	approverID, err := uuid.Parse(req.ApproverID)
	if err != nil {
		h.BadRequest(c, "Invalid approver ID")
		return
	}

	variance, err := h.varianceService.Approve(c.Request.Context(), varianceID,
		settlement.VarianceResolution(req.Resolution), approverID, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, variance)
}

// Accept books the approved charge against the agent
func (h *VarianceHandler) Accept(c *gin.Context) {
	varianceID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid variance ID")
		return
	}

	variance, err := h.varianceService.Accept(c.Request.Context(), varianceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, variance)
}

// Waive writes the variance off without charging anyone
func (h *VarianceHandler) Waive(c *gin.Context) {
	varianceID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid variance ID")
		return
	}

	var req WaiveVarianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	approverID, err := uuid.Parse(req.ApproverID)
	if err != nil {
		h.BadRequest(c, "Invalid approver ID")
		return
	}

	variance, err := h.varianceService.Waive(c.Request.Context(), varianceID, approverID, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, variance)
}

// Close closes a variance whose follow-up is done
func (h *VarianceHandler) Close(c *gin.Context) {
	varianceID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid variance ID")
		return
	}

	variance, err := h.varianceService.Close(c.Request.Context(), varianceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, variance)
}

// RegisterRoutes registers variance routes
func (h *VarianceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	variances := rg.Group("/variances")
	{
		variances.GET("", h.ListByRun)
		variances.GET("/:id", h.Get)
		variances.POST("/:id/approve", h.Approve)
		variances.POST("/:id/accept", h.Accept)
		variances.POST("/:id/waive", h.Waive)
		variances.POST("/:id/close", h.Close)
	}
}
