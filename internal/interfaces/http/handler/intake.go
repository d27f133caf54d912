package handler

import (
	"github.com/gin-gonic/gin"
	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// IntakeHandler handles admission of sales and runs into settlement
type IntakeHandler struct {
	BaseHandler
	intakeService *appsettlement.IntakeService
	runRepo       settlement.RunRepository
}

// NewIntakeHandler creates a new IntakeHandler
func NewIntakeHandler(intakeService *appsettlement.IntakeService, runRepo settlement.RunRepository) *IntakeHandler {
	return &IntakeHandler{intakeService: intakeService, runRepo: runRepo}
}

// CreateReceivableRequest admits a sale into settlement. The charge is
// resolved server side from the sale's recorded sources, never taken from
// the request.
type CreateReceivableRequest struct {
	SaleID       string `json:"sale_id" binding:"required,uuid"`
	SaleNumber   string `json:"sale_number" binding:"required,min=1,max=50"`
	CustomerID   string `json:"customer_id" binding:"required,uuid"`
	CustomerName string `json:"customer_name" binding:"required,min=1,max=200"`
	AgentID      string `json:"agent_id" binding:"required,uuid"`
	RunID        string `json:"run_id" binding:"omitempty,uuid"`
}

// RecordCollectionRequest records cash the agent reports collected
type RecordCollectionRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// CreateRunRequest opens a draft delivery run
type CreateRunRequest struct {
	RunNumber string `json:"run_number" binding:"required,min=1,max=50"`
	AgentID   string `json:"agent_id" binding:"required,uuid"`
}

// CreateReceivable resolves the sale's charge and opens a receivable
func (h *IntakeHandler) CreateReceivable(c *gin.Context) {
	var req CreateReceivableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	saleID, ok := parseUUID(req.SaleID)
	if !ok {
		h.BadRequest(c, "Invalid sale ID")
		return
	}
	customerID, ok := parseUUID(req.CustomerID)
	if !ok {
		h.BadRequest(c, "Invalid customer ID")
		return
	}
	agentID, ok := parseUUID(req.AgentID)
	if !ok {
		h.BadRequest(c, "Invalid agent ID")
		return
	}

	intake := appsettlement.IntakeRequest{
		SaleID:       saleID,
		SaleNumber:   req.SaleNumber,
		CustomerID:   customerID,
		CustomerName: req.CustomerName,
		AgentID:      agentID,
	}
	if req.RunID != "" {
		runID, ok := parseUUID(req.RunID)
		if !ok {
			h.BadRequest(c, "Invalid run ID")
			return
		}
		intake.RunID = &runID
	}

	result, err := h.intakeService.CreateReceivable(c.Request.Context(), intake)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// RecordCollection records field-collected cash against a receivable
func (h *IntakeHandler) RecordCollection(c *gin.Context) {
	receivableID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid receivable ID")
		return
	}

	var req RecordCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	receivable, err := h.intakeService.RecordCollection(c.Request.Context(), receivableID, decimal.NewFromFloat(req.Amount))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receivable)
}

// CreateRun opens a draft delivery run
func (h *IntakeHandler) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	agentID, ok := parseUUID(req.AgentID)
	if !ok {
		h.BadRequest(c, "Invalid agent ID")
		return
	}

	run, err := h.intakeService.CreateRun(c.Request.Context(), req.RunNumber, agentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, run)
}

// DispatchRun sends a draft run out for collection
func (h *IntakeHandler) DispatchRun(c *gin.Context) {
	runID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.intakeService.DispatchRun(c.Request.Context(), runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, run)
}

// CloseRun marks the agent as returned
func (h *IntakeHandler) CloseRun(c *gin.Context) {
	runID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.intakeService.CloseRun(c.Request.Context(), runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, run)
}

// CancelRun abandons a draft or dispatched run
func (h *IntakeHandler) CancelRun(c *gin.Context) {
	runID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.intakeService.CancelRun(c.Request.Context(), runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, run)
}

// GetRun returns one run
func (h *IntakeHandler) GetRun(c *gin.Context) {
	runID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.runRepo.FindByID(c.Request.Context(), runID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if run == nil {
		h.NotFound(c, "Run not found")
		return
	}

	h.Success(c, run)
}

// RegisterRoutes registers intake routes
func (h *IntakeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	receivables := rg.Group("/receivables")
	{
		receivables.POST("", h.CreateReceivable)
		receivables.POST("/:id/collection", h.RecordCollection)
	}
	runs := rg.Group("/runs")
	{
		runs.POST("", h.CreateRun)
		runs.GET("/:id", h.GetRun)
		runs.POST("/:id/dispatch", h.DispatchRun)
		runs.POST("/:id/close", h.CloseRun)
		runs.POST("/:id/cancel", h.CancelRun)
	}
}
