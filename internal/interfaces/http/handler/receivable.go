package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/interfaces/http/dto"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// ReceivableHandler handles receivable query endpoints
type ReceivableHandler struct {
	BaseHandler
	receivableRepo settlement.ReceivableRepository
	eventRepo      settlement.SettlementEventRepository
}

// NewReceivableHandler creates a new ReceivableHandler
func NewReceivableHandler(receivableRepo settlement.ReceivableRepository, eventRepo settlement.SettlementEventRepository) *ReceivableHandler {
	return &ReceivableHandler{
		receivableRepo: receivableRepo,
		eventRepo:      eventRepo,
	}
}

// ListReceivablesRequest represents receivable list query parameters
type ListReceivablesRequest struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	AgentID    string `form:"agent_id" binding:"omitempty,uuid"`
	RunID      string `form:"run_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=OPEN PARTIALLY_SETTLED SETTLED"`
	FromDate   string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate     string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
}

// ReceivableResponse is the API shape of a receivable
type ReceivableResponse struct {
	ID              string          `json:"id"`
	SaleNumber      string          `json:"sale_number"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	AgentID         string          `json:"agent_id"`
	RunID           *string         `json:"run_id,omitempty"`
	FrozenCharge    decimal.Decimal `json:"frozen_charge"`
	CashSettled     decimal.Decimal `json:"cash_settled"`
	BridgeSettled   decimal.Decimal `json:"bridge_settled"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
	CashDue         decimal.Decimal `json:"cash_due"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	Status          string          `json:"status"`
	RemitLocked     bool            `json:"remit_locked"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toReceivableResponse(r *settlement.Receivable) ReceivableResponse {
	resp := ReceivableResponse{
		ID:              r.ID.String(),
		SaleNumber:      r.SaleNumber,
		CustomerID:      r.CustomerID.String(),
		CustomerName:    r.CustomerName,
		AgentID:         r.AgentID.String(),
		FrozenCharge:    r.FrozenCharge,
		CashSettled:     r.CashSettled,
		BridgeSettled:   r.BridgeSettled,
		CollectedAmount: r.CollectedAmount,
		CashDue:         r.CashDue(),
		Outstanding:     r.Outstanding(),
		Status:          string(r.Status),
		RemitLocked:     r.IsRemitLocked(),
		SettledAt:       r.SettledAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.RunID != nil {
		runID := r.RunID.String()
		resp.RunID = &runID
	}
	return resp
}

// List returns receivables matching the query filters
func (h *ReceivableHandler) List(c *gin.Context) {
	req := ListReceivablesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := settlement.ReceivableFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   req.Search,
		},
	}
	if id, ok := parseUUID(req.CustomerID); ok {
		filter.CustomerID = &id
	}
	if id, ok := parseUUID(req.AgentID); ok {
		filter.AgentID = &id
	}
	if id, ok := parseUUID(req.RunID); ok {
		filter.RunID = &id
	}
	if req.Status != "" {
		status := settlement.ReceivableStatus(req.Status)
		filter.Status = &status
	}
	if req.FromDate != "" {
		from, _ := time.Parse("2006-01-02", req.FromDate)
		filter.FromDate = &from
	}
	if req.ToDate != "" {
		to, _ := time.Parse("2006-01-02", req.ToDate)
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.ToDate = &to
	}

	receivables, err := h.receivableRepo.FindAll(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	total, err := h.receivableRepo.Count(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]ReceivableResponse, 0, len(receivables))
	for i := range receivables {
		responses = append(responses, toReceivableResponse(&receivables[i]))
	}

	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// Get returns one receivable
func (h *ReceivableHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid receivable ID")
		return
	}

	receivable, err := h.receivableRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if receivable == nil {
		h.NotFound(c, "Receivable not found")
		return
	}

	h.Success(c, toReceivableResponse(receivable))
}

// Events returns the receivable's settlement ledger, oldest first
func (h *ReceivableHandler) Events(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid receivable ID")
		return
	}

	receivable, err := h.receivableRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if receivable == nil {
		h.NotFound(c, "Receivable not found")
		return
	}

	events, err := h.eventRepo.FindByReceivable(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, events)
}

// RegisterRoutes registers receivable routes
func (h *ReceivableHandler) RegisterRoutes(rg *gin.RouterGroup) {
	receivables := rg.Group("/receivables")
	{
		receivables.GET("", h.List)
		receivables.GET("/:id", h.Get)
		receivables.GET("/:id/events", h.Events)
	}
}
