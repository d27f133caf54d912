package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles customer payment endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *appsettlement.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appsettlement.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// ManualAllocationLine targets one receivable with an optional fixed amount
type ManualAllocationLine struct {
	ReceivableID string  `json:"receivable_id" binding:"required,uuid"`
	Amount       float64 `json:"amount" binding:"omitempty,gte=0"`
}

// ApplyPaymentRequest represents a customer payment to spread across open
// receivables
type ApplyPaymentRequest struct {
	CustomerID     string                 `json:"customer_id" binding:"required,uuid"`
	Amount         float64                `json:"amount" binding:"required,gt=0"`
	Reference      string                 `json:"reference" binding:"max=100"`
	IdempotencyKey string                 `json:"idempotency_key" binding:"max=100"`
	Strategy       string                 `json:"strategy" binding:"omitempty,oneof=FIFO MANUAL"`
	Allocations    []ManualAllocationLine `json:"allocations" binding:"omitempty,dive"`
}

// Apply applies a customer payment across open receivables
func (h *PaymentHandler) Apply(c *gin.Context) {
	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	manual := make([]settlement.ManualAllocationRequest, 0, len(req.Allocations))
	for _, line := range req.Allocations {
		receivableID, err := uuid.Parse(line.ReceivableID)
		if err != nil {
			h.BadRequest(c, "Invalid receivable ID in allocations")
			return
		}
		manual = append(manual, settlement.ManualAllocationRequest{
			ReceivableID: receivableID,
			Amount:       decimal.NewFromFloat(line.Amount),
		})
	}

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), appsettlement.PaymentRequest{
		CustomerID:     customerID,
		Amount:         decimal.NewFromFloat(req.Amount),
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
		OperatorID:     getOperatorID(c),
		Strategy:       settlement.AllocationStrategyType(req.Strategy),
		ManualRequests: manual,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.Apply)
	}
}
