package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"favorx-backend-go/internal/core"
	"favorx-backend-go/internal/models"
)

// BillingHandler handles the simulated coin purchase and the subscription flag.
type BillingHandler struct {
	billingService core.BillingService
	logger         *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(bs core.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{billingService: bs, logger: logger}
}

// PurchaseCoins handles POST /billing/purchase. No card is charged; the
// details are only checked for shape before the coins are credited.
func (h *BillingHandler) PurchaseCoins(c *gin.Context) {
	var req models.PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}
	balance, err := h.billingService.PurchaseCoins(c.Request.Context(), req)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CoinsResponse{Coins: balance})
}

// Subscribe handles POST /billing/subscribe.
func (h *BillingHandler) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.billingService.Subscribe(c.Request.Context(), req.Code); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Subscribed"})
}

// Unsubscribe handles POST /billing/unsubscribe.
func (h *BillingHandler) Unsubscribe(c *gin.Context) {
	if err := h.billingService.Unsubscribe(c.Request.Context()); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Unsubscribed"})
}
