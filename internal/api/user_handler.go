package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"favorx-backend-go/internal/core"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
)

// UserHandler handles API endpoints related to user profiles and coins.
type UserHandler struct {
	reader core.ReadService
	writer core.WriteService
	ledger core.LedgerService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(reader core.ReadService, writer core.WriteService, ledger core.LedgerService, logger *zap.Logger) *UserHandler {
	return &UserHandler{reader: reader, writer: writer, ledger: ledger, logger: logger}
}

// GetCurrentUserProfile handles GET /users/me.
func (h *UserHandler) GetCurrentUserProfile(c *gin.Context) {
	user, err := h.reader.GetProfile(c.Request.Context(), "")
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetCoins handles GET /users/me/coins.
func (h *UserHandler) GetCoins(c *gin.Context) {
	coins := h.reader.GetCoins(c.Request.Context(), "")
	if coins == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}
	c.JSON(http.StatusOK, CoinsResponse{Coins: *coins})
}

// GetTransactions handles GET /users/me/transactions.
func (h *UserHandler) GetTransactions(c *gin.Context) {
	history, err := h.ledger.History(c.Request.Context(), identity.UIDFromContext(c.Request.Context()))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	if history == nil {
		history = []*models.CoinTransaction{}
	}
	c.JSON(http.StatusOK, TransactionListResponse{Transactions: history})
}

// UploadProfileImage handles POST /users/me/profile-image.
func (h *UserHandler) UploadProfileImage(c *gin.Context) {
	var req models.ProfileImageRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.writer.UploadProfileImage(c.Request.Context(), req.Image); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Profile image updated"})
}

// RegisterPushToken handles POST /users/me/push-token.
func (h *UserHandler) RegisterPushToken(c *gin.Context) {
	var req models.PushTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.writer.RegisterPushToken(c.Request.Context(), req.Token); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TransferCoins handles POST /users/me/transfer and returns the caller's new balance.
func (h *UserHandler) TransferCoins(c *gin.Context) {
	var req models.TransferCoinsRequest
	if !bindJSON(c, &req) {
		return
	}
	balance, err := h.writer.TransferCoins(c.Request.Context(), req.ToUID, req.Amount)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CoinsResponse{Coins: balance})
}

// GetUser handles GET /users/:uid and returns only the public profile.
func (h *UserHandler) GetUser(c *gin.Context) {
	ref := h.reader.FindUserByInternalID(c.Request.Context(), c.Param("uid"))
	if ref == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}
	c.JSON(http.StatusOK, ref.User.Public())
}
