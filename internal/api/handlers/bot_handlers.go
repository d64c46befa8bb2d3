package handlers

import (
	"context"
	"errors"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rabot-service/rabot_service/internal/domain/entities"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
	"github.com/rabot-service/rabot_service/internal/domain/services/bots"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

// BotService defines the binding operations the API exposes
type BotService interface {
	Create(ctx context.Context, req *bots.CreateBindingRequest) (*entities.BotBinding, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.BotBinding, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.BotBinding, error)
	Withdraw(ctx context.Context, bindingID uuid.UUID, percentage int64, currency, network *string) (string, error)
	StakedBalance(ctx context.Context, bindingID uuid.UUID) (*big.Int, error)
}

// LedgerReader lists ledger entries for a binding
type LedgerReader interface {
	ListByBinding(ctx context.Context, bindingID uuid.UUID) ([]*entities.Tx, error)
}

// BotHandlers handles user-bot binding endpoints
type BotHandlers struct {
	botService BotService
	ledger     LedgerReader
	validator  *validator.Validate
	logger     *logger.Logger
}

// NewBotHandlers creates a new bot handlers instance
func NewBotHandlers(botService BotService, ledger LedgerReader, logger *logger.Logger) *BotHandlers {
	return &BotHandlers{
		botService: botService,
		ledger:     ledger,
		validator:  validator.New(),
		logger:     logger,
	}
}

// CreateBotRequest represents the request to bind a user to a bot
type CreateBotRequest struct {
	UserID            string `json:"user_id" validate:"required,uuid"`
	BotType           string `json:"bot_type" validate:"required"`
	UserWalletAddress string `json:"user_wallet_address" validate:"required"`
}

// WithdrawRequest represents a percentage withdrawal request
type WithdrawRequest struct {
	Percentage int64   `json:"percentage" validate:"required,gte=1,lte=100"`
	Currency   *string `json:"currency,omitempty"`
	Network    *string `json:"network,omitempty"`
}

// WithdrawResponse carries the submitted batch transaction hash
type WithdrawResponse struct {
	TxHash string `json:"tx_hash"`
}

// StakedBalanceResponse carries the on-chain staked balance in base units
type StakedBalanceResponse struct {
	Balance string `json:"balance"`
}

// Create handles POST /api/v1/user-bots
func (h *BotHandlers) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, entities.ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
			Details: map[string]interface{}{"error": err.Error()},
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("Validation failed", "error", err)
		c.JSON(http.StatusBadRequest, entities.ErrorResponse{
			Code:    "VALIDATION_FAILED",
			Message: "Request validation failed",
			Details: map[string]interface{}{"error": err.Error()},
		})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, entities.ErrorResponse{
			Code:    "INVALID_USER_ID",
			Message: "Invalid user ID format",
		})
		return
	}

	binding, err := h.botService.Create(ctx, &bots.CreateBindingRequest{
		UserID:            userID,
		BotType:           entities.BotType(req.BotType),
		UserWalletAddress: req.UserWalletAddress,
	})
	if err != nil {
		h.respondError(c, err, "Failed to create bot binding")
		return
	}

	c.JSON(http.StatusCreated, binding)
}

// Get handles GET /api/v1/user-bots/:id
func (h *BotHandlers) Get(c *gin.Context) {
	ctx := c.Request.Context()

	bindingID, ok := h.bindingID(c)
	if !ok {
		return
	}

	binding, err := h.botService.Get(ctx, bindingID)
	if err != nil {
		h.respondError(c, err, "Failed to fetch bot binding")
		return
	}

	c.JSON(http.StatusOK, binding)
}

// ListByUser handles GET /api/v1/user-bots/users/:userId
func (h *BotHandlers) ListByUser(c *gin.Context) {
	ctx := c.Request.Context()

	userIDStr := c.Param("userId")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, entities.ErrorResponse{
			Code:    "INVALID_USER_ID",
			Message: "Invalid user ID format",
			Details: map[string]interface{}{"user_id": userIDStr},
		})
		return
	}

	bindings, err := h.botService.ListByUser(ctx, userID)
	if err != nil {
		h.respondError(c, err, "Failed to list bot bindings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bindings": bindings, "count": len(bindings)})
}

// Withdraw handles POST /api/v1/user-bots/:id/withdraw
func (h *BotHandlers) Withdraw(c *gin.Context) {
	ctx := c.Request.Context()

	bindingID, ok := h.bindingID(c)
	if !ok {
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, entities.ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
			Details: map[string]interface{}{"error": err.Error()},
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entities.ErrorResponse{
			Code:    "VALIDATION_FAILED",
			Message: "Request validation failed",
			Details: map[string]interface{}{"error": err.Error()},
		})
		return
	}

	txHash, err := h.botService.Withdraw(ctx, bindingID, req.Percentage, req.Currency, req.Network)
	if err != nil {
		h.respondError(c, err, "Failed to withdraw")
		return
	}

	c.JSON(http.StatusOK, WithdrawResponse{TxHash: txHash})
}

// StakedBalance handles GET /api/v1/user-bots/:id/staked-balance
func (h *BotHandlers) StakedBalance(c *gin.Context) {
	ctx := c.Request.Context()

	bindingID, ok := h.bindingID(c)
	if !ok {
		return
	}

	balance, err := h.botService.StakedBalance(ctx, bindingID)
	if err != nil {
		h.respondError(c, err, "Failed to read staked balance")
		return
	}

	c.JSON(http.StatusOK, StakedBalanceResponse{Balance: balance.String()})
}

// Transactions handles GET /api/v1/user-bots/:id/transactions
func (h *BotHandlers) Transactions(c *gin.Context) {
	ctx := c.Request.Context()

	bindingID, ok := h.bindingID(c)
	if !ok {
		return
	}

	txs, err := h.ledger.ListByBinding(ctx, bindingID)
	if err != nil {
		h.respondError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
}

func (h *BotHandlers) bindingID(c *gin.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, entities.ErrorResponse{
			Code:    "INVALID_BINDING_ID",
			Message: "Invalid bot binding ID format",
			Details: map[string]interface{}{"id": idStr},
		})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps domain errors to HTTP responses
func (h *BotHandlers) respondError(c *gin.Context, err error, msg string) {
	switch {
	case domainerrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, entities.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: err.Error(),
		})
	case errors.Is(err, domainerrors.ErrInvalidInput),
		errors.Is(err, domainerrors.ErrInvalidPercentage):
		c.JSON(http.StatusBadRequest, entities.ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: err.Error(),
		})
	case errors.Is(err, domainerrors.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, entities.ErrorResponse{
			Code:    "INSUFFICIENT_BALANCE",
			Message: err.Error(),
		})
	default:
		h.logger.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, entities.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		})
	}
}
