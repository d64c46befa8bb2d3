package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rabot-service/rabot_service/internal/domain/entities"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

// TransferService processes checksummed transfer notifications
type TransferService interface {
	HandleTransfer(ctx context.Context, n *entities.TransferNotification) error
}

// WebhookHandlers handles inbound transfer notifications from the
// address-activity webhook provider
type WebhookHandlers struct {
	transferService TransferService
	signingSecret   string
	logger          *logger.Logger
}

// NewWebhookHandlers creates a new webhook handlers instance
func NewWebhookHandlers(transferService TransferService, signingSecret string, logger *logger.Logger) *WebhookHandlers {
	return &WebhookHandlers{
		transferService: transferService,
		signingSecret:   signingSecret,
		logger:          logger,
	}
}

// addressActivityPayload is the provider's ADDRESS_ACTIVITY event shape
type addressActivityPayload struct {
	WebhookID string `json:"webhookId"`
	ID        string `json:"id"`
	Type      string `json:"type"`
	Event     struct {
		Network  string `json:"network"`
		Activity []struct {
			FromAddress string      `json:"fromAddress"`
			ToAddress   string      `json:"toAddress"`
			Hash        string      `json:"hash"`
			Value       json.Number `json:"value"`
			Asset       string      `json:"asset"`
			Category    string      `json:"category"`
		} `json:"activity"`
	} `json:"event"`
}

// HandleTransfer handles POST /api/v1/webhooks/transfers.
// Processing errors return 200 so the provider does not retry; redelivery
// safety comes from tx-hash dedup in the service, not from response codes.
func (h *WebhookHandlers) HandleTransfer(c *gin.Context) {
	ctx := c.Request.Context()

	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	signature := c.GetHeader("X-Alchemy-Signature")
	if !h.verifySignature(signature, rawBody) {
		h.logger.Warn("Invalid webhook signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload addressActivityPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.logger.Error("Failed to parse webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.Type != "ADDRESS_ACTIVITY" {
		h.logger.Info("Unhandled webhook event type", "type", payload.Type)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	network := mapNetwork(payload.Event.Network)
	processed := 0
	for _, activity := range payload.Event.Activity {
		amount, err := decimalFromNumber(activity.Value)
		if err != nil {
			h.logger.Warn("Skipping activity with unparseable value",
				"tx_hash", activity.Hash,
				"value", activity.Value.String())
			continue
		}

		notification := &entities.TransferNotification{
			FromAddress: activity.FromAddress,
			ToAddress:   activity.ToAddress,
			TxHash:      activity.Hash,
			Amount:      amount,
			Asset:       activity.Asset,
			Network:     network,
		}

		if err := h.transferService.HandleTransfer(ctx, notification); err != nil {
			h.logger.Error("Failed to process transfer notification",
				"tx_hash", activity.Hash,
				"error", err)
			continue
		}
		processed++
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "processed": processed})
}

func (h *WebhookHandlers) verifySignature(signature string, body []byte) bool {
	if h.signingSecret == "" {
		h.logger.Warn("Webhook signing secret not configured - skipping verification")
		return true
	}

	mac := hmac.New(sha256.New, []byte(h.signingSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// mapNetwork translates provider network labels to domain networks
func mapNetwork(network string) string {
	switch strings.ToUpper(network) {
	case "BASE_MAINNET", "BASE_SEPOLIA":
		return string(entities.NetworkBase)
	case "MATIC_MAINNET", "POLYGON_MAINNET", "MATIC_AMOY":
		return string(entities.NetworkPolygon)
	default:
		return strings.ToLower(network)
	}
}

func decimalFromNumber(n json.Number) (decimal.Decimal, error) {
	return decimal.NewFromString(n.String())
}
