package alchemy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rabot-service/rabot_service/pkg/logger"
)

// Config represents Alchemy notify API configuration
type Config struct {
	BaseURL   string
	AuthToken string
	WebhookID string
	Timeout   time.Duration
}

// Client manages the address-activity webhook that feeds transfer
// notifications back into the service
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new Alchemy notify client
func NewClient(config Config, logger *logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://dashboard.alchemy.com"
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

type updateAddressesRequest struct {
	WebhookID         string   `json:"webhook_id"`
	AddressesToAdd    []string `json:"addresses_to_add"`
	AddressesToRemove []string `json:"addresses_to_remove"`
}

// WatchAddresses registers the addresses on the activity webhook so deposits
// into them produce transfer notifications
func (c *Client) WatchAddresses(ctx context.Context, addresses ...string) error {
	req := updateAddressesRequest{
		WebhookID:         c.config.WebhookID,
		AddressesToAdd:    addresses,
		AddressesToRemove: []string{},
	}

	if err := c.doRequest(ctx, http.MethodPatch, "/api/update-webhook-addresses", req); err != nil {
		return fmt.Errorf("watch addresses failed: %w", err)
	}

	c.logger.Info("Registered addresses on activity webhook", "webhook_id", c.config.WebhookID, "count", len(addresses))
	return nil
}

// UnwatchAddresses removes the addresses from the activity webhook
func (c *Client) UnwatchAddresses(ctx context.Context, addresses ...string) error {
	req := updateAddressesRequest{
		WebhookID:         c.config.WebhookID,
		AddressesToAdd:    []string{},
		AddressesToRemove: addresses,
	}

	if err := c.doRequest(ctx, http.MethodPatch, "/api/update-webhook-addresses", req); err != nil {
		return fmt.Errorf("unwatch addresses failed: %w", err)
	}

	return nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alchemy-Token", c.config.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
