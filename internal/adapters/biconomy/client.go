package biconomy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rabot-service/rabot_service/pkg/logger"
	"github.com/rabot-service/rabot_service/pkg/retry"
)

// Config represents Biconomy bundler and paymaster configuration. URL
// templates contain a {chainId} placeholder resolved per request.
type Config struct {
	BundlerURL      string
	PaymasterURL    string
	PaymasterAPIKey string
	Timeout         time.Duration
	ReceiptTimeout  time.Duration
}

// Client talks JSON-RPC to the Biconomy bundler and sponsorship paymaster
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new bundler client
func NewClient(config Config, logger *logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ReceiptTimeout == 0 {
		config.ReceiptTimeout = 2 * time.Minute
	}
	if config.BundlerURL == "" {
		config.BundlerURL = "https://bundler.biconomy.io/api/v2/{chainId}/nJPK7B3ru.dd7f7861-190d-41bd-af80-6877f74b8f44"
	}
	if config.PaymasterURL == "" {
		config.PaymasterURL = "https://paymaster.biconomy.io/api/v1/{chainId}/" + config.PaymasterAPIKey
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

func resolveURL(template string, chainID int64) string {
	return strings.ReplaceAll(template, "{chainId}", strconv.FormatInt(chainID, 10))
}

// EstimateUserOperationGas asks the bundler for gas limits of a user operation
func (c *Client) EstimateUserOperationGas(ctx context.Context, chainID int64, op *UserOperation) (*GasEstimate, error) {
	var estimate GasEstimate
	err := c.rpcCall(ctx, resolveURL(c.config.BundlerURL, chainID),
		"eth_estimateUserOperationGas", []interface{}{op, EntryPointAddress.Hex()}, &estimate)
	if err != nil {
		return nil, fmt.Errorf("estimate user operation gas failed: %w", err)
	}
	return &estimate, nil
}

// SponsorUserOperation requests sponsored paymaster data so the user
// operation costs the sender nothing
func (c *Client) SponsorUserOperation(ctx context.Context, chainID int64, op *UserOperation) (*SponsorResult, error) {
	params := []interface{}{op, map[string]interface{}{
		"mode": "SPONSORED",
		"sponsorshipInfo": map[string]interface{}{
			"smartAccountInfo": map[string]string{"name": "BICONOMY", "version": "2.0.0"},
		},
	}}

	var result SponsorResult
	err := c.rpcCall(ctx, resolveURL(c.config.PaymasterURL, chainID), "pm_sponsorUserOperation", params, &result)
	if err != nil {
		return nil, fmt.Errorf("sponsor user operation failed: %w", err)
	}
	return &result, nil
}

// SendUserOperation submits a signed user operation and returns its hash
func (c *Client) SendUserOperation(ctx context.Context, chainID int64, op *UserOperation) (string, error) {
	var userOpHash string
	err := c.rpcCall(ctx, resolveURL(c.config.BundlerURL, chainID),
		"eth_sendUserOperation", []interface{}{op, EntryPointAddress.Hex()}, &userOpHash)
	if err != nil {
		return "", fmt.Errorf("send user operation failed: %w", err)
	}
	return userOpHash, nil
}

// WaitForReceipt polls the bundler until the user operation is included and
// returns the enclosing transaction hash. Reverted operations surface as
// ErrUserOpReverted.
func (c *Client) WaitForReceipt(ctx context.Context, chainID int64, userOpHash string) (string, error) {
	deadline := time.Now().Add(c.config.ReceiptTimeout)
	url := resolveURL(c.config.BundlerURL, chainID)

	for {
		var receipt UserOperationReceipt
		err := c.rpcCall(ctx, url, "eth_getUserOperationReceipt", []interface{}{userOpHash}, &receipt)
		if err == nil && receipt.Receipt.TransactionHash != "" {
			if !receipt.Success {
				return receipt.Receipt.TransactionHash, ErrUserOpReverted
			}
			return receipt.Receipt.TransactionHash, nil
		}
		if err != nil {
			c.logger.Debug("User operation receipt not ready", "user_op_hash", userOpHash, "error", err)
		}

		if time.Now().After(deadline) {
			return "", ErrUserOpNotIncluded
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
}

// rpcCall performs one JSON-RPC round trip with retry on transient failures
func (c *Client) rpcCall(ctx context.Context, url, method string, params []interface{}, result interface{}) error {
	operation := func() error {
		return c.doRPC(ctx, url, method, params, result)
	}

	isRetryable := func(err error) bool {
		if err == nil {
			return false
		}
		if rpcErr, ok := err.(*RPCError); ok {
			return rpcErr.IsRateLimited()
		}
		errStr := err.Error()
		return strings.Contains(errStr, "connection refused") ||
			strings.Contains(errStr, "timeout") ||
			strings.Contains(errStr, "status 5")
	}

	return retry.WithExponentialBackoff(ctx, retry.DefaultRetryConfig(), operation, isRetryable)
}

func (c *Client) doRPC(ctx context.Context, url, method string, params []interface{}, result interface{}) error {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending bundler RPC request", "method", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("failed to unmarshal RPC response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && len(rpcResp.Result) > 0 && string(rpcResp.Result) != "null" {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal RPC result: %w", err)
		}
	}

	return nil
}
