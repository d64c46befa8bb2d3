package turnkey

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/rabot-service/rabot_service/pkg/logger"
)

// Config represents Turnkey API configuration
type Config struct {
	BaseURL        string
	APIPublicKey   string
	APIPrivateKey  string
	OrganizationID string
	Timeout        time.Duration
}

// Client represents a Turnkey API client. Requests are authenticated with an
// API key stamp: a P-256 signature over the exact request body, carried in
// the X-Stamp header.
type Client struct {
	config     Config
	signingKey *ecdsa.PrivateKey
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new Turnkey API client
func NewClient(config Config, logger *logger.Logger) (*Client, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.turnkey.com"
	}

	key, err := parseP256PrivateKey(config.APIPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Turnkey API private key: %w", err)
	}

	return &Client{
		config:     config,
		signingKey: key,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// CreateWallet provisions a custodial wallet with a single Ethereum account
func (c *Client) CreateWallet(ctx context.Context, walletName string) (*Wallet, error) {
	req := activityRequest{
		Type:           "ACTIVITY_TYPE_CREATE_WALLET",
		TimestampMs:    strconv.FormatInt(time.Now().UnixMilli(), 10),
		OrganizationID: c.config.OrganizationID,
		Parameters: createWalletParams{
			WalletName: walletName,
			Accounts: []walletAccount{
				{
					Curve:         "CURVE_SECP256K1",
					PathFormat:    "PATH_FORMAT_BIP32",
					Path:          "m/44'/60'/0'/0/0",
					AddressFormat: "ADDRESS_FORMAT_ETHEREUM",
				},
			},
		},
	}

	var resp activityResponse
	if err := c.doRequest(ctx, "/public/v1/submit/create_wallet", req, &resp); err != nil {
		return nil, fmt.Errorf("create wallet failed: %w", err)
	}

	result := resp.Activity.Result.CreateWalletResult
	if result == nil || len(result.Addresses) == 0 {
		return nil, fmt.Errorf("create wallet returned no address (activity %s, status %s)",
			resp.Activity.ID, resp.Activity.Status)
	}

	return &Wallet{
		WalletID: result.WalletID,
		Address:  result.Addresses[0],
	}, nil
}

// SignRawPayload signs a 32-byte digest with the account behind signWith.
// The digest must already be hashed; Turnkey applies no further hashing.
func (c *Client) SignRawPayload(ctx context.Context, signWith string, digest []byte) ([]byte, error) {
	req := activityRequest{
		Type:           "ACTIVITY_TYPE_SIGN_RAW_PAYLOAD_V2",
		TimestampMs:    strconv.FormatInt(time.Now().UnixMilli(), 10),
		OrganizationID: c.config.OrganizationID,
		Parameters: signRawPayloadParams{
			SignWith:     signWith,
			Payload:      hex.EncodeToString(digest),
			Encoding:     "PAYLOAD_ENCODING_HEXADECIMAL",
			HashFunction: "HASH_FUNCTION_NO_OP",
		},
	}

	var resp activityResponse
	if err := c.doRequest(ctx, "/public/v1/submit/sign_raw_payload", req, &resp); err != nil {
		return nil, fmt.Errorf("sign raw payload failed: %w", err)
	}

	result := resp.Activity.Result.SignRawPayloadResult
	if result == nil {
		return nil, fmt.Errorf("sign raw payload returned no signature (activity %s, status %s)",
			resp.Activity.ID, resp.Activity.Status)
	}

	return assembleSignature(result)
}

// doRequest performs a stamped POST to the Turnkey API
func (c *Client) doRequest(ctx context.Context, endpoint string, body, response interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	stamp, err := c.stamp(jsonData)
	if err != nil {
		return fmt.Errorf("failed to stamp request: %w", err)
	}

	fullURL := c.config.BaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Stamp", stamp)

	c.logger.Debug("Sending Turnkey API request", "url", fullURL)

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
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			errResp.StatusCode = resp.StatusCode
			return &errResp
		}
		return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if response != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// stamp produces the base64url-encoded API key stamp for a request body
func (c *Client) stamp(body []byte) (string, error) {
	digest := sha256.Sum256(body)
	sig, err := ecdsa.SignASN1(rand.Reader, c.signingKey, digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign request digest: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"publicKey": c.config.APIPublicKey,
		"scheme":    "SIGNATURE_SCHEME_TK_API_P256",
		"signature": hex.EncodeToString(sig),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal stamp: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// parseP256PrivateKey decodes a hex-encoded P-256 scalar into an ECDSA key
func parseP256PrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}

	curve := elliptic.P256()
	d := new(big.Int).SetBytes(raw)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("scalar out of range")
	}

	key := &ecdsa.PrivateKey{D: d}
	key.Curve = curve
	key.X, key.Y = curve.ScalarBaseMult(raw)
	return key, nil
}

// assembleSignature converts Turnkey's r/s/v components into the 65-byte
// Ethereum signature layout
func assembleSignature(result *signRawPayloadResult) ([]byte, error) {
	r, err := hex.DecodeString(result.R)
	if err != nil {
		return nil, fmt.Errorf("invalid signature r: %w", err)
	}
	s, err := hex.DecodeString(result.S)
	if err != nil {
		return nil, fmt.Errorf("invalid signature s: %w", err)
	}
	v, err := strconv.ParseUint(result.V, 16, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid signature v: %w", err)
	}

	sig := make([]byte, 65)
	copy(sig[32-len(r):32], r)
	copy(sig[64-len(s):64], s)
	sig[64] = byte(v)
	return sig, nil
}
