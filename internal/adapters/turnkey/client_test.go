package turnkey

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rabot-service/rabot_service/pkg/logger"
)

// deterministic test scalar, never a real key
const testPrivateKeyHex = "c9afa9d845ba75166b5c215767b1d6934e50c3db36e89b127b8a622b120f6721"

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:        baseURL,
		APIPublicKey:   "02deadbeef",
		APIPrivateKey:  testPrivateKeyHex,
		OrganizationID: "org-123",
	}, logger.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewClient_RejectsInvalidPrivateKey(t *testing.T) {
	_, err := NewClient(Config{APIPrivateKey: "not-hex"}, logger.NewNop())
	assert.Error(t, err)

	_, err = NewClient(Config{APIPrivateKey: "00"}, logger.NewNop())
	assert.Error(t, err)
}

func TestStamp_SignatureVerifiesAgainstBody(t *testing.T) {
	client := newTestClient(t, "http://unused")

	body := []byte(`{"hello":"world"}`)
	stamp, err := client.stamp(body)
	require.NoError(t, err)

	decoded, err := base64.RawURLEncoding.DecodeString(stamp)
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(decoded, &payload))
	assert.Equal(t, "02deadbeef", payload["publicKey"])
	assert.Equal(t, "SIGNATURE_SCHEME_TK_API_P256", payload["scheme"])

	sig, err := hex.DecodeString(payload["signature"])
	require.NoError(t, err)

	digest := sha256.Sum256(body)
	assert.True(t, ecdsa.VerifyASN1(&client.signingKey.PublicKey, digest[:], sig))
}

func TestCreateWallet_ParsesActivityResult(t *testing.T) {
	var gotStamp string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStamp = r.Header.Get("X-Stamp")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"activity": {
				"id": "act-1",
				"status": "ACTIVITY_STATUS_COMPLETED",
				"result": {
					"createWalletResult": {
						"walletId": "wallet-1",
						"addresses": ["0x52908400098527886E0F7030069857D2E4169EE7"]
					}
				}
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	wallet, err := client.CreateWallet(context.Background(), "binding-wallet")

	require.NoError(t, err)
	assert.Equal(t, "wallet-1", wallet.WalletID)
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", wallet.Address)
	assert.NotEmpty(t, gotStamp)

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(gotBody, &req))
	assert.Equal(t, "ACTIVITY_TYPE_CREATE_WALLET", req["type"])
	assert.Equal(t, "org-123", req["organizationId"])
}

func TestCreateWallet_NoAddressIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"activity": {"id": "act-1", "status": "ACTIVITY_STATUS_PENDING", "result": {}}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.CreateWallet(context.Background(), "binding-wallet")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no address")
}

func TestSignRawPayload_AssemblesSixtyFiveByteSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"activity": {
				"id": "act-2",
				"status": "ACTIVITY_STATUS_COMPLETED",
				"result": {
					"signRawPayloadResult": {
						"r": "11",
						"s": "22",
						"v": "01"
					}
				}
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	sig, err := client.SignRawPayload(context.Background(), "0x52908400098527886E0F7030069857D2E4169EE7", make([]byte, 32))

	require.NoError(t, err)
	require.Len(t, sig, 65)
	// r and s are right-aligned in their 32-byte halves
	assert.Equal(t, byte(0x11), sig[31])
	assert.Equal(t, byte(0x22), sig[63])
	assert.Equal(t, byte(0x01), sig[64])
}

func TestDoRequest_SurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code": 16, "message": "invalid stamp"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.CreateWallet(context.Background(), "binding-wallet")

	require.Error(t, err)
	var apiErr *ErrorResponse
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, apiErr.IsUnauthorized())
}
