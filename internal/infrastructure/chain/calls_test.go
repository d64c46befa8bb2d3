package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCallBackend serves eth_call over a local JSON-RPC endpoint, answering
// every call with the given encoded return data
func newCallBackend(t *testing.T, returnData func() []byte) *ethclient.Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_call", req.Method)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x%x"}`, req.ID, returnData())
	}))
	t.Cleanup(server.Close)

	client, err := ethclient.Dial(server.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestPack_ERC20Approve(t *testing.T) {
	spender := common.HexToAddress("0xcF77a3Ba9A5CA399B7c97c74d54e5b1Beb874E43")

	call, err := Pack(ERC20ABI, BaseUSDC, nil, "approve", spender, big.NewInt(1000))

	require.NoError(t, err)
	assert.Equal(t, BaseUSDC, call.To)
	assert.Nil(t, call.Value)
	// 4-byte selector for approve(address,uint256)
	assert.Equal(t, "095ea7b3", hex.EncodeToString(call.Data[:4]))
	// selector + two 32-byte words
	assert.Len(t, call.Data, 4+64)
}

func TestPack_UnknownMethod(t *testing.T) {
	_, err := Pack(ERC20ABI, BaseUSDC, nil, "doesNotExist")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesNotExist")
}

func TestPack_GaugeDeposit(t *testing.T) {
	call, err := Pack(AerodromeGaugeABI, AerodromeWethUsdcPool, nil, "deposit", big.NewInt(12345))

	require.NoError(t, err)
	assert.Equal(t, AerodromeWethUsdcPool, call.To)
	assert.Len(t, call.Data, 4+32)
}

func TestNativeTransfer(t *testing.T) {
	to := common.HexToAddress("0x8617E340B3D01FA5F11F306F4090FD50E238070D")

	call := NativeTransfer(to, big.NewInt(42))

	assert.Equal(t, to, call.To)
	assert.Empty(t, call.Data)
	assert.Equal(t, big.NewInt(42), call.Value)
}

func TestReadUints_ArrayOutput(t *testing.T) {
	// getAmountsOut returns uint256[], which unpacks as a single []*big.Int
	client := newCallBackend(t, func() []byte {
		out, err := UniswapV2RouterABI.Methods["getAmountsOut"].Outputs.Pack(
			[]*big.Int{big.NewInt(5), big.NewInt(7)})
		require.NoError(t, err)
		return out
	})

	path := []common.Address{PolygonWMATIC, PolygonUSDT}
	amounts, err := ReadUints(context.Background(), client, UniswapV2RouterABI,
		PolygonUniswapV2Router, "getAmountsOut", big.NewInt(5), path)

	require.NoError(t, err)
	require.Len(t, amounts, 2)
	assert.Equal(t, big.NewInt(5), amounts[0])
	assert.Equal(t, big.NewInt(7), amounts[1])
}

func TestReadUints_ScalarOutputs(t *testing.T) {
	client := newCallBackend(t, func() []byte {
		out, err := AerodromeRouterABI.Methods["quoteRemoveLiquidity"].Outputs.Pack(
			big.NewInt(11), big.NewInt(22))
		require.NoError(t, err)
		return out
	})

	amounts, err := ReadUints(context.Background(), client, AerodromeRouterABI,
		AerodromeRouter, "quoteRemoveLiquidity",
		BaseWETH, BaseUSDC, true, AerodromeDefaultFactory, big.NewInt(1))

	require.NoError(t, err)
	require.Len(t, amounts, 2)
	assert.Equal(t, big.NewInt(11), amounts[0])
	assert.Equal(t, big.NewInt(22), amounts[1])
}

func TestChecksumAddress(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0x8617e340b3d01fa5f11f306f4090fd50e238070d", "0x8617E340B3D01FA5F11F306F4090FD50E238070D"},
		{"0x8617E340B3D01FA5F11F306F4090FD50E238070D", "0x8617E340B3D01FA5F11F306F4090FD50E238070D"},
		{"0xDE709F2102306220921060314715629080E2FB77", "0xde709f2102306220921060314715629080e2fb77"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ChecksumAddress(tt.input), "input %s", tt.input)
	}
}
