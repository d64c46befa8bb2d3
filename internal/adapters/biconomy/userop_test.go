package biconomy

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalOp() *UserOperation {
	return &UserOperation{
		Sender:               "0x52908400098527886E0F7030069857D2E4169EE7",
		Nonce:                "0x1",
		InitCode:             "0x",
		CallData:             "0xdeadbeef",
		CallGasLimit:         "0x5208",
		VerificationGasLimit: "0x186a0",
		PreVerificationGas:   "0xc350",
		MaxFeePerGas:         "0x3b9aca00",
		MaxPriorityFeePerGas: "0x3b9aca00",
		PaymasterAndData:     "0x",
		Signature:            dummySignature,
	}
}

func TestUserOpHash_DeterministicAndChainBound(t *testing.T) {
	op := minimalOp()

	h1, err := userOpHash(op, 8453)
	require.NoError(t, err)
	h2, err := userOpHash(op, 8453)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)

	// Same op on another chain hashes differently
	polygonHash, err := userOpHash(op, 137)
	require.NoError(t, err)
	assert.NotEqual(t, h1, polygonHash)
}

func TestUserOpHash_SensitiveToCallData(t *testing.T) {
	op := minimalOp()
	base, err := userOpHash(op, 8453)
	require.NoError(t, err)

	op.CallData = "0xcafebabe"
	changed, err := userOpHash(op, 8453)
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)
}

func TestUserOpHash_RejectsMalformedFields(t *testing.T) {
	op := minimalOp()
	op.Nonce = "nonsense"

	_, err := userOpHash(op, 8453)
	assert.Error(t, err)
}

func TestDummySignature_Is65Bytes(t *testing.T) {
	// 0x prefix plus 130 hex chars
	require.Len(t, dummySignature, 2+130)
}

func TestDeployInitCode_StartsWithFactoryAddress(t *testing.T) {
	owner := common.HexToAddress("0x8617E340B3D01FA5F11F306F4090FD50E238070D")

	initCode, err := deployInitCode(owner)

	require.NoError(t, err)
	assert.Equal(t, FactoryAddress.Bytes(), initCode[:20])
	// Factory address followed by deployCounterFactualAccount calldata
	assert.Greater(t, len(initCode), 24)
}

func TestModuleSetupData_EncodesOwner(t *testing.T) {
	owner := common.HexToAddress("0x8617E340B3D01FA5F11F306F4090FD50E238070D")

	data, err := moduleSetupData(owner)

	require.NoError(t, err)
	// selector + one address word, owner right-aligned
	require.Len(t, data, 4+32)
	assert.Equal(t, owner.Bytes(), data[16:36])
}
