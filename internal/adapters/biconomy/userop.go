package biconomy

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rabot-service/rabot_service/internal/infrastructure/chain"
)

// Signer signs user operation digests on behalf of the smart account owner
type Signer interface {
	Address() common.Address
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}

// dummySignature pads gas estimation; bundlers require a signature-shaped
// placeholder before the real one exists
var dummySignature = "0x" + fmt.Sprintf("%0130x", 1)

// PerformBatch bundles the calls into one sponsored user operation, signs it
// with the owner's custodial key and submits it through the bundler. It
// blocks until the operation is included and returns the on-chain
// transaction hash.
func (c *Client) PerformBatch(ctx context.Context, chainID int64, backend *ethclient.Client, signer Signer, calls []chain.Call) (string, error) {
	if len(calls) == 0 {
		return "", fmt.Errorf("empty call batch")
	}

	owner := signer.Address()
	sender, err := SmartAccountAddress(ctx, backend, owner)
	if err != nil {
		return "", fmt.Errorf("failed to resolve smart account: %w", err)
	}

	op, err := c.buildUserOperation(ctx, backend, owner, sender, calls)
	if err != nil {
		return "", err
	}

	estimate, err := c.EstimateUserOperationGas(ctx, chainID, op)
	if err != nil {
		return "", err
	}
	op.CallGasLimit = estimate.CallGasLimit
	op.VerificationGasLimit = estimate.VerificationGasLimit
	op.PreVerificationGas = estimate.PreVerificationGas

	sponsor, err := c.SponsorUserOperation(ctx, chainID, op)
	if err != nil {
		return "", err
	}
	op.PaymasterAndData = sponsor.PaymasterAndData
	if sponsor.CallGasLimit != "" {
		op.CallGasLimit = sponsor.CallGasLimit
	}
	if sponsor.VerificationGasLimit != "" {
		op.VerificationGasLimit = sponsor.VerificationGasLimit
	}
	if sponsor.PreVerificationGas != "" {
		op.PreVerificationGas = sponsor.PreVerificationGas
	}

	if err := c.signUserOperation(ctx, chainID, signer, op); err != nil {
		return "", err
	}

	userOpHash, err := c.SendUserOperation(ctx, chainID, op)
	if err != nil {
		return "", err
	}

	c.logger.Info("User operation submitted", "user_op_hash", userOpHash, "sender", sender.Hex(), "calls", len(calls))

	txHash, err := c.WaitForReceipt(ctx, chainID, userOpHash)
	if err != nil {
		return txHash, err
	}

	return txHash, nil
}

func (c *Client) buildUserOperation(ctx context.Context, backend *ethclient.Client, owner, sender common.Address, calls []chain.Call) (*UserOperation, error) {
	initCode := []byte{}
	code, err := backend.CodeAt(ctx, sender, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check account code: %w", err)
	}
	if len(code) == 0 {
		if initCode, err = deployInitCode(owner); err != nil {
			return nil, err
		}
	}

	nonce, err := accountNonce(ctx, backend, sender)
	if err != nil {
		return nil, err
	}

	tos := make([]common.Address, len(calls))
	values := make([]*big.Int, len(calls))
	datas := make([][]byte, len(calls))
	for i, call := range calls {
		tos[i] = call.To
		values[i] = call.Value
		if values[i] == nil {
			values[i] = big.NewInt(0)
		}
		datas[i] = call.Data
	}

	callData, err := accountABI.Pack("executeBatch_y6U", tos, values, datas)
	if err != nil {
		return nil, fmt.Errorf("failed to pack batch call data: %w", err)
	}

	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas tip: %w", err)
	}

	return &UserOperation{
		Sender:               sender.Hex(),
		Nonce:                hexutil.EncodeBig(nonce),
		InitCode:             hexutil.Encode(initCode),
		CallData:             hexutil.Encode(callData),
		CallGasLimit:         "0x0",
		VerificationGasLimit: "0x0",
		PreVerificationGas:   "0x0",
		MaxFeePerGas:         hexutil.EncodeBig(gasPrice),
		MaxPriorityFeePerGas: hexutil.EncodeBig(tip),
		PaymasterAndData:     "0x",
		Signature:            dummySignature,
	}, nil
}

// signUserOperation hashes the operation per the v0.6 entry point rules,
// signs the EIP-191 digest and wraps the signature with the ECDSA ownership
// module address the account validates against
func (c *Client) signUserOperation(ctx context.Context, chainID int64, signer Signer, op *UserOperation) error {
	opHash, err := userOpHash(op, chainID)
	if err != nil {
		return err
	}

	sig, err := signer.Sign(ctx, accounts.TextHash(opHash))
	if err != nil {
		return fmt.Errorf("failed to sign user operation: %w", err)
	}

	wrapped, err := moduleSignatureArgs.Pack(sig, ECDSAModuleAddress)
	if err != nil {
		return fmt.Errorf("failed to wrap signature: %w", err)
	}

	op.Signature = hexutil.Encode(wrapped)
	return nil
}

var (
	bytesType, _   = abi.NewType("bytes", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	bytes32Type, _ = abi.NewType("bytes32", "", nil)

	moduleSignatureArgs = abi.Arguments{{Type: bytesType}, {Type: addressType}}

	packedOpArgs = abi.Arguments{
		{Type: addressType}, {Type: uint256Type}, {Type: bytes32Type}, {Type: bytes32Type},
		{Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type},
		{Type: uint256Type}, {Type: uint256Type}, {Type: bytes32Type},
	}

	opEnvelopeArgs = abi.Arguments{{Type: bytes32Type}, {Type: addressType}, {Type: uint256Type}}
)

// userOpHash computes the entry point's hash of a user operation
func userOpHash(op *UserOperation, chainID int64) ([]byte, error) {
	decode := func(field, value string) (*big.Int, error) {
		n, err := hexutil.DecodeBig(value)
		if err != nil {
			if value == "0x0" || value == "0x00" {
				return big.NewInt(0), nil
			}
			return nil, fmt.Errorf("invalid %s: %w", field, err)
		}
		return n, nil
	}

	nonce, err := decode("nonce", op.Nonce)
	if err != nil {
		return nil, err
	}
	callGas, err := decode("callGasLimit", op.CallGasLimit)
	if err != nil {
		return nil, err
	}
	verificationGas, err := decode("verificationGasLimit", op.VerificationGasLimit)
	if err != nil {
		return nil, err
	}
	preVerificationGas, err := decode("preVerificationGas", op.PreVerificationGas)
	if err != nil {
		return nil, err
	}
	maxFee, err := decode("maxFeePerGas", op.MaxFeePerGas)
	if err != nil {
		return nil, err
	}
	maxPriorityFee, err := decode("maxPriorityFeePerGas", op.MaxPriorityFeePerGas)
	if err != nil {
		return nil, err
	}

	initCode, err := hexutil.Decode(op.InitCode)
	if err != nil {
		return nil, fmt.Errorf("invalid initCode: %w", err)
	}
	callData, err := hexutil.Decode(op.CallData)
	if err != nil {
		return nil, fmt.Errorf("invalid callData: %w", err)
	}
	paymasterAndData, err := hexutil.Decode(op.PaymasterAndData)
	if err != nil {
		return nil, fmt.Errorf("invalid paymasterAndData: %w", err)
	}

	packed, err := packedOpArgs.Pack(
		common.HexToAddress(op.Sender),
		nonce,
		toBytes32(crypto.Keccak256(initCode)),
		toBytes32(crypto.Keccak256(callData)),
		callGas,
		verificationGas,
		preVerificationGas,
		maxFee,
		maxPriorityFee,
		toBytes32(crypto.Keccak256(paymasterAndData)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack user operation: %w", err)
	}

	envelope, err := opEnvelopeArgs.Pack(
		toBytes32(crypto.Keccak256(packed)),
		EntryPointAddress,
		big.NewInt(chainID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack hash envelope: %w", err)
	}

	return crypto.Keccak256(envelope), nil
}

func toBytes32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}
