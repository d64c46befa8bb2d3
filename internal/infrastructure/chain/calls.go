package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Call is one encoded contract call inside an atomic batch. Calls are plain
// values with no retained signer or provider; encoding is stateless.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Pack encodes a contract call into a batch-ready Call
func Pack(contractABI abi.ABI, to common.Address, value *big.Int, method string, args ...interface{}) (Call, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return Call{}, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return Call{To: to, Data: data, Value: value}, nil
}

// NativeTransfer builds a plain value transfer with empty calldata
func NativeTransfer(to common.Address, value *big.Int) Call {
	return Call{To: to, Data: []byte{}, Value: value}
}

// ReadUint calls a view function returning a single uint256
func ReadUint(ctx context.Context, client *ethclient.Client, contractABI abi.ABI, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s reverted: %w", method, err)
	}

	results, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("call %s returned no values", method)
	}

	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("call %s returned unexpected type %T", method, results[0])
	}
	return value, nil
}

// ReadUints calls a view function and returns all of its uint256 outputs
func ReadUints(ctx context.Context, client *ethclient.Client, contractABI abi.ABI, to common.Address, method string, args ...interface{}) ([]*big.Int, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s reverted: %w", method, err)
	}

	results, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}

	// A uint256[] output unpacks as one []*big.Int value, so flatten slices
	// alongside scalar uint256 outputs
	values := make([]*big.Int, 0, len(results))
	for _, result := range results {
		switch v := result.(type) {
		case *big.Int:
			values = append(values, v)
		case []*big.Int:
			values = append(values, v...)
		default:
			return nil, fmt.Errorf("call %s returned unexpected type %T", method, result)
		}
	}
	return values, nil
}

// SimulateAmountsOut simulates a payable swap via eth_call with the given
// sender and value, returning the amounts array of the swap path. Used to
// price swapExactETHForTokens before the batch is built.
func SimulateAmountsOut(ctx context.Context, client *ethclient.Client, contractABI abi.ABI, to, from common.Address, value *big.Int, method string, args ...interface{}) ([]*big.Int, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("simulation of %s reverted: %w", method, err)
	}

	results, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("simulation of %s returned no values", method)
	}

	amounts, ok := results[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("simulation of %s returned unexpected type %T", method, results[0])
	}
	return amounts, nil
}

// NativeBalance reads an address's native-asset balance
func NativeBalance(ctx context.Context, client *ethclient.Client, address common.Address) (*big.Int, error) {
	balance, err := client.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance of %s: %w", address.Hex(), err)
	}
	return balance, nil
}

// TransactionConfirmed reports whether a transaction has a successful receipt
func TransactionConfirmed(ctx context.Context, client *ethclient.Client, txHash common.Hash) (bool, error) {
	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if err == ethereum.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch receipt for %s: %w", txHash.Hex(), err)
	}
	return receipt.Status == types.ReceiptStatusSuccessful, nil
}
