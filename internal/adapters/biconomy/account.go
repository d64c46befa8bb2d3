package biconomy

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Deployed contract addresses shared by every chain Biconomy supports
var (
	EntryPointAddress  = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	FactoryAddress     = common.HexToAddress("0x000000a56Aaca3e9a4C479ea6b6CD0DbcB6634F5")
	ECDSAModuleAddress = common.HexToAddress("0x0000001c5b32F37F5beA87BDD5374eB2aC54eA8e")
)

const factoryABIJSON = `[
	{"name":"getAddressForCounterFactualAccount","type":"function","stateMutability":"view","inputs":[{"name":"moduleSetupContract","type":"address"},{"name":"moduleSetupData","type":"bytes"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"name":"deployCounterFactualAccount","type":"function","stateMutability":"nonpayable","inputs":[{"name":"moduleSetupContract","type":"address"},{"name":"moduleSetupData","type":"bytes"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

const entryPointABIJSON = `[
	{"name":"getNonce","type":"function","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const accountABIJSON = `[
	{"name":"executeBatch_y6U","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address[]"},{"name":"value","type":"uint256[]"},{"name":"data","type":"bytes[]"}],"outputs":[]}
]`

const ecdsaModuleABIJSON = `[
	{"name":"initForSmartAccount","type":"function","stateMutability":"nonpayable","inputs":[{"name":"eoaOwner","type":"address"}],"outputs":[{"name":"","type":"address"}]}
]`

var (
	factoryABI     = mustParseABI(factoryABIJSON)
	entryPointABI  = mustParseABI(entryPointABIJSON)
	accountABI     = mustParseABI(accountABIJSON)
	ecdsaModuleABI = mustParseABI(ecdsaModuleABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// moduleSetupData packs the ECDSA ownership module initializer for an owner
func moduleSetupData(owner common.Address) ([]byte, error) {
	data, err := ecdsaModuleABI.Pack("initForSmartAccount", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack module setup: %w", err)
	}
	return data, nil
}

// SmartAccountAddress computes the counterfactual smart account address for
// an owner. The address is stable whether or not the account is deployed yet.
func SmartAccountAddress(ctx context.Context, backend *ethclient.Client, owner common.Address) (common.Address, error) {
	setup, err := moduleSetupData(owner)
	if err != nil {
		return common.Address{}, err
	}

	data, err := factoryABI.Pack("getAddressForCounterFactualAccount", ECDSAModuleAddress, setup, big.NewInt(0))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack factory call: %w", err)
	}

	out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &FactoryAddress, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("factory call failed: %w", err)
	}

	results, err := factoryABI.Unpack("getAddressForCounterFactualAccount", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack factory result: %w", err)
	}

	return results[0].(common.Address), nil
}

// accountNonce reads the sender's next user operation nonce from the entry point
func accountNonce(ctx context.Context, backend *ethclient.Client, sender common.Address) (*big.Int, error) {
	data, err := entryPointABI.Pack("getNonce", sender, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("failed to pack getNonce: %w", err)
	}

	out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &EntryPointAddress, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("getNonce call failed: %w", err)
	}

	results, err := entryPointABI.Unpack("getNonce", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack nonce: %w", err)
	}

	return results[0].(*big.Int), nil
}

// deployInitCode builds the init code that deploys the smart account on
// first use: factory address followed by the deploy calldata
func deployInitCode(owner common.Address) ([]byte, error) {
	setup, err := moduleSetupData(owner)
	if err != nil {
		return nil, err
	}

	deploy, err := factoryABI.Pack("deployCounterFactualAccount", ECDSAModuleAddress, setup, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("failed to pack deploy call: %w", err)
	}

	return append(FactoryAddress.Bytes(), deploy...), nil
}
