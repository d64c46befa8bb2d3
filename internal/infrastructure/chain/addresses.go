package chain

import "github.com/ethereum/go-ethereum/common"

// Deployed contract addresses on the two wired networks. These are fixed
// protocol deployments, not configuration.
var (
	// Base ERC20 tokens
	BaseWETH      = common.HexToAddress("0x4200000000000000000000000000000000000006")
	BaseUSDC      = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	BaseAerodrome = common.HexToAddress("0x940181a94A35A4569E4529A3CDfB74e38FD98631")

	// Base routers and Aerodrome deployments
	BaseUniswapV2Router      = common.HexToAddress("0x4752ba5dbc23f44d87826276bf6fd6b1c372ad24")
	AerodromeRouter          = common.HexToAddress("0xcF77a3Ba9A5CA399B7c97c74d54e5b1Beb874E43")
	AerodromeWethUsdcLPToken = common.HexToAddress("0xcDAC0d6c6C59727a65F871236188350531885C43")
	AerodromeWethUsdcPool    = common.HexToAddress("0x519BBD1Dd8C6A94C46080E24f316c14Ee758C025")
	AerodromeDefaultFactory  = common.HexToAddress("0x420DD381b31aEf6683db6B902084cB0FFECe40Da")

	// Polygon tokens and routers
	PolygonWMATIC          = common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
	PolygonUSDT            = common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F")
	PolygonUniswapV2Router = common.HexToAddress("0xedf6066a2b290C185783862C7F4776A2C8077AD1")
	QuickswapRouter        = common.HexToAddress("0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff")
	QuickswapWmaticUsdtLP  = common.HexToAddress("0x604229c960e5CACF2aaEAc8Be68Ac07BA9dF81c3")
)

// ChecksumAddress normalizes an address string to its EIP-55 checksum form
func ChecksumAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}
