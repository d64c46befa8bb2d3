package turnkey

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rabot-service/rabot_service/internal/adapters/biconomy"
)

// Signer signs digests with a specific custodial account. It satisfies the
// signer contract the bundler client expects for user operations.
type Signer struct {
	client  *Client
	address common.Address
}

// NewSigner binds a Turnkey-managed account address to the client
func (c *Client) NewSigner(address string) biconomy.Signer {
	return &Signer{
		client:  c,
		address: common.HexToAddress(address),
	}
}

// Address returns the signing account's address
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign signs a 32-byte digest and returns a 65-byte Ethereum signature
func (s *Signer) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	return s.client.SignRawPayload(ctx, s.address.Hex(), digest)
}
