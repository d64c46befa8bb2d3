package bots

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rabot-service/rabot_service/internal/adapters/biconomy"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	"github.com/rabot-service/rabot_service/internal/infrastructure/chain"
)

// ChainAccountResolver derives smart wallet addresses through the factory
// contract on the binding's network
type ChainAccountResolver struct {
	providers *chain.Providers
}

// NewChainAccountResolver creates a resolver over the configured networks
func NewChainAccountResolver(providers *chain.Providers) *ChainAccountResolver {
	return &ChainAccountResolver{providers: providers}
}

// SmartWalletAddress computes the counterfactual smart account address for
// an owner wallet
func (r *ChainAccountResolver) SmartWalletAddress(ctx context.Context, network entities.Network, owner string) (string, error) {
	backend, err := r.providers.ForNetwork(network)
	if err != nil {
		return "", err
	}

	address, err := biconomy.SmartAccountAddress(ctx, backend, common.HexToAddress(owner))
	if err != nil {
		return "", fmt.Errorf("smart wallet for %s on %s: %w", owner, network, err)
	}
	return address.Hex(), nil
}
