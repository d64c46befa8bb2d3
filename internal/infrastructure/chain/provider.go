package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	"github.com/rabot-service/rabot_service/internal/infrastructure/config"
)

// Providers holds one RPC client per supported network
type Providers struct {
	base    *ethclient.Client
	polygon *ethclient.Client
}

// NewProviders dials every configured network RPC endpoint
func NewProviders(cfg config.ChainsConfig) (*Providers, error) {
	base, err := ethclient.Dial(cfg.Base.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to dial base rpc: %w", err)
	}

	polygon, err := ethclient.Dial(cfg.Polygon.RPC)
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("failed to dial polygon rpc: %w", err)
	}

	return &Providers{base: base, polygon: polygon}, nil
}

// ForNetwork returns the client for the given network
func (p *Providers) ForNetwork(network entities.Network) (*ethclient.Client, error) {
	switch network {
	case entities.NetworkBase:
		return p.base, nil
	case entities.NetworkPolygon:
		return p.polygon, nil
	default:
		return nil, fmt.Errorf("unsupported network: %s", network)
	}
}

// Base returns the Base network client
func (p *Providers) Base() *ethclient.Client { return p.base }

// Polygon returns the Polygon network client
func (p *Providers) Polygon() *ethclient.Client { return p.polygon }

// Close releases all RPC connections
func (p *Providers) Close() {
	if p.base != nil {
		p.base.Close()
	}
	if p.polygon != nil {
		p.polygon.Close()
	}
}
