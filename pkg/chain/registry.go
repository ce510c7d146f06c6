package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

type registryEntry struct {
	network Network
	faucet  FaucetClient
	closer  func()
}

// Registry holds one faucet binding per configured chain. It is built once at
// start-up and shared read-only by the request handlers.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]registryEntry
	logger  *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[int64]registryEntry),
		logger:  logger,
	}
}

// Dial connects to every configured network and registers its faucet.
// Networks without an RPC URL or faucet address are skipped.
func Dial(ctx context.Context, networks []Network, signer *ecdsa.PrivateKey, opts FaucetOptions, logger *zap.Logger) (*Registry, error) {
	registry := NewRegistry(logger)

	for _, network := range networks {
		if !network.Configured() {
			logger.Warn("skipping unconfigured network",
				zap.Int64("chain_id", network.ChainID),
				zap.String("network", network.Name),
			)
			continue
		}

		client, err := ethclient.DialContext(ctx, network.RPCURL)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("failed to connect to %s rpc: %w", network.Name, err)
		}

		faucet := NewFaucet(client, network, signer, opts, logger)
		registry.Register(network, faucet, faucet.Close)

		logger.Info("faucet registered",
			zap.Int64("chain_id", network.ChainID),
			zap.String("network", network.Name),
			zap.String("faucet", network.FaucetAddress.Hex()),
		)
	}

	if len(registry.ChainIDs()) == 0 {
		return nil, ErrNoNetworksConfigured
	}
	if signer == nil {
		logger.Warn("claim signer key not configured, claim submission disabled")
	}
	return registry, nil
}

// Register adds or replaces the faucet for a network. closer may be nil.
func (r *Registry) Register(network Network, faucet FaucetClient, closer func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[network.ChainID]; ok && old.closer != nil {
		old.closer()
	}
	r.entries[network.ChainID] = registryEntry{network: network, faucet: faucet, closer: closer}
}

// Faucet returns the faucet binding for chainID
func (r *Registry) Faucet(chainID int64) (FaucetClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	return entry.faucet, nil
}

// Network returns the configuration registered for chainID
func (r *Registry) Network(chainID int64) (Network, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[chainID]
	return entry.network, ok
}

// ChainIDs returns the registered chain ids in ascending order
func (r *Registry) ChainIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Ping checks every registered network. The result holds one entry per
// registered chain, nil for the chains that answered.
func (r *Registry) Ping(ctx context.Context) map[int64]error {
	r.mu.RLock()
	entries := make([]registryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	results := make(map[int64]error, len(entries))
	for _, entry := range entries {
		results[entry.network.ChainID] = entry.faucet.Ping(ctx)
	}
	return results
}

// Close releases every RPC connection
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.entries {
		if entry.closer != nil {
			entry.closer()
		}
		delete(r.entries, id)
	}
}
