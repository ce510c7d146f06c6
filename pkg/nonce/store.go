package nonce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultTTL bounds how long a claim nonce stays reserved
	DefaultTTL = 5 * time.Minute
)

// Key identifies one on-chain claim nonce of a user on a chain
type Key struct {
	ChainID int64
	Address string
	Nonce   uint64
}

// String formats the key as {chainId}:{lowercase_address}:{nonce}
func (k Key) String() string {
	return fmt.Sprintf("%d:%s:%d", k.ChainID, strings.ToLower(k.Address), k.Nonce)
}

// Store guards claim nonces against concurrent submission.
// The faucet contract remains the authority on nonce consumption; the store
// only stops this service from sending two transactions for the same nonce.
type Store interface {
	// Reserve attempts to reserve a nonce for submission
	// Returns ErrNonceAlreadyUsed if nonce is already used or reserved
	Reserve(ctx context.Context, key Key) error

	// MarkUsed records the transaction that consumed the nonce
	MarkUsed(ctx context.Context, key Key, txHash string) error

	// Release releases a reserved nonce (on submission failure, allows retry)
	Release(ctx context.Context, key Key) error
}

// Error definitions
var (
	ErrNonceAlreadyUsed = errors.New("nonce already used or reserved")
	ErrNonceNotFound    = errors.New("nonce not found")
)
