package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Network describes one faucet deployment
type Network struct {
	ChainID       int64
	Name          string
	RPCURL        string
	FaucetAddress common.Address
}

// Configured reports whether the network has both an RPC endpoint and a faucet address
func (n Network) Configured() bool {
	return n.RPCURL != "" && n.FaucetAddress != (common.Address{})
}

// DefaultNetworks names the chains the faucet is deployed on.
// RPC URLs and faucet addresses come from configuration.
var DefaultNetworks = []Network{
	{ChainID: 8453, Name: "base"},
	{ChainID: 84532, Name: "base-sepolia"},
	{ChainID: 31337, Name: "local"},
}

// NetworkName returns the well-known name of a chain id
func NetworkName(chainID int64) string {
	for _, n := range DefaultNetworks {
		if n.ChainID == chainID {
			return n.Name
		}
	}
	return fmt.Sprintf("chain-%d", chainID)
}

// ParsePrivateKey parses a hex-encoded signer key (with or without "0x" prefix).
// An empty key yields a nil key and no error.
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, nil
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}
