package eip712

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	// DomainName must match the faucet contract's EIP-712 domain name
	DomainName = "CoinFlipFaucet"
	// DomainVersion must match the faucet contract's EIP-712 domain version
	DomainVersion = "1"
	// PrimaryType is the signed struct name
	PrimaryType = "ClaimData"

	// DefaultMinFlipsRequired is the policy value mirrored from the contract
	DefaultMinFlipsRequired uint64 = 5
)

// Supported chain IDs
const (
	ChainIDBase        int64 = 8453
	ChainIDBaseSepolia int64 = 84532
	ChainIDLocal       int64 = 31337
)

// ClaimDomain identifies the signing context of a claim
type ClaimDomain struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           int64  `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

// ClaimMessage represents the EIP-712 ClaimData message
type ClaimMessage struct {
	UserAddress      string `json:"userAddress"`
	FlipCount        uint64 `json:"flipCount"`
	MinFlipsRequired uint64 `json:"minFlipsRequired"`
	Timestamp        uint64 `json:"timestamp"`
	Nonce            uint64 `json:"nonce"`
}

// ClaimTypedData is the full payload handed to a wallet for signing
type ClaimTypedData struct {
	Domain      ClaimDomain    `json:"domain"`
	Types       apitypes.Types `json:"types"`
	PrimaryType string         `json:"primaryType"`
	Message     ClaimMessage   `json:"message"`
}

// Verification methods reported in Outcome
const (
	MethodECDSA   = "ecdsa"
	MethodERC1271 = "erc1271"
	MethodERC6492 = "erc6492"
)

// Outcome is the typed result of a verification run
type Outcome struct {
	Verified bool
	Method   string
	// Signature is the form to forward on-chain (v in {27,28} for ECDSA)
	Signature []byte
	Attempts  int
}

// NonceSource reads the current claim nonce of a user from the faucet contract
type NonceSource interface {
	GetUserNonce(ctx context.Context, user common.Address) (*big.Int, error)
}

// ContractWallet gives access to ERC-1271 validation for smart-contract wallets
type ContractWallet interface {
	IsContract(ctx context.Context, account common.Address) (bool, error)
	IsValidSignature(ctx context.Context, wallet common.Address, digest common.Hash, signature []byte) (bool, error)
	// IsValidCounterfactualSig validates an ERC-6492 wrapped signature of a
	// wallet that is not deployed yet, through the universal signature validator
	IsValidCounterfactualSig(ctx context.Context, wallet common.Address, digest common.Hash, wrapped []byte) (bool, error)
}

// Verifier defines the interface for claim signature verification
type Verifier interface {
	// VerifyClaim normalizes rawSignature and runs every verification strategy
	// until one succeeds. wallet may be nil, which disables ERC-1271 checks.
	VerifyClaim(ctx context.Context, address string, typedData *ClaimTypedData, rawSignature string, wallet ContractWallet) (*Outcome, error)

	// VerifySignatureOnly checks a single 65-byte ECDSA signature as given
	VerifySignatureOnly(address string, typedData *ClaimTypedData, signature []byte) (bool, error)
}

// Error definitions
var (
	ErrInvalidAddress      = errors.New("invalid ethereum address")
	ErrUnsupportedChain    = errors.New("unsupported chain id")
	ErrNonceUnavailable    = errors.New("failed to read user nonce")
	ErrMalformedSignature  = errors.New("malformed signature")
	ErrInvalidSignatureLen = errors.New("signature must be 65 bytes")
	ErrSchemaMismatch      = errors.New("typed data does not match the ClaimData schema")
	ErrAddressMismatch     = errors.New("recovered address does not match")
	ErrNoSigValidator      = errors.New("no ERC-6492 signature validator configured")
)
