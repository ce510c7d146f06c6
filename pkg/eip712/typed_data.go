package eip712

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const domainTypeName = "EIP712Domain"

// Field order is part of the struct hash and must mirror the contract byte for byte.
var (
	domainFields = []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}
	claimDataFields = []apitypes.Type{
		{Name: "userAddress", Type: "address"},
		{Name: "flipCount", Type: "uint256"},
		{Name: "minFlipsRequired", Type: "uint256"},
		{Name: "timestamp", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
	}
)

// ClaimTypes returns a fresh copy of the canonical type set
func ClaimTypes() apitypes.Types {
	return apitypes.Types{
		domainTypeName: append([]apitypes.Type(nil), domainFields...),
		PrimaryType:    append([]apitypes.Type(nil), claimDataFields...),
	}
}

// IsSupportedChain reports whether chainID is one of the networks the faucet runs on
func IsSupportedChain(chainID int64) bool {
	switch chainID {
	case ChainIDBase, ChainIDBaseSepolia, ChainIDLocal:
		return true
	default:
		return false
	}
}

// ParseAddress validates a 0x-prefixed hex address.
// Mixed-case input must carry a valid EIP-55 checksum.
func ParseAddress(address string) (common.Address, error) {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 || !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	parsed := common.HexToAddress(address)
	lower := strings.ToLower(address)
	if address != lower && address[2:] != strings.ToUpper(address[2:]) && address != parsed.Hex() {
		return common.Address{}, fmt.Errorf("%w: bad checksum %q", ErrInvalidAddress, address)
	}
	return parsed, nil
}

// NewDomain builds the claim domain for a faucet deployment
func NewDomain(chainID int64, verifyingContract common.Address) ClaimDomain {
	return ClaimDomain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract.Hex(),
	}
}

// Map converts the message into the apitypes representation used for hashing
func (m ClaimMessage) Map() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"userAddress":      common.HexToAddress(m.UserAddress).Hex(),
		"flipCount":        new(big.Int).SetUint64(m.FlipCount),
		"minFlipsRequired": new(big.Int).SetUint64(m.MinFlipsRequired),
		"timestamp":        new(big.Int).SetUint64(m.Timestamp),
		"nonce":            new(big.Int).SetUint64(m.Nonce),
	}
}

// ValidateSchema rejects typed data that does not follow the canonical
// ClaimData schema. An EIP712Domain entry is optional but must match when present.
func (td *ClaimTypedData) ValidateSchema() error {
	if td.PrimaryType != PrimaryType {
		return fmt.Errorf("%w: primaryType %q", ErrSchemaMismatch, td.PrimaryType)
	}

	for name, fields := range td.Types {
		switch name {
		case PrimaryType:
			if !sameFields(fields, claimDataFields) {
				return fmt.Errorf("%w: %s fields differ", ErrSchemaMismatch, PrimaryType)
			}
		case domainTypeName:
			if !sameFields(fields, domainFields) {
				return fmt.Errorf("%w: %s fields differ", ErrSchemaMismatch, domainTypeName)
			}
		default:
			return fmt.Errorf("%w: unexpected type %q", ErrSchemaMismatch, name)
		}
	}
	if _, ok := td.Types[PrimaryType]; !ok {
		return fmt.Errorf("%w: missing %s type", ErrSchemaMismatch, PrimaryType)
	}

	if td.Domain.Name != DomainName || td.Domain.Version != DomainVersion {
		return fmt.Errorf("%w: domain %s/%s", ErrSchemaMismatch, td.Domain.Name, td.Domain.Version)
	}
	return nil
}

// Hash computes keccak256(0x19 0x01 || domainSeparator || hashStruct(message))
// using the canonical type set, regardless of the types carried by td.
func (td *ClaimTypedData) Hash() (common.Hash, error) {
	typedData := apitypes.TypedData{
		Types:       ClaimTypes(),
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              td.Domain.Name,
			Version:           td.Domain.Version,
			ChainId:           math.NewHexOrDecimal256(td.Domain.ChainID),
			VerifyingContract: td.Domain.VerifyingContract,
		},
		Message: td.Message.Map(),
	}

	domainSeparator, err := typedData.HashStruct(domainTypeName, typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct(PrimaryType, typedData.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := make([]byte, 0, 66)
	rawData = append(rawData, 0x19, 0x01)
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, messageHash...)

	return crypto.Keccak256Hash(rawData), nil
}

// Builder assembles fresh ClaimTypedData payloads
type Builder struct {
	minFlipsRequired uint64
	now              func() time.Time
}

// NewBuilder creates a builder injecting minFlipsRequired into every message.
// Zero falls back to DefaultMinFlipsRequired.
func NewBuilder(minFlipsRequired uint64) *Builder {
	if minFlipsRequired == 0 {
		minFlipsRequired = DefaultMinFlipsRequired
	}
	return &Builder{
		minFlipsRequired: minFlipsRequired,
		now:              time.Now,
	}
}

// WithClock overrides the timestamp source
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// MinFlipsRequired returns the policy value injected into messages
func (b *Builder) MinFlipsRequired() uint64 {
	return b.minFlipsRequired
}

// Build creates the typed data for a reward claim. The nonce is read from
// the faucet contract on every call so the message always carries the
// latest on-chain value.
func (b *Builder) Build(
	ctx context.Context,
	nonces NonceSource,
	userAddress string,
	contractAddress string,
	chainID int64,
	flipCount uint64,
) (*ClaimTypedData, error) {
	user, err := ParseAddress(userAddress)
	if err != nil {
		return nil, err
	}
	contract, err := ParseAddress(contractAddress)
	if err != nil {
		return nil, err
	}
	if !IsSupportedChain(chainID) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}

	nonce, err := nonces.GetUserNonce(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNonceUnavailable, err)
	}
	if nonce == nil || !nonce.IsUint64() {
		return nil, fmt.Errorf("%w: nonce out of range", ErrNonceUnavailable)
	}

	return &ClaimTypedData{
		Domain:      NewDomain(chainID, contract),
		Types:       ClaimTypes(),
		PrimaryType: PrimaryType,
		Message: ClaimMessage{
			UserAddress:      user.Hex(),
			FlipCount:        flipCount,
			MinFlipsRequired: b.minFlipsRequired,
			Timestamp:        uint64(b.now().Unix()),
			Nonce:            nonce.Uint64(),
		},
	}, nil
}

func sameFields(got, want []apitypes.Type) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].Type != want[i].Type {
			return false
		}
	}
	return true
}
