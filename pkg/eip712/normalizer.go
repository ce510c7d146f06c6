package eip712

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SignatureLength is the size of an r || s || v signature
const SignatureLength = 65

// Payloads shorter than this cannot be an ABI envelope around a 65-byte signature.
const abiEnvelopeMinLength = 100

var (
	bytesType, _   = abi.NewType("bytes", "", nil)
	uint8Type, _   = abi.NewType("uint8", "", nil)
	addressType, _ = abi.NewType("address", "", nil)

	bytesArgs = abi.Arguments{
		{Name: "signature", Type: bytesType},
	}
	// SignatureWrapper(uint8 ownerIndex, bytes signatureData) as emitted by smart wallets
	wrapperArgs = abi.Arguments{
		{Name: "ownerIndex", Type: uint8Type},
		{Name: "signatureData", Type: bytesType},
	}
	// abi.encode(factory, factoryCalldata, signature) ahead of the ERC-6492 suffix
	erc6492Args = abi.Arguments{
		{Name: "factory", Type: addressType},
		{Name: "factoryCalldata", Type: bytesType},
		{Name: "signature", Type: bytesType},
	}
)

// ERC6492MagicSuffix terminates the signature of a wallet that may not be deployed yet
var ERC6492MagicSuffix = common.FromHex("0x6492649264926492649264926492649264926492649264926492649264926492")

// ERC6492Signature is a counterfactual signature unwrapped from its envelope
type ERC6492Signature struct {
	Factory         common.Address
	FactoryCalldata []byte
	Signature       []byte
}

// ParseERC6492 unwraps sig when it carries the ERC-6492 suffix
func ParseERC6492(sig []byte) (*ERC6492Signature, bool) {
	if len(sig) <= len(ERC6492MagicSuffix) || !bytes.HasSuffix(sig, ERC6492MagicSuffix) {
		return nil, false
	}
	values, err := erc6492Args.Unpack(sig[:len(sig)-len(ERC6492MagicSuffix)])
	if err != nil || len(values) != 3 {
		return nil, false
	}
	factory, ok := values[0].(common.Address)
	if !ok {
		return nil, false
	}
	calldata, ok := values[1].([]byte)
	if !ok {
		return nil, false
	}
	inner, ok := values[2].([]byte)
	if !ok || len(inner) == 0 {
		return nil, false
	}
	return &ERC6492Signature{Factory: factory, FactoryCalldata: calldata, Signature: inner}, true
}

type normalizeCandidate struct {
	name  string
	apply func(sig []byte) ([]byte, bool)
}

// Evaluated in order, first success wins. Byte length alone cannot tell a
// padded signature from a truncated envelope, so every candidate is tried.
var normalizeCandidates = []normalizeCandidate{
	{name: "standard", apply: asIs},
	{name: "missing-recovery-id", apply: appendRecoveryID},
	{name: "padded", apply: dropTrailingByte},
	{name: "abi-bytes", apply: decodeABIBytes},
	{name: "abi-wrapper", apply: decodeSignatureWrapper},
}

// Normalize reduces a wallet-produced signature to the canonical
// 0x-prefixed 65-byte hex form. The recovery byte is left untouched.
func Normalize(raw string) (string, error) {
	sig, err := DecodeSignature(raw)
	if err != nil {
		return "", err
	}

	normalized, _, err := normalizeBytes(sig)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(normalized), nil
}

// DecodeSignature parses a hex signature, tolerating whitespace, a missing
// 0x prefix and upper-case digits.
func DecodeSignature(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedSignature)
	}

	sig, err := hexutil.Decode("0x" + s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return sig, nil
}

func normalizeBytes(sig []byte) ([]byte, string, error) {
	for _, candidate := range normalizeCandidates {
		if out, ok := candidate.apply(sig); ok {
			return out, candidate.name, nil
		}
	}
	return nil, "", fmt.Errorf("%w: unsupported length %d bytes", ErrMalformedSignature, len(sig))
}

func asIs(sig []byte) ([]byte, bool) {
	if len(sig) != SignatureLength {
		return nil, false
	}
	return append([]byte(nil), sig...), true
}

func appendRecoveryID(sig []byte) ([]byte, bool) {
	if len(sig) != SignatureLength-1 {
		return nil, false
	}
	out := make([]byte, SignatureLength)
	copy(out, sig)
	return out, true
}

func dropTrailingByte(sig []byte) ([]byte, bool) {
	if len(sig) != SignatureLength+1 {
		return nil, false
	}
	return append([]byte(nil), sig[:SignatureLength]...), true
}

func decodeABIBytes(sig []byte) ([]byte, bool) {
	if len(sig) <= abiEnvelopeMinLength {
		return nil, false
	}
	values, err := bytesArgs.Unpack(sig)
	if err != nil || len(values) != 1 {
		return nil, false
	}
	return signaturePayload(values[0])
}

func decodeSignatureWrapper(sig []byte) ([]byte, bool) {
	if len(sig) <= abiEnvelopeMinLength+32 {
		return nil, false
	}
	// The tuple is dynamic, so the envelope starts with one offset word.
	offset := new(big.Int).SetBytes(sig[:32])
	if !offset.IsUint64() || offset.Uint64() != 32 {
		return nil, false
	}
	values, err := wrapperArgs.Unpack(sig[32:])
	if err != nil || len(values) != 2 {
		return nil, false
	}
	return signaturePayload(values[1])
}

func signaturePayload(v interface{}) ([]byte, bool) {
	payload, ok := v.([]byte)
	if !ok || len(payload) != SignatureLength {
		return nil, false
	}
	return append([]byte(nil), payload...), true
}
