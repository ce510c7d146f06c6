package eip712

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// EthVerifier implements Verifier interface using go-ethereum
type EthVerifier struct {
	logger *zap.Logger
}

// Compile-time interface compliance check
var _ Verifier = (*EthVerifier)(nil)

// NewEthVerifier creates a new claim signature verifier
func NewEthVerifier(logger *zap.Logger) *EthVerifier {
	return &EthVerifier{logger: logger}
}

// verifyRequest carries the state shared by all strategies of one run
type verifyRequest struct {
	expected  common.Address
	digest    common.Hash
	raw       []byte
	candidate []byte
	wrapped   *ERC6492Signature
	wallet    ContractWallet
	attempts  int
	tried     bool
}

type verifyStrategy struct {
	name string
	run  func(ctx context.Context, req *verifyRequest) (*Outcome, error)
}

// VerifyClaim verifies a raw wallet signature over the claim typed data.
// Strategies run in order and the first verified outcome wins.
func (v *EthVerifier) VerifyClaim(
	ctx context.Context,
	address string,
	typedData *ClaimTypedData,
	rawSignature string,
	wallet ContractWallet,
) (*Outcome, error) {
	// 1. Validate address format
	expected, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	// 2. Compute EIP-712 digest
	digest, err := typedData.Hash()
	if err != nil {
		return nil, err
	}

	req := &verifyRequest{
		expected: expected,
		digest:   digest,
		wallet:   wallet,
	}

	// 3. Normalize; a failure here is not fatal while other strategies remain
	raw, err := DecodeSignature(rawSignature)
	if err != nil {
		return nil, err
	}
	req.raw = raw
	if wrapped, ok := ParseERC6492(raw); ok {
		req.wrapped = wrapped
		v.logger.Debug("counterfactual signature detected",
			zap.String("address", address),
			zap.String("factory", wrapped.Factory.Hex()),
		)
	}

	candidate, how, err := normalizeBytes(raw)
	if err != nil {
		v.logger.Debug("signature normalization failed, keeping raw signature",
			zap.String("address", address),
			zap.Int("length", len(raw)),
			zap.Error(err),
		)
	} else {
		req.candidate = candidate
		v.logger.Debug("signature normalized",
			zap.String("address", address),
			zap.String("format", how),
		)
	}

	// 4. Run strategies with early exit
	strategies := []verifyStrategy{
		{name: MethodECDSA, run: v.verifyECDSA},
		{name: MethodERC1271, run: v.verifyContractWallet},
		{name: MethodERC6492, run: v.verifyCounterfactual},
	}
	for _, strategy := range strategies {
		outcome, err := strategy.run(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s verification: %w", strategy.name, err)
		}
		if outcome != nil && outcome.Verified {
			outcome.Attempts = req.attempts
			v.logger.Info("claim signature verified",
				zap.String("address", address),
				zap.String("method", outcome.Method),
				zap.Int("attempts", req.attempts),
			)
			return outcome, nil
		}
	}

	if !req.tried {
		return nil, fmt.Errorf("%w: no usable signature candidate", ErrMalformedSignature)
	}

	v.logger.Warn("claim signature did not verify",
		zap.String("address", address),
		zap.Int("attempts", req.attempts),
	)
	return &Outcome{Verified: false, Attempts: req.attempts}, nil
}

// verifyECDSA recovers the signer for the given recovery byte and then for
// the alternates. Wallets disagree on 0/1 versus 27/28, and some drop it.
func (v *EthVerifier) verifyECDSA(_ context.Context, req *verifyRequest) (*Outcome, error) {
	if req.candidate == nil {
		return nil, nil
	}
	req.tried = true

	sig := make([]byte, SignatureLength)
	copy(sig, req.candidate)

	for _, recID := range recoveryIDs(req.candidate[64]) {
		sig[64] = recID
		req.attempts++

		pubKey, err := crypto.SigToPub(req.digest.Bytes(), sig)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(*pubKey) != req.expected {
			continue
		}

		// Contracts using OpenZeppelin ECDSA expect v in {27,28}
		onChain := make([]byte, SignatureLength)
		copy(onChain, sig)
		onChain[64] += 27
		return &Outcome{Verified: true, Method: MethodECDSA, Signature: onChain}, nil
	}
	return nil, nil
}

// verifyContractWallet asks a smart-contract wallet to validate the raw
// signature through ERC-1271.
func (v *EthVerifier) verifyContractWallet(ctx context.Context, req *verifyRequest) (*Outcome, error) {
	if req.wallet == nil || len(req.raw) == 0 || req.wrapped != nil {
		return nil, nil
	}

	isContract, err := req.wallet.IsContract(ctx, req.expected)
	if err != nil {
		return nil, err
	}
	if !isContract {
		return nil, nil
	}
	req.tried = true
	req.attempts++

	valid, err := req.wallet.IsValidSignature(ctx, req.expected, req.digest, req.raw)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, nil
	}
	return &Outcome{
		Verified:  true,
		Method:    MethodERC1271,
		Signature: append([]byte(nil), req.raw...),
	}, nil
}

// verifyCounterfactual handles ERC-6492 wrapped signatures. A wallet that is
// already deployed validates the inner signature through ERC-1271; otherwise
// the universal validator simulates the deployment first.
func (v *EthVerifier) verifyCounterfactual(ctx context.Context, req *verifyRequest) (*Outcome, error) {
	if req.wallet == nil || req.wrapped == nil {
		return nil, nil
	}
	req.tried = true
	req.attempts++

	deployed, err := req.wallet.IsContract(ctx, req.expected)
	if err != nil {
		return nil, err
	}

	forward := req.raw
	var valid bool
	if deployed {
		forward = req.wrapped.Signature
		valid, err = req.wallet.IsValidSignature(ctx, req.expected, req.digest, forward)
	} else {
		valid, err = req.wallet.IsValidCounterfactualSig(ctx, req.expected, req.digest, req.raw)
	}
	if errors.Is(err, ErrNoSigValidator) {
		v.logger.Warn("cannot verify signature of undeployed wallet",
			zap.String("address", req.expected.Hex()),
			zap.Error(err),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, nil
	}
	return &Outcome{
		Verified:  true,
		Method:    MethodERC6492,
		Signature: append([]byte(nil), forward...),
	}, nil
}

// VerifySignatureOnly verifies only the cryptographic signature
func (v *EthVerifier) VerifySignatureOnly(
	address string,
	typedData *ClaimTypedData,
	signature []byte,
) (bool, error) {
	if len(signature) != SignatureLength {
		return false, ErrInvalidSignatureLen
	}

	digest, err := typedData.Hash()
	if err != nil {
		return false, err
	}

	// Normalize v value (27/28 -> 0/1)
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return false, fmt.Errorf("failed to recover public key: %w", err)
	}

	recoveredAddr := crypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recoveredAddr.Hex(), address), nil
}

// recoveryIDs lists the recovery ids to try: the one encoded in v first,
// then the remaining alternates. 27/28 map onto 0/1.
func recoveryIDs(v byte) []byte {
	ids := make([]byte, 0, 2)
	switch v {
	case 0, 27:
		ids = append(ids, 0, 1)
	case 1, 28:
		ids = append(ids, 1, 0)
	default:
		ids = append(ids, 0, 1)
	}
	return ids
}
