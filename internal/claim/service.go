package claim

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahwlsqja/coinflip-claim-engine/internal/common/errors"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/chain"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/eip712"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/nonce"
)

// Chains resolves the faucet deployment of a chain
type Chains interface {
	Faucet(chainID int64) (chain.FaucetClient, error)
	Network(chainID int64) (chain.Network, bool)
}

// Policy holds the claim settings of the service
type Policy struct {
	DefaultChainID int64
	// SubmitTimeout bounds gas estimation and sending of claimReward
	SubmitTimeout time.Duration
	// ConfirmTimeout bounds the wait for a receipt before reporting SUBMITTED
	ConfirmTimeout time.Duration
	// StaleAfter is the age after which a signed timestamp is logged as stale
	StaleAfter time.Duration
}

// Service handles claim business logic.
// guard and attempts are optional; their failures never fail a claim.
type Service struct {
	chains   Chains
	builder  *eip712.Builder
	verifier eip712.Verifier
	guard    nonce.Store
	attempts AttemptStore
	policy   Policy
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new claim service
func NewService(
	chains Chains,
	builder *eip712.Builder,
	verifier eip712.Verifier,
	guard nonce.Store,
	attempts AttemptStore,
	policy Policy,
	logger *zap.Logger,
) *Service {
	if policy.ConfirmTimeout <= 0 {
		policy.ConfirmTimeout = 45 * time.Second
	}
	return &Service{
		chains:   chains,
		builder:  builder,
		verifier: verifier,
		guard:    guard,
		attempts: attempts,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// BuildMessage creates the typed data a wallet must sign to claim
func (s *Service) BuildMessage(ctx context.Context, req *MessageRequest) (*eip712.ClaimTypedData, error) {
	// 1. Resolve the faucet and check the requested contract is ours
	network, faucet, err := s.faucetFor(req.ChainID)
	if err != nil {
		return nil, err
	}
	contract, err := eip712.ParseAddress(req.ContractAddress)
	if err != nil {
		return nil, errors.InvalidArgument(err.Error())
	}
	if contract != network.FaucetAddress {
		return nil, errors.InvalidArgument("contractAddress is not the faucet configured for this chain").
			WithDetails(map[string]any{"chain_id": req.ChainID})
	}

	// 2. Build with a fresh on-chain nonce
	td, err := s.builder.Build(ctx, faucet, req.UserAddress, req.ContractAddress, req.ChainID, req.FlipCount)
	if err != nil {
		return nil, s.mapBuildError(err)
	}

	s.logger.Info("claim message built",
		zap.String("address", td.Message.UserAddress),
		zap.Int64("chain_id", req.ChainID),
		zap.Uint64("nonce", td.Message.Nonce),
		zap.Uint64("flip_count", req.FlipCount),
	)
	return td, nil
}

// VerifyAndClaim verifies a signed claim and forwards it to the faucet
func (s *Service) VerifyAndClaim(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error) {
	run := &claimRun{state: StateReceived, logger: s.logger}

	// 1. Every required field must be present
	if missing := req.missingFields(); len(missing) > 0 {
		return nil, errors.MissingField(missing...)
	}
	td := req.SignedTypedData.typedData()
	run.logger = s.logger.With(
		zap.String("address", req.Address),
		zap.Int64("chain_id", td.Domain.ChainID),
		zap.Uint64("nonce", td.Message.Nonce),
	)

	// 2. Typed data must be the canonical claim for a configured faucet
	address, faucet, err := s.validateTypedData(req.Address, td)
	if err != nil {
		return nil, err
	}
	run.advance(StateFieldsValidated)

	// 3. Normalize and verify the signature
	outcome, err := s.verifier.VerifyClaim(ctx, req.Address, td, req.Signature, faucet)
	if err != nil {
		return nil, s.mapVerifyError(err)
	}
	run.advance(StateSignatureNormalized)
	if !outcome.Verified {
		run.logger.Warn("claim signature rejected", zap.Int("attempts", outcome.Attempts))
		return nil, errors.InvalidSignature().WithDetails(map[string]any{
			"verified": false,
			"attempts": outcome.Attempts,
		})
	}
	run.advance(StateSignatureVerified)
	run.logger.Info("claim signature verified",
		zap.String("method", outcome.Method),
		zap.Int("attempts", outcome.Attempts),
	)

	// 4. Advisory checks; the contract has the final word
	s.checkAdvisories(run.logger, td)

	// 5. Audit the verified attempt
	s.recordAttempt(ctx, run, td, outcome.Method)

	// 6. Guard the nonce against a concurrent submission
	key := nonce.Key{ChainID: td.Domain.ChainID, Address: address.Hex(), Nonce: td.Message.Nonce}
	if err := s.reserve(ctx, run, key); err != nil {
		return nil, err
	}

	// 7. Submit claimReward
	txHash, err := s.submit(ctx, faucet, td, outcome.Signature)
	if err != nil {
		s.release(ctx, run, key)
		return nil, s.submitFailed(ctx, run, err)
	}
	s.transition(ctx, run, StateTxSubmitted, TransitionUpdate{TxHash: txHash.Hex()})
	s.markUsed(ctx, run, key, txHash)
	run.logger.Info("claim transaction submitted", zap.String("tx_hash", txHash.Hex()))

	// 8. Wait for the receipt
	claimData := chain.ClaimDataFromMessage(td.Message)
	result, err := s.confirm(ctx, run, faucet, txHash, claimData, outcome.Signature)
	if err != nil {
		// a reverted claim leaves the on-chain nonce unchanged
		s.release(ctx, run, key)
		return nil, err
	}
	result.AttemptID = run.attemptID
	result.ChainID = td.Domain.ChainID

	return &VerifyResponse{
		Verified: true,
		Method:   outcome.Method,
		Result:   result,
	}, nil
}

// GetNonce reads the current claim nonce of a user from the faucet
func (s *Service) GetNonce(ctx context.Context, query *NonceQuery) (*NonceResponse, error) {
	chainID := s.chainOrDefault(query.ChainID)
	user, err := eip712.ParseAddress(query.UserAddress)
	if err != nil {
		return nil, errors.InvalidArgument(err.Error())
	}
	_, faucet, err := s.faucetFor(chainID)
	if err != nil {
		return nil, err
	}

	n, err := faucet.GetUserNonce(ctx, user)
	if err != nil {
		s.logger.Error("failed to read user nonce",
			zap.String("address", user.Hex()),
			zap.Int64("chain_id", chainID),
			zap.Error(err),
		)
		return nil, errors.UpstreamUnavailable("chain rpc", err)
	}

	return &NonceResponse{
		UserAddress: user.Hex(),
		ChainID:     chainID,
		Nonce:       n.String(),
	}, nil
}

// MinFlips reports the contract's minimum flip requirement and the service policy
func (s *Service) MinFlips(ctx context.Context, query *MinFlipsQuery) (*MinFlipsResponse, error) {
	chainID := s.chainOrDefault(query.ChainID)
	_, faucet, err := s.faucetFor(chainID)
	if err != nil {
		return nil, err
	}

	required, err := faucet.MinFlipsRequired(ctx)
	if err != nil {
		s.logger.Error("failed to read minFlipsRequired", zap.Int64("chain_id", chainID), zap.Error(err))
		return nil, errors.UpstreamUnavailable("chain rpc", err)
	}

	policy := s.builder.MinFlipsRequired()
	if !required.IsUint64() || required.Uint64() != policy {
		s.logger.Warn("minFlipsRequired policy differs from contract",
			zap.Int64("chain_id", chainID),
			zap.String("contract", required.String()),
			zap.Uint64("policy", policy),
		)
	}

	return &MinFlipsResponse{
		ChainID:          chainID,
		MinFlipsRequired: required.String(),
		Policy:           policy,
	}, nil
}

// ListClaims returns the audited claim attempts of a user
func (s *Service) ListClaims(ctx context.Context, query *ListClaimsQuery) (*ListClaimsResponse, error) {
	if s.attempts == nil {
		return nil, errors.UpstreamUnavailable("claim audit store", nil)
	}
	user, err := eip712.ParseAddress(query.UserAddress)
	if err != nil {
		return nil, errors.InvalidArgument(err.Error())
	}

	attempts, err := s.attempts.ListByUser(ctx, user.Hex(), query.ChainID, query.Limit)
	if err != nil {
		s.logger.Error("failed to list claim attempts", zap.String("address", user.Hex()), zap.Error(err))
		return nil, errors.UpstreamUnavailable("claim audit store", err)
	}
	return ToListClaimsResponse(attempts), nil
}

// ============================================================================
// Pipeline steps
// ============================================================================

// claimRun tracks one VerifyAndClaim call through the state machine
type claimRun struct {
	state     State
	attemptID string
	logger    *zap.Logger
}

// advance moves the in-memory state. An illegal step is a programming error
// and is only logged so the claim itself is not affected.
func (r *claimRun) advance(next State) bool {
	if err := checkTransition(r.state, next); err != nil {
		r.logger.Error("claim state machine violated", zap.Error(err))
		return false
	}
	r.state = next
	return true
}

func (s *Service) chainOrDefault(chainID int64) int64 {
	if chainID == 0 {
		return s.policy.DefaultChainID
	}
	return chainID
}

func (s *Service) faucetFor(chainID int64) (chain.Network, chain.FaucetClient, error) {
	if !eip712.IsSupportedChain(chainID) {
		return chain.Network{}, nil, errors.InvalidArgument("unsupported chainId").
			WithDetails(map[string]any{"chain_id": chainID})
	}
	network, ok := s.chains.Network(chainID)
	if !ok {
		return chain.Network{}, nil, errors.InvalidArgument("chain is not configured on this server").
			WithDetails(map[string]any{"chain_id": chainID})
	}
	faucet, err := s.chains.Faucet(chainID)
	if err != nil {
		return chain.Network{}, nil, errors.InvalidArgument("chain is not configured on this server").
			WithDetails(map[string]any{"chain_id": chainID}).WithError(err)
	}
	return network, faucet, nil
}

func (s *Service) validateTypedData(rawAddress string, td *eip712.ClaimTypedData) (common.Address, chain.FaucetClient, error) {
	address, err := eip712.ParseAddress(rawAddress)
	if err != nil {
		return common.Address{}, nil, errors.InvalidArgument(err.Error())
	}
	if err := td.ValidateSchema(); err != nil {
		return common.Address{}, nil, errors.InvalidArgument(err.Error())
	}

	user, err := eip712.ParseAddress(td.Message.UserAddress)
	if err != nil {
		return common.Address{}, nil, errors.InvalidArgument(err.Error())
	}
	if user != address {
		return common.Address{}, nil, errors.InvalidArgument("message.userAddress does not match address").
			WithError(eip712.ErrAddressMismatch)
	}

	network, faucet, err := s.faucetFor(td.Domain.ChainID)
	if err != nil {
		return common.Address{}, nil, err
	}
	contract, err := eip712.ParseAddress(td.Domain.VerifyingContract)
	if err != nil {
		return common.Address{}, nil, errors.InvalidArgument(err.Error())
	}
	if contract != network.FaucetAddress {
		return common.Address{}, nil, errors.InvalidArgument("verifyingContract is not the faucet configured for this chain").
			WithDetails(map[string]any{"chain_id": td.Domain.ChainID})
	}
	return address, faucet, nil
}

func (s *Service) checkAdvisories(logger *zap.Logger, td *eip712.ClaimTypedData) {
	msg := td.Message
	if msg.FlipCount < msg.MinFlipsRequired || msg.FlipCount < s.builder.MinFlipsRequired() {
		logger.Warn("claim below minimum flips",
			zap.Uint64("flip_count", msg.FlipCount),
			zap.Uint64("min_flips_required", msg.MinFlipsRequired),
		)
	}
	if s.policy.StaleAfter > 0 {
		age := s.now().Sub(time.Unix(int64(msg.Timestamp), 0))
		if age > s.policy.StaleAfter {
			logger.Warn("claim timestamp is stale", zap.Duration("age", age))
		}
	}
}

func (s *Service) recordAttempt(ctx context.Context, run *claimRun, td *eip712.ClaimTypedData, method string) {
	if s.attempts == nil {
		return
	}
	attempt := &Attempt{
		ExternalID:  uuid.New().String(),
		ChainID:     td.Domain.ChainID,
		UserAddress: td.Message.UserAddress,
		Nonce:       td.Message.Nonce,
		FlipCount:   td.Message.FlipCount,
		Method:      method,
		State:       run.state,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		run.logger.Error("failed to record claim attempt", zap.Error(err))
		return
	}
	run.attemptID = attempt.ExternalID
	run.logger = run.logger.With(zap.String("attempt_id", attempt.ExternalID))
}

// transition advances the run and persists the new state when audited
func (s *Service) transition(ctx context.Context, run *claimRun, next State, update TransitionUpdate) {
	if !run.advance(next) || s.attempts == nil || run.attemptID == "" {
		return
	}
	if err := s.attempts.Transition(ctx, run.attemptID, next, update); err != nil {
		run.logger.Error("failed to persist claim state",
			zap.String("state", string(next)),
			zap.Error(err),
		)
	}
}

func (s *Service) reserve(ctx context.Context, run *claimRun, key nonce.Key) error {
	if s.guard == nil {
		return nil
	}
	err := s.guard.Reserve(ctx, key)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, nonce.ErrNonceAlreadyUsed):
		run.logger.Warn("claim already in flight")
		s.transition(ctx, run, StateFailed, TransitionUpdate{ErrorCode: errors.CodeClaimInFlight})
		return errors.ClaimInFlight()
	default:
		run.logger.Warn("claim guard unavailable, continuing without it", zap.Error(err))
		return nil
	}
}

func (s *Service) release(ctx context.Context, run *claimRun, key nonce.Key) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, key); err != nil && !stderrors.Is(err, nonce.ErrNonceNotFound) {
		run.logger.Warn("failed to release claim guard", zap.Error(err))
	}
}

func (s *Service) markUsed(ctx context.Context, run *claimRun, key nonce.Key, txHash common.Hash) {
	if s.guard == nil {
		return
	}
	if err := s.guard.MarkUsed(ctx, key, txHash.Hex()); err != nil {
		run.logger.Warn("failed to mark claim nonce used", zap.Error(err))
	}
}

func (s *Service) submit(ctx context.Context, faucet chain.FaucetClient, td *eip712.ClaimTypedData, signature []byte) (common.Hash, error) {
	if s.policy.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.policy.SubmitTimeout)
		defer cancel()
	}
	return faucet.ClaimReward(ctx, chain.ClaimDataFromMessage(td.Message), signature)
}

// submitFailed maps a claimReward failure and records it
func (s *Service) submitFailed(ctx context.Context, run *claimRun, err error) error {
	if revertErr, ok := chain.AsRevert(err); ok {
		appErr := revertAppError(revertErr.Revert)
		run.logger.Warn("claim reverted",
			zap.String("code", revertErr.Revert.Code),
			zap.String("reason", revertErr.Revert.Reason),
		)
		s.transition(ctx, run, StateTxReverted, TransitionUpdate{
			ErrorCode:   revertErr.Revert.Code,
			ErrorReason: revertErr.Revert.Reason,
		})
		return appErr
	}

	run.logger.Error("claim submission failed", zap.Error(err))
	var appErr *errors.AppError
	if stderrors.Is(err, chain.ErrSignerNotConfigured) {
		appErr = errors.UpstreamUnavailable("claim signer", err)
	} else {
		appErr = errors.UpstreamUnavailable("chain rpc", err)
	}
	s.transition(ctx, run, StateFailed, TransitionUpdate{ErrorCode: appErr.Code, ErrorReason: err.Error()})
	return appErr
}

// confirm waits for the receipt up to ConfirmTimeout. A receipt that does not
// arrive in time is reported as SUBMITTED rather than as an error.
func (s *Service) confirm(
	ctx context.Context,
	run *claimRun,
	faucet chain.FaucetClient,
	txHash common.Hash,
	claim chain.ClaimData,
	signature []byte,
) (*ClaimResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.policy.ConfirmTimeout)
	defer cancel()

	result := &ClaimResult{TxHash: txHash.Hex(), Status: StatusSubmitted}
	receipt, err := faucet.WaitMined(waitCtx, txHash)
	if err != nil {
		run.logger.Warn("claim receipt not available yet", zap.String("tx_hash", txHash.Hex()), zap.Error(err))
		return result, nil
	}

	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	result.GasUsed = receipt.GasUsed
	if receipt.Status != types.ReceiptStatusSuccessful {
		revert := chain.ClassifyRevert(s.minedRevertReason(ctx, run, faucet, claim, signature, receipt))
		s.transition(ctx, run, StateTxReverted, TransitionUpdate{
			ErrorCode:   revert.Code,
			ErrorReason: revert.Reason,
		})
		run.logger.Warn("claim transaction reverted on-chain",
			zap.String("tx_hash", txHash.Hex()),
			zap.String("reason", revert.Reason),
		)
		return nil, revertAppError(revert).WithDetails(map[string]any{"tx_hash": txHash.Hex()})
	}

	s.transition(ctx, run, StateTxConfirmed, TransitionUpdate{})
	run.logger.Info("claim confirmed",
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("block_number", result.BlockNumber),
	)
	result.Status = StatusConfirmed
	return result, nil
}

// minedRevertReason replays a failed claim at its block to recover the revert
// text. Failures only cost the reason.
func (s *Service) minedRevertReason(
	ctx context.Context,
	run *claimRun,
	faucet chain.FaucetClient,
	claim chain.ClaimData,
	signature []byte,
	receipt *types.Receipt,
) string {
	if receipt.BlockNumber == nil {
		return ""
	}
	reason, err := faucet.ClaimRevertReason(ctx, claim, signature, receipt.BlockNumber)
	if err != nil {
		run.logger.Warn("failed to replay reverted claim", zap.Error(err))
		return ""
	}
	return reason
}

func revertAppError(r chain.Revert) *errors.AppError {
	return errors.ContractRevert(r.Code, r.Reason, r.UserMessage, r.Actionable)
}

func (s *Service) mapBuildError(err error) error {
	switch {
	case stderrors.Is(err, eip712.ErrInvalidAddress), stderrors.Is(err, eip712.ErrUnsupportedChain):
		return errors.InvalidArgument(err.Error())
	case stderrors.Is(err, eip712.ErrNonceUnavailable):
		s.logger.Error("failed to build claim message", zap.Error(err))
		return errors.UpstreamUnavailable("chain rpc", err)
	default:
		return errors.Internal("Failed to build claim message").WithError(err)
	}
}

func (s *Service) mapVerifyError(err error) error {
	switch {
	case stderrors.Is(err, eip712.ErrMalformedSignature):
		return errors.MalformedSignature(err)
	case stderrors.Is(err, eip712.ErrInvalidAddress), stderrors.Is(err, eip712.ErrSchemaMismatch):
		return errors.InvalidArgument(err.Error())
	case stderrors.Is(err, chain.ErrRPCUnavailable):
		s.logger.Error("contract wallet check failed", zap.Error(err))
		return errors.UpstreamUnavailable("chain rpc", err)
	default:
		return errors.Internal("Signature verification failed").WithError(err)
	}
}
