package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/ahwlsqja/coinflip-claim-engine/pkg/eip712"
)

const (
	// DefaultGasLimit caps claimReward transactions
	DefaultGasLimit uint64 = 300000
	// DefaultPollInterval is the receipt polling period
	DefaultPollInterval = 2 * time.Second

	// gasBufferPercent is added on top of the node's estimate
	gasBufferPercent = 20
)

// Error definitions
var (
	ErrUnsupportedChain     = errors.New("chain is not configured")
	ErrRPCUnavailable       = errors.New("chain rpc unavailable")
	ErrSignerNotConfigured  = errors.New("claim signer key is not configured")
	ErrChainIDMismatch      = errors.New("rpc endpoint reports a different chain id")
	ErrReceiptTimeout       = errors.New("timed out waiting for transaction receipt")
	ErrNoNetworksConfigured = errors.New("no chain networks configured")
)

// Backend is the subset of ethclient.Client used by the faucet binding
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// ClaimData mirrors the contract's ClaimData struct for ABI packing
type ClaimData struct {
	UserAddress      common.Address
	FlipCount        *big.Int
	MinFlipsRequired *big.Int
	Timestamp        *big.Int
	Nonce            *big.Int
}

// ClaimDataFromMessage converts a typed-data message into the contract struct
func ClaimDataFromMessage(msg eip712.ClaimMessage) ClaimData {
	return ClaimData{
		UserAddress:      common.HexToAddress(msg.UserAddress),
		FlipCount:        new(big.Int).SetUint64(msg.FlipCount),
		MinFlipsRequired: new(big.Int).SetUint64(msg.MinFlipsRequired),
		Timestamp:        new(big.Int).SetUint64(msg.Timestamp),
		Nonce:            new(big.Int).SetUint64(msg.Nonce),
	}
}

// FaucetClient is the contract surface the claim flow depends on
type FaucetClient interface {
	eip712.NonceSource
	eip712.ContractWallet

	ChainID() int64
	Address() common.Address
	MinFlipsRequired(ctx context.Context) (*big.Int, error)
	ClaimReward(ctx context.Context, claim ClaimData, signature []byte) (common.Hash, error)
	WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ClaimRevertReason(ctx context.Context, claim ClaimData, signature []byte, blockNumber *big.Int) (string, error)
	Ping(ctx context.Context) error
}

// FaucetOptions tunes transaction submission
type FaucetOptions struct {
	GasLimit     uint64
	PollInterval time.Duration
	// SigValidator is the ERC-6492 validator deployment; zero disables
	// verification of undeployed smart wallets
	SigValidator common.Address
}

// Faucet binds the faucet contract of one network
type Faucet struct {
	backend      Backend
	network      Network
	signer       *ecdsa.PrivateKey
	from         common.Address
	gasLimit     uint64
	pollInterval time.Duration
	sigValidator common.Address
	logger       *zap.Logger
}

// Compile-time interface compliance check
var _ FaucetClient = (*Faucet)(nil)

// NewFaucet creates a faucet binding. signer may be nil, in which case the
// binding is read-only and ClaimReward fails with ErrSignerNotConfigured.
func NewFaucet(backend Backend, network Network, signer *ecdsa.PrivateKey, opts FaucetOptions, logger *zap.Logger) *Faucet {
	if opts.GasLimit == 0 {
		opts.GasLimit = DefaultGasLimit
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	f := &Faucet{
		backend:      backend,
		network:      network,
		signer:       signer,
		gasLimit:     opts.GasLimit,
		pollInterval: opts.PollInterval,
		sigValidator: opts.SigValidator,
		logger:       logger.With(zap.Int64("chain_id", network.ChainID), zap.String("network", network.Name)),
	}
	if signer != nil {
		f.from = crypto.PubkeyToAddress(signer.PublicKey)
	}
	return f
}

// ChainID returns the chain the faucet is deployed on
func (f *Faucet) ChainID() int64 {
	return f.network.ChainID
}

// Address returns the faucet contract address
func (f *Faucet) Address() common.Address {
	return f.network.FaucetAddress
}

// GetUserNonce reads getUserNonce(user)
func (f *Faucet) GetUserNonce(ctx context.Context, user common.Address) (*big.Int, error) {
	return f.readUint(ctx, MethodGetUserNonce, user)
}

// MinFlipsRequired reads minFlipsRequired()
func (f *Faucet) MinFlipsRequired(ctx context.Context) (*big.Int, error) {
	return f.readUint(ctx, MethodMinFlipsRequired)
}

func (f *Faucet) readUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	data, err := faucetABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	to := f.network.FaucetAddress
	result, err := f.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, f.classifyError(method, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: empty result from %s, is the faucet deployed at %s?",
			ErrRPCUnavailable, method, to.Hex())
	}

	outputs, err := faucetABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	value, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", method, outputs[0])
	}
	return value, nil
}

// ClaimReward submits claimReward(claim, signature) signed by the server key.
// Reverts surface during gas estimation as *RevertError.
func (f *Faucet) ClaimReward(ctx context.Context, claim ClaimData, signature []byte) (common.Hash, error) {
	if f.signer == nil {
		return common.Hash{}, ErrSignerNotConfigured
	}

	data, err := faucetABI.Pack(MethodClaimReward, claim, signature)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s: %w", MethodClaimReward, err)
	}

	to := f.network.FaucetAddress
	estimate, err := f.backend.EstimateGas(ctx, ethereum.CallMsg{From: f.from, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, f.classifyError(MethodClaimReward, err)
	}
	gas := f.gasFor(estimate)

	nonce, err := f.backend.PendingNonceAt(ctx, f.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to get nonce: %w", ErrRPCUnavailable, err)
	}

	gasPrice, err := f.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to get gas price: %w", ErrRPCUnavailable, err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gas, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(f.network.ChainID)), f.signer)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := f.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, f.classifyError(MethodClaimReward, err)
	}

	f.logger.Info("claim transaction submitted",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("user", claim.UserAddress.Hex()),
		zap.Uint64("gas", gas),
		zap.Uint64("tx_nonce", nonce),
	)
	return signedTx.Hash(), nil
}

func (f *Faucet) gasFor(estimate uint64) uint64 {
	gas := estimate + estimate*gasBufferPercent/100
	if gas > f.gasLimit {
		gas = f.gasLimit
	}
	if gas < estimate {
		gas = estimate
	}
	return gas
}

// WaitMined polls for the transaction receipt until it is available or ctx ends
func (f *Faucet) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := f.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			f.logger.Debug("receipt lookup failed, retrying",
				zap.String("tx_hash", txHash.Hex()),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrReceiptTimeout, txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// IsContract reports whether account has deployed code
func (f *Faucet) IsContract(ctx context.Context, account common.Address) (bool, error) {
	code, err := f.backend.CodeAt(ctx, account, nil)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check code: %w", ErrRPCUnavailable, err)
	}
	return len(code) > 0, nil
}

// IsValidSignature calls ERC-1271 isValidSignature on a contract wallet.
// A revert means the wallet rejected the signature.
func (f *Faucet) IsValidSignature(ctx context.Context, wallet common.Address, digest common.Hash, signature []byte) (bool, error) {
	data, err := erc1271ABI.Pack(MethodIsValidSignature, [32]byte(digest), signature)
	if err != nil {
		return false, fmt.Errorf("failed to pack %s: %w", MethodIsValidSignature, err)
	}

	result, err := f.backend.CallContract(ctx, ethereum.CallMsg{To: &wallet, Data: data}, nil)
	if err != nil {
		if _, reverted := revertReason(err); reverted {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s: %w", ErrRPCUnavailable, MethodIsValidSignature, err)
	}

	outputs, err := erc1271ABI.Unpack(MethodIsValidSignature, result)
	if err != nil || len(outputs) == 0 {
		return false, nil
	}
	magic, ok := outputs[0].([4]byte)
	return ok && magic == ERC1271MagicValue, nil
}

// IsValidCounterfactualSig asks the ERC-6492 validator to simulate the wallet
// deployment and check the inner signature. The call is an eth_call, nothing
// is deployed.
func (f *Faucet) IsValidCounterfactualSig(ctx context.Context, wallet common.Address, digest common.Hash, wrapped []byte) (bool, error) {
	if f.sigValidator == (common.Address{}) {
		return false, eip712.ErrNoSigValidator
	}
	data, err := sigValidatorABI.Pack(MethodIsValidSig, wallet, [32]byte(digest), wrapped)
	if err != nil {
		return false, fmt.Errorf("failed to pack %s: %w", MethodIsValidSig, err)
	}

	to := f.sigValidator
	result, err := f.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		if _, reverted := revertReason(err); reverted {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s: %w", ErrRPCUnavailable, MethodIsValidSig, err)
	}

	outputs, err := sigValidatorABI.Unpack(MethodIsValidSig, result)
	if err != nil || len(outputs) == 0 {
		return false, nil
	}
	valid, ok := outputs[0].(bool)
	return ok && valid, nil
}

// ClaimRevertReason replays claimReward against the state at blockNumber to
// recover the revert text of a mined transaction that failed. An empty reason
// with a nil error means the replay did not revert.
func (f *Faucet) ClaimRevertReason(ctx context.Context, claim ClaimData, signature []byte, blockNumber *big.Int) (string, error) {
	data, err := faucetABI.Pack(MethodClaimReward, claim, signature)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s: %w", MethodClaimReward, err)
	}

	to := f.network.FaucetAddress
	_, err = f.backend.CallContract(ctx, ethereum.CallMsg{From: f.from, To: &to, Data: data}, blockNumber)
	if err == nil {
		return "", nil
	}
	if reason, ok := revertReason(err); ok {
		return reason, nil
	}
	return "", fmt.Errorf("%w: replay %s: %w", ErrRPCUnavailable, MethodClaimReward, err)
}

// Ping checks that the RPC endpoint is reachable and serves the expected chain
func (f *Faucet) Ping(ctx context.Context) error {
	chainID, err := f.backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRPCUnavailable, err)
	}
	if chainID.Int64() != f.network.ChainID {
		return fmt.Errorf("%w: want %d, got %s", ErrChainIDMismatch, f.network.ChainID, chainID)
	}
	return nil
}

// Close releases the RPC connection
func (f *Faucet) Close() {
	f.backend.Close()
}

func (f *Faucet) classifyError(method string, err error) error {
	if reason, ok := revertReason(err); ok {
		revert := ClassifyRevert(reason)
		f.logger.Warn("contract call reverted",
			zap.String("method", method),
			zap.String("code", revert.Code),
			zap.String("reason", reason),
		)
		return &RevertError{Revert: revert, Err: err}
	}
	if isInsufficientFunds(err) {
		f.logger.Error("claim signer cannot pay for gas",
			zap.String("signer", f.from.Hex()),
			zap.Error(err),
		)
		return &RevertError{Revert: ClassifyRevert(err.Error()), Err: err}
	}
	return fmt.Errorf("%w: %s: %w", ErrRPCUnavailable, method, err)
}
