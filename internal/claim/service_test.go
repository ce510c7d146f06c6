package claim

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahwlsqja/coinflip-claim-engine/internal/common/errors"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/chain"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/eip712"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/nonce"
)

const (
	testChainID = int64(84532)
	testFaucet  = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	testTxHash  = "0x9f0c2a1b7e4d3c5a6b8f0e1d2c3b4a5968778695a4b3c2d1e0f9e8d7c6b5a4f3"
)

var signedAt = time.Unix(1760486400, 0)

// ============================================================================
// Fakes
// ============================================================================

type claimCall struct {
	data      chain.ClaimData
	signature []byte
}

type fakeFaucet struct {
	nonce       *big.Int
	nonceErr    error
	minFlips    *big.Int
	minFlipsErr error
	claimErr    error
	claims      []claimCall
	receipt     *types.Receipt
	waitErr     error
	replay      string
	replayErr   error
	replayBlock *big.Int
}

var _ chain.FaucetClient = (*fakeFaucet)(nil)

func (f *fakeFaucet) GetUserNonce(context.Context, common.Address) (*big.Int, error) {
	if f.nonceErr != nil {
		return nil, f.nonceErr
	}
	return f.nonce, nil
}

func (f *fakeFaucet) IsContract(context.Context, common.Address) (bool, error) { return false, nil }

func (f *fakeFaucet) IsValidSignature(context.Context, common.Address, common.Hash, []byte) (bool, error) {
	return false, nil
}

func (f *fakeFaucet) IsValidCounterfactualSig(context.Context, common.Address, common.Hash, []byte) (bool, error) {
	return false, eip712.ErrNoSigValidator
}

func (f *fakeFaucet) ClaimRevertReason(_ context.Context, _ chain.ClaimData, _ []byte, block *big.Int) (string, error) {
	f.replayBlock = block
	return f.replay, f.replayErr
}

func (f *fakeFaucet) ChainID() int64 { return testChainID }

func (f *fakeFaucet) Address() common.Address { return common.HexToAddress(testFaucet) }

func (f *fakeFaucet) MinFlipsRequired(context.Context) (*big.Int, error) {
	return f.minFlips, f.minFlipsErr
}

func (f *fakeFaucet) ClaimReward(_ context.Context, data chain.ClaimData, signature []byte) (common.Hash, error) {
	f.claims = append(f.claims, claimCall{data: data, signature: signature})
	if f.claimErr != nil {
		return common.Hash{}, f.claimErr
	}
	return common.HexToHash(testTxHash), nil
}

func (f *fakeFaucet) WaitMined(context.Context, common.Hash) (*types.Receipt, error) {
	return f.receipt, f.waitErr
}

func (f *fakeFaucet) Ping(context.Context) error { return nil }

type fakeChains struct {
	network chain.Network
	faucet  *fakeFaucet
}

func (f *fakeChains) Faucet(chainID int64) (chain.FaucetClient, error) {
	if chainID != f.network.ChainID {
		return nil, chain.ErrUnsupportedChain
	}
	return f.faucet, nil
}

func (f *fakeChains) Network(chainID int64) (chain.Network, bool) {
	return f.network, chainID == f.network.ChainID
}

type transitionCall struct {
	id     string
	state  State
	update TransitionUpdate
}

type fakeAttempts struct {
	created     []Attempt
	transitions []transitionCall
	createErr   error
	listErr     error
}

func (f *fakeAttempts) Create(_ context.Context, attempt *Attempt) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *attempt)
	return nil
}

func (f *fakeAttempts) Transition(_ context.Context, id string, next State, update TransitionUpdate) error {
	f.transitions = append(f.transitions, transitionCall{id: id, state: next, update: update})
	return nil
}

func (f *fakeAttempts) ListByUser(_ context.Context, userAddress string, chainID int64, _ int) ([]Attempt, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Attempt
	for _, a := range f.created {
		if strings.EqualFold(a.UserAddress, userAddress) && (chainID == 0 || a.ChainID == chainID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttempts) states() []State {
	states := make([]State, 0, len(f.transitions))
	for _, tr := range f.transitions {
		states = append(states, tr.state)
	}
	return states
}

// ============================================================================
// Fixture
// ============================================================================

type fixture struct {
	service  *Service
	faucet   *fakeFaucet
	attempts *fakeAttempts
	guard    *nonce.RedisStore
	redis    *miniredis.Miniredis
	key      *ecdsa.PrivateKey
	user     common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	faucet := &fakeFaucet{
		nonce:    big.NewInt(3),
		minFlips: big.NewInt(5),
		receipt: &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			BlockNumber: big.NewInt(1234567),
			GasUsed:     84210,
		},
	}
	chains := &fakeChains{
		network: chain.Network{
			ChainID:       testChainID,
			Name:          "base-sepolia",
			RPCURL:        "http://localhost:8545",
			FaucetAddress: common.HexToAddress(testFaucet),
		},
		faucet: faucet,
	}
	attempts := &fakeAttempts{}
	guard := nonce.NewRedisStore(rdb, zap.NewNop())
	builder := eip712.NewBuilder(5).WithClock(func() time.Time { return signedAt })

	service := NewService(chains, builder, eip712.NewEthVerifier(zap.NewNop()), guard, attempts,
		Policy{DefaultChainID: testChainID, ConfirmTimeout: time.Second, StaleAfter: 10 * time.Minute},
		zap.NewNop(),
	)
	service.now = func() time.Time { return signedAt.Add(time.Minute) }

	return &fixture{
		service:  service,
		faucet:   faucet,
		attempts: attempts,
		guard:    guard,
		redis:    mr,
		key:      key,
		user:     crypto.PubkeyToAddress(key.PublicKey),
	}
}

// typedData builds the claim the way the message endpoint would
func (f *fixture) typedData(t *testing.T, flipCount uint64) *eip712.ClaimTypedData {
	t.Helper()
	td, err := f.service.BuildMessage(context.Background(), &MessageRequest{
		UserAddress:     f.user.Hex(),
		ContractAddress: testFaucet,
		ChainID:         testChainID,
		FlipCount:       flipCount,
	})
	require.NoError(t, err)
	return td
}

// request signs td with key and decodes it the way the handler would
func signedRequest(t *testing.T, key *ecdsa.PrivateKey, td *eip712.ClaimTypedData) *VerifyRequest {
	t.Helper()
	digest, err := td.Hash()
	require.NoError(t, err)
	sig, err := crypto.Sign(digest.Bytes(), key)
	require.NoError(t, err)

	raw, err := json.Marshal(td)
	require.NoError(t, err)
	var signed SignedTypedData
	require.NoError(t, json.Unmarshal(raw, &signed))

	return &VerifyRequest{
		Address:         td.Message.UserAddress,
		SignedTypedData: &signed,
		Signature:       hexutil.Encode(sig),
	}
}

func requireAppError(t *testing.T, err error, code string, status int) *errors.AppError {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.StatusCode)
	return appErr
}

func guardKey(f *fixture, n uint64) nonce.Key {
	return nonce.Key{ChainID: testChainID, Address: f.user.Hex(), Nonce: n}
}

// ============================================================================
// BuildMessage
// ============================================================================

func TestBuildMessage(t *testing.T) {
	f := newFixture(t)

	td := f.typedData(t, 12)
	assert.Equal(t, eip712.DomainName, td.Domain.Name)
	assert.Equal(t, testChainID, td.Domain.ChainID)
	assert.Equal(t, common.HexToAddress(testFaucet).Hex(), td.Domain.VerifyingContract)
	assert.Equal(t, f.user.Hex(), td.Message.UserAddress)
	assert.Equal(t, uint64(12), td.Message.FlipCount)
	assert.Equal(t, uint64(5), td.Message.MinFlipsRequired)
	assert.Equal(t, uint64(3), td.Message.Nonce)
	assert.Equal(t, uint64(signedAt.Unix()), td.Message.Timestamp)
}

func TestBuildMessage_Errors(t *testing.T) {
	f := newFixture(t)
	valid := MessageRequest{UserAddress: f.user.Hex(), ContractAddress: testFaucet, ChainID: testChainID}

	tests := []struct {
		name   string
		mutate func(*MessageRequest)
		code   string
		status int
	}{
		{"unsupported chain", func(r *MessageRequest) { r.ChainID = 1 }, errors.CodeInvalidArgument, http.StatusBadRequest},
		{"unconfigured chain", func(r *MessageRequest) { r.ChainID = 8453 }, errors.CodeInvalidArgument, http.StatusBadRequest},
		{"foreign contract", func(r *MessageRequest) { r.ContractAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" }, errors.CodeInvalidArgument, http.StatusBadRequest},
		{"bad user address", func(r *MessageRequest) { r.UserAddress = "0x1234" }, errors.CodeInvalidArgument, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := f.service.BuildMessage(context.Background(), &req)
			requireAppError(t, err, tt.code, tt.status)
		})
	}

	t.Run("nonce read fails", func(t *testing.T) {
		f.faucet.nonceErr = fmt.Errorf("%w: dial tcp", chain.ErrRPCUnavailable)
		defer func() { f.faucet.nonceErr = nil }()
		req := valid
		_, err := f.service.BuildMessage(context.Background(), &req)
		requireAppError(t, err, errors.CodeUpstreamUnavailable, http.StatusServiceUnavailable)
	})
}

// ============================================================================
// VerifyAndClaim
// ============================================================================

func TestVerifyAndClaim_Confirmed(t *testing.T) {
	f := newFixture(t)
	td := f.typedData(t, 12)

	resp, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, td))
	require.NoError(t, err)

	assert.True(t, resp.Verified)
	assert.Equal(t, eip712.MethodECDSA, resp.Method)
	require.NotNil(t, resp.Result)
	assert.Equal(t, StatusConfirmed, resp.Result.Status)
	assert.Equal(t, common.HexToHash(testTxHash).Hex(), resp.Result.TxHash)
	assert.Equal(t, uint64(1234567), resp.Result.BlockNumber)
	assert.Equal(t, testChainID, resp.Result.ChainID)

	// forwarded to the contract with v in {27,28}
	require.Len(t, f.faucet.claims, 1)
	call := f.faucet.claims[0]
	assert.Equal(t, f.user, call.data.UserAddress)
	assert.Equal(t, int64(3), call.data.Nonce.Int64())
	assert.Equal(t, int64(12), call.data.FlipCount.Int64())
	require.Len(t, call.signature, 65)
	assert.Contains(t, []byte{27, 28}, call.signature[64])

	// audited through the state machine
	require.Len(t, f.attempts.created, 1)
	created := f.attempts.created[0]
	assert.Equal(t, StateSignatureVerified, created.State)
	assert.Equal(t, resp.Result.AttemptID, created.ExternalID)
	assert.Equal(t, []State{StateTxSubmitted, StateTxConfirmed}, f.attempts.states())
	assert.Equal(t, resp.Result.TxHash, f.attempts.transitions[0].update.TxHash)

	// guard records the transaction
	stored, err := f.redis.Get("claim-nonce:84532:" + strings.ToLower(f.user.Hex()) + ":3")
	require.NoError(t, err)
	assert.Equal(t, "used:"+resp.Result.TxHash, stored)
}

func TestVerifyAndClaim_MissingFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.VerifyAndClaim(context.Background(), &VerifyRequest{})
	appErr := requireAppError(t, err, errors.CodeMissingField, http.StatusBadRequest)
	assert.Equal(t, []string{"address", "message", "signature", "domain", "types"}, appErr.Details["missing"])

	req := signedRequest(t, f.key, f.typedData(t, 12))
	req.SignedTypedData.Message.Nonce = nil
	req.SignedTypedData.Domain.VerifyingContract = ""
	_, err = f.service.VerifyAndClaim(context.Background(), req)
	appErr = requireAppError(t, err, errors.CodeMissingField, http.StatusBadRequest)
	assert.Equal(t, []string{"message.nonce", "domain.verifyingContract"}, appErr.Details["missing"])
	assert.Empty(t, f.faucet.claims)
}

func TestVerifyAndClaim_InvalidArguments(t *testing.T) {
	f := newFixture(t)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*VerifyRequest)
	}{
		{"address differs from message", func(r *VerifyRequest) {
			r.Address = crypto.PubkeyToAddress(other.PublicKey).Hex()
		}},
		{"bad address", func(r *VerifyRequest) { r.Address = "not-an-address" }},
		{"foreign verifying contract", func(r *VerifyRequest) {
			r.SignedTypedData.Domain.VerifyingContract = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
		}},
		{"unconfigured chain", func(r *VerifyRequest) {
			id := Uint(8453)
			r.SignedTypedData.Domain.ChainID = &id
		}},
		{"historic flipsCount schema", func(r *VerifyRequest) {
			fields := r.SignedTypedData.Types[eip712.PrimaryType]
			fields[1].Name = "flipsCount"
		}},
		{"wrong domain name", func(r *VerifyRequest) { r.SignedTypedData.Domain.Name = "Faucet" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signedRequest(t, f.key, f.typedData(t, 12))
			tt.mutate(req)
			_, err := f.service.VerifyAndClaim(context.Background(), req)
			requireAppError(t, err, errors.CodeInvalidArgument, http.StatusBadRequest)
		})
	}
	assert.Empty(t, f.faucet.claims)
	assert.Empty(t, f.attempts.created)
}

func TestVerifyAndClaim_SignatureFailures(t *testing.T) {
	f := newFixture(t)
	td := f.typedData(t, 12)

	t.Run("malformed", func(t *testing.T) {
		req := signedRequest(t, f.key, td)
		req.Signature = "0x1234"
		_, err := f.service.VerifyAndClaim(context.Background(), req)
		requireAppError(t, err, errors.CodeMalformedSignature, http.StatusBadRequest)
	})

	t.Run("signed by someone else", func(t *testing.T) {
		other, err := crypto.GenerateKey()
		require.NoError(t, err)
		req := signedRequest(t, other, td)
		_, err = f.service.VerifyAndClaim(context.Background(), req)
		appErr := requireAppError(t, err, errors.CodeInvalidSignature, http.StatusUnauthorized)
		assert.Equal(t, false, appErr.Details["verified"])
	})

	t.Run("tampered flip count", func(t *testing.T) {
		req := signedRequest(t, f.key, td)
		tampered := Uint(500)
		req.SignedTypedData.Message.FlipCount = &tampered
		_, err := f.service.VerifyAndClaim(context.Background(), req)
		requireAppError(t, err, errors.CodeInvalidSignature, http.StatusUnauthorized)
	})

	assert.Empty(t, f.faucet.claims)
	assert.Empty(t, f.attempts.created)
}

func TestVerifyAndClaim_ClaimInFlight(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.guard.Reserve(context.Background(), guardKey(f, 3)))

	_, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
	requireAppError(t, err, errors.CodeClaimInFlight, http.StatusConflict)

	assert.Empty(t, f.faucet.claims)
	assert.Equal(t, []State{StateFailed}, f.attempts.states())
	assert.Equal(t, errors.CodeClaimInFlight, f.attempts.transitions[0].update.ErrorCode)
}

func TestVerifyAndClaim_ContractRevert(t *testing.T) {
	f := newFixture(t)
	f.faucet.claimErr = &chain.RevertError{
		Revert: chain.ClassifyRevert("Daily limit reached for this wallet"),
		Err:    stderrors.New("execution reverted: Daily limit reached for this wallet"),
	}

	_, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
	appErr := requireAppError(t, err, chain.CodeDailyLimitReached, http.StatusUnprocessableEntity)
	assert.Equal(t, "You've reached your daily claim limit. Try again tomorrow!", appErr.UserMessage)
	assert.True(t, appErr.IsContractRevert())

	assert.Equal(t, []State{StateTxReverted}, f.attempts.states())
	assert.Equal(t, chain.CodeDailyLimitReached, f.attempts.transitions[0].update.ErrorCode)

	// guard released so a fresh attempt may retry
	assert.False(t, f.redis.Exists("claim-nonce:84532:"+strings.ToLower(f.user.Hex())+":3"))
}

func TestVerifyAndClaim_PausedFaucetIsServiceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.faucet.claimErr = &chain.RevertError{Revert: chain.ClassifyRevert("Contract is paused")}

	_, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
	requireAppError(t, err, chain.CodeContractPaused, http.StatusServiceUnavailable)
}

func TestVerifyAndClaim_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"rpc down", fmt.Errorf("%w: claimReward: connection refused", chain.ErrRPCUnavailable)},
		{"no signer", chain.ErrSignerNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.faucet.claimErr = tt.err

			_, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
			requireAppError(t, err, errors.CodeUpstreamUnavailable, http.StatusServiceUnavailable)
			assert.Equal(t, []State{StateFailed}, f.attempts.states())
			assert.False(t, f.redis.Exists("claim-nonce:84532:"+strings.ToLower(f.user.Hex())+":3"))
		})
	}
}

func TestVerifyAndClaim_ReceiptTimeoutReportsSubmitted(t *testing.T) {
	f := newFixture(t)
	f.faucet.receipt = nil
	f.faucet.waitErr = fmt.Errorf("%w: %s", chain.ErrReceiptTimeout, testTxHash)

	resp, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, resp.Result.Status)
	assert.Equal(t, common.HexToHash(testTxHash).Hex(), resp.Result.TxHash)
	assert.Equal(t, []State{StateTxSubmitted}, f.attempts.states())
}

func TestVerifyAndClaim_RevertedOnChain(t *testing.T) {
	f := newFixture(t)
	f.faucet.receipt = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(99)}

	_, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
	appErr := requireAppError(t, err, chain.CodeContractRevert, http.StatusUnprocessableEntity)
	assert.Equal(t, common.HexToHash(testTxHash).Hex(), appErr.Details["tx_hash"])
	assert.Equal(t, []State{StateTxSubmitted, StateTxReverted}, f.attempts.states())
	assert.Equal(t, big.NewInt(99), f.faucet.replayBlock)
}

func TestVerifyAndClaim_RevertedOnChainKeepsReplayedReason(t *testing.T) {
	f := newFixture(t)
	f.faucet.receipt = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(99)}
	f.faucet.replay = "Daily limit reached for this wallet"

	_, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
	appErr := requireAppError(t, err, chain.CodeDailyLimitReached, http.StatusUnprocessableEntity)
	assert.Equal(t, "Daily limit reached for this wallet", appErr.Details["reason"])

	last := f.attempts.transitions[len(f.attempts.transitions)-1]
	assert.Equal(t, StateTxReverted, last.state)
	assert.Equal(t, chain.CodeDailyLimitReached, last.update.ErrorCode)
	assert.Equal(t, "Daily limit reached for this wallet", last.update.ErrorReason)
}

func TestVerifyAndClaim_RetryAfterOnChainRevert(t *testing.T) {
	f := newFixture(t)
	f.faucet.receipt = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(99)}
	f.faucet.replayErr = stderrors.New("replay unavailable")
	td := f.typedData(t, 12)

	_, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, td))
	requireAppError(t, err, chain.CodeContractRevert, http.StatusUnprocessableEntity)
	assert.False(t, f.redis.Exists("claim-nonce:84532:"+strings.ToLower(f.user.Hex())+":3"))

	// the nonce did not move on-chain, so the same claim may be sent again
	f.faucet.receipt = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)}
	resp, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, td))
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, resp.Result.Status)
	assert.Len(t, f.faucet.claims, 2)
}

func TestVerifyAndClaim_BestEffortDependencies(t *testing.T) {
	t.Run("redis down", func(t *testing.T) {
		f := newFixture(t)
		f.redis.Close()

		resp, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, resp.Result.Status)
	})

	t.Run("audit store down", func(t *testing.T) {
		f := newFixture(t)
		f.attempts.createErr = stderrors.New("too many connections")

		resp, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
		require.NoError(t, err)
		assert.Empty(t, resp.Result.AttemptID)
		assert.Empty(t, f.attempts.transitions)
	})

	t.Run("no guard or audit configured", func(t *testing.T) {
		f := newFixture(t)
		f.service.guard = nil
		f.service.attempts = nil

		resp, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
		require.NoError(t, err)
		assert.True(t, resp.Verified)
	})
}

func TestVerifyAndClaim_AdvisoryChecksDoNotBlock(t *testing.T) {
	f := newFixture(t)
	f.service.now = func() time.Time { return signedAt.Add(time.Hour) }

	// below the minimum and an hour old; the contract decides
	resp, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 1)))
	require.NoError(t, err)
	assert.True(t, resp.Verified)
	require.Len(t, f.faucet.claims, 1)
	assert.Equal(t, int64(1), f.faucet.claims[0].data.FlipCount.Int64())
}

// ============================================================================
// Reads
// ============================================================================

func TestGetNonce(t *testing.T) {
	f := newFixture(t)

	resp, err := f.service.GetNonce(context.Background(), &NonceQuery{UserAddress: strings.ToLower(f.user.Hex())})
	require.NoError(t, err)
	assert.Equal(t, "3", resp.Nonce)
	assert.Equal(t, testChainID, resp.ChainID)
	assert.Equal(t, f.user.Hex(), resp.UserAddress)

	_, err = f.service.GetNonce(context.Background(), &NonceQuery{UserAddress: "0x12"})
	requireAppError(t, err, errors.CodeInvalidArgument, http.StatusBadRequest)

	f.faucet.nonceErr = chain.ErrRPCUnavailable
	_, err = f.service.GetNonce(context.Background(), &NonceQuery{UserAddress: f.user.Hex(), ChainID: testChainID})
	requireAppError(t, err, errors.CodeUpstreamUnavailable, http.StatusServiceUnavailable)
}

func TestMinFlips(t *testing.T) {
	f := newFixture(t)

	resp, err := f.service.MinFlips(context.Background(), &MinFlipsQuery{})
	require.NoError(t, err)
	assert.Equal(t, "5", resp.MinFlipsRequired)
	assert.Equal(t, uint64(5), resp.Policy)

	f.faucet.minFlipsErr = chain.ErrRPCUnavailable
	_, err = f.service.MinFlips(context.Background(), &MinFlipsQuery{ChainID: testChainID})
	requireAppError(t, err, errors.CodeUpstreamUnavailable, http.StatusServiceUnavailable)
}

func TestListClaims(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.VerifyAndClaim(context.Background(), signedRequest(t, f.key, f.typedData(t, 12)))
	require.NoError(t, err)

	resp, err := f.service.ListClaims(context.Background(), &ListClaimsQuery{UserAddress: f.user.Hex()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, uint64(3), resp.Claims[0].Nonce)

	f.attempts.listErr = stderrors.New("connection reset")
	_, err = f.service.ListClaims(context.Background(), &ListClaimsQuery{UserAddress: f.user.Hex()})
	requireAppError(t, err, errors.CodeUpstreamUnavailable, http.StatusServiceUnavailable)

	f.service.attempts = nil
	_, err = f.service.ListClaims(context.Background(), &ListClaimsQuery{UserAddress: f.user.Hex()})
	requireAppError(t, err, errors.CodeUpstreamUnavailable, http.StatusServiceUnavailable)
}
