package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Revert codes. Most are the revert text upper-cased with underscores;
// "Invalid signature" maps to SIGNATURE_REJECTED so it does not collide with
// the INVALID_SIGNATURE verification error.
const (
	CodeDailyLimitReached           = "DAILY_LIMIT_REACHED"
	CodeInvalidNonce                = "INVALID_NONCE"
	CodeInsufficientFlips           = "INSUFFICIENT_FLIPS"
	CodeSignatureExpired            = "SIGNATURE_EXPIRED"
	CodeInvalidTimestamp            = "INVALID_TIMESTAMP"
	CodeSignatureRejected           = "SIGNATURE_REJECTED"
	CodeInsufficientContractBalance = "INSUFFICIENT_CONTRACT_BALANCE"
	CodeTransferFailed              = "TRANSFER_FAILED"
	CodeNotAuthorized               = "NOT_AUTHORIZED"
	CodeContractPaused              = "CONTRACT_IS_PAUSED"
	CodeSignerInsufficientFunds     = "SIGNER_INSUFFICIENT_FUNDS"
	CodeContractRevert              = "CONTRACT_REVERT"
)

const unknownRevertMessage = "Transaction failed. Please try again."

// Revert is a classified contract revert
type Revert struct {
	Code        string
	Reason      string
	UserMessage string
	// Actionable is false when retrying cannot help until an operator intervenes
	Actionable bool
	Known      bool
}

type revertRule struct {
	match       string
	code        string
	userMessage string
	actionable  bool
}

// Matched in order against the lower-cased revert text.
var revertTable = []revertRule{
	{"daily limit reached for this wallet", CodeDailyLimitReached, "You've reached your daily claim limit. Try again tomorrow!", true},
	{"invalid nonce", CodeInvalidNonce, "Invalid request. Please try again.", true},
	{"insufficient flips", CodeInsufficientFlips, "You need to complete more coin flips before claiming rewards.", true},
	{"signature expired", CodeSignatureExpired, "Your claim request has expired. Please try again.", true},
	{"invalid timestamp", CodeInvalidTimestamp, "Invalid request timestamp. Please try again.", true},
	{"invalid signature", CodeSignatureRejected, "Invalid signature. Please try again.", true},
	{"insufficient contract balance", CodeInsufficientContractBalance, "The faucet is temporarily out of funds. Please try again later.", false},
	{"transfer failed", CodeTransferFailed, "Transaction failed. Please try again.", true},
	{"not authorized", CodeNotAuthorized, "Unauthorized request. Please try again.", true},
	{"contract is paused", CodeContractPaused, "The faucet is temporarily paused. Please try again later.", false},
	{"insufficient funds", CodeSignerInsufficientFunds, "The faucet is temporarily unable to send transactions. Please try again later.", false},
}

// ClassifyRevert maps revert text onto a stable code and a friendly message.
// Unknown text falls back to CONTRACT_REVERT and keeps the raw reason.
func ClassifyRevert(reason string) Revert {
	lower := strings.ToLower(reason)
	for _, rule := range revertTable {
		if strings.Contains(lower, rule.match) {
			return Revert{
				Code:        rule.code,
				Reason:      reason,
				UserMessage: rule.userMessage,
				Actionable:  rule.actionable,
				Known:       true,
			}
		}
	}
	return Revert{
		Code:        CodeContractRevert,
		Reason:      reason,
		UserMessage: unknownRevertMessage,
		Actionable:  true,
	}
}

// RevertError is returned when the faucet contract rejects a call
type RevertError struct {
	Revert Revert
	Err    error
}

func (e *RevertError) Error() string {
	if e.Revert.Reason == "" {
		return "contract reverted"
	}
	return "contract reverted: " + e.Revert.Reason
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

// AsRevert extracts a RevertError from an error chain
func AsRevert(err error) (*RevertError, bool) {
	var revertErr *RevertError
	if errors.As(err, &revertErr) {
		return revertErr, true
	}
	return nil, false
}

const executionReverted = "execution reverted"

// revertReason extracts the revert reason from an RPC error, preferring the
// ABI-encoded revert data over the error text.
func revertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok {
			if raw, decodeErr := hexutil.Decode(data); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return reason, true
				}
			}
		}
	}

	msg := err.Error()
	idx := strings.Index(strings.ToLower(msg), executionReverted)
	if idx < 0 {
		return "", false
	}
	reason := strings.TrimSpace(msg[idx+len(executionReverted):])
	reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
	return reason, true
}

// isInsufficientFunds reports whether the node refused the transaction because
// the signer cannot pay for gas
func isInsufficientFunds(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "insufficient funds")
}
