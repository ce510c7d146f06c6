package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"invalid argument", InvalidArgument("bad chain"), CodeInvalidArgument, http.StatusBadRequest},
		{"missing field", MissingField("address", "signature"), CodeMissingField, http.StatusBadRequest},
		{"malformed signature", MalformedSignature(nil), CodeMalformedSignature, http.StatusBadRequest},
		{"invalid signature", InvalidSignature(), CodeInvalidSignature, http.StatusUnauthorized},
		{"claim in flight", ClaimInFlight(), CodeClaimInFlight, http.StatusConflict},
		{"rate limited", RateLimited(), CodeRateLimited, http.StatusTooManyRequests},
		{"not found", NotFound("Route"), CodeNotFound, http.StatusNotFound},
		{"upstream", UpstreamUnavailable("chain rpc", nil), CodeUpstreamUnavailable, http.StatusServiceUnavailable},
		{"internal", Internal("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.NotEmpty(t, tt.err.Message)
			assert.NotEmpty(t, tt.err.UserMessage)
		})
	}
}

func TestMissingField_ListsFields(t *testing.T) {
	err := MissingField("address", "signature")
	assert.Equal(t, "Missing required fields: address, signature", err.Message)
	assert.Equal(t, []string{"address", "signature"}, err.Details["missing"])
}

func TestContractRevert(t *testing.T) {
	actionable := ContractRevert("DAILY_LIMIT_REACHED", "Daily limit reached for this wallet",
		"You've reached your daily claim limit. Try again tomorrow!", true)
	assert.Equal(t, http.StatusUnprocessableEntity, actionable.StatusCode)
	assert.Equal(t, "Daily limit reached for this wallet", actionable.Message)
	assert.True(t, actionable.IsContractRevert())
	assert.Equal(t, true, actionable.Details["actionable"])

	paused := ContractRevert("CONTRACT_IS_PAUSED", "Contract is paused", "paused", false)
	assert.Equal(t, http.StatusServiceUnavailable, paused.StatusCode)

	bare := ContractRevert("CONTRACT_REVERT", "", "Transaction failed. Please try again.", true)
	assert.Equal(t, "Transaction reverted", bare.Message)

	assert.False(t, InvalidSignature().IsContractRevert())
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	appErr := ClaimInFlight()
	assert.Same(t, appErr, From(fmt.Errorf("wrapped: %w", appErr)))

	cause := stderrors.New("nil pointer")
	converted := From(cause)
	require.NotNil(t, converted)
	assert.Equal(t, CodeInternal, converted.Code)
	assert.True(t, stderrors.Is(converted, cause))
}

func TestAppError_ErrorAndDetails(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := UpstreamUnavailable("chain rpc", cause).WithDetails(map[string]any{"chain_id": int64(84532)})

	assert.Equal(t, "UPSTREAM_UNAVAILABLE: chain rpc is unavailable: dial tcp: refused", err.Error())
	assert.Equal(t, int64(84532), err.Details["chain_id"])
	assert.True(t, stderrors.Is(err, cause))

	err = InvalidSignature().WithError(cause)
	assert.Equal(t, cause, err.Unwrap())
}
