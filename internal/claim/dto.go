package claim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/ahwlsqja/coinflip-claim-engine/pkg/eip712"
)

// ============================================================================
// Request DTOs
// ============================================================================

// MessageRequest represents the request body for building claim typed data
type MessageRequest struct {
	UserAddress     string `json:"userAddress" binding:"required" example:"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"`
	ContractAddress string `json:"contractAddress" binding:"required" example:"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"`
	ChainID         int64  `json:"chainId" binding:"required" example:"84532"`
	FlipCount       uint64 `json:"flipCount" example:"12"`
}

// VerifyRequest carries a signed claim. Fields are checked by the service so
// that every missing one can be reported at once.
type VerifyRequest struct {
	Address         string           `json:"address" example:"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"`
	SignedTypedData *SignedTypedData `json:"signedTypedData"`
	Signature       string           `json:"signature" example:"0x1234...abcd"`
}

// SignedTypedData is the typed data exactly as the wallet signed it
type SignedTypedData struct {
	Domain      *DomainRequest `json:"domain"`
	Types       apitypes.Types `json:"types" swaggertype:"object"`
	PrimaryType string         `json:"primaryType" example:"ClaimData"`
	Message     *MessageFields `json:"message"`
}

// DomainRequest mirrors eip712.ClaimDomain; chainId may be a number or a string
type DomainRequest struct {
	Name              string `json:"name" example:"CoinFlipFaucet"`
	Version           string `json:"version" example:"1"`
	ChainID           *Uint  `json:"chainId" swaggertype:"integer" example:"84532"`
	VerifyingContract string `json:"verifyingContract" example:"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"`
}

// MessageFields mirrors eip712.ClaimMessage. Wallet libraries serialize
// uint256 values either as JSON numbers or as strings, so both are accepted.
type MessageFields struct {
	UserAddress      string `json:"userAddress" example:"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"`
	FlipCount        *Uint  `json:"flipCount" swaggertype:"integer" example:"12"`
	MinFlipsRequired *Uint  `json:"minFlipsRequired" swaggertype:"integer" example:"5"`
	Timestamp        *Uint  `json:"timestamp" swaggertype:"integer" example:"1760486400"`
	Nonce            *Uint  `json:"nonce" swaggertype:"integer" example:"0"`
}

// NonceQuery represents the query parameters of GET /nonce
type NonceQuery struct {
	UserAddress string `form:"userAddress" binding:"required"`
	ChainID     int64  `form:"chainId"`
}

// MinFlipsQuery represents the query parameters of GET /claim/min-flips
type MinFlipsQuery struct {
	ChainID int64 `form:"chainId"`
}

// ListClaimsQuery represents the query parameters of GET /claims
type ListClaimsQuery struct {
	UserAddress string `form:"userAddress" binding:"required"`
	ChainID     int64  `form:"chainId"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Uint is a uint64 that decodes from a JSON number or a decimal/hex string
type Uint uint64

func (u *Uint) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	v, ok := math.ParseUint64(raw)
	if !ok {
		return fmt.Errorf("invalid unsigned integer %q", raw)
	}
	*u = Uint(v)
	return nil
}

func (u Uint) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(u))
}

// ============================================================================
// Response DTOs
// ============================================================================

// Claim statuses reported to clients
const (
	StatusConfirmed = "CONFIRMED"
	StatusSubmitted = "SUBMITTED"
)

// VerifyResponse represents the outcome of POST /claim/verify
type VerifyResponse struct {
	Verified bool         `json:"verified" example:"true"`
	Method   string       `json:"method" example:"ecdsa"`
	Result   *ClaimResult `json:"result,omitempty"`
}

// ClaimResult describes the faucet transaction sent for a verified claim
type ClaimResult struct {
	AttemptID   string `json:"attemptId,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	ChainID     int64  `json:"chainId" example:"84532"`
	TxHash      string `json:"txHash" example:"0x9f0c...e1"`
	Status      string `json:"status" example:"CONFIRMED"`
	BlockNumber uint64 `json:"blockNumber,omitempty" example:"1234567"`
	GasUsed     uint64 `json:"gasUsed,omitempty" example:"84210"`
}

// NonceResponse represents the current on-chain claim nonce of a user
type NonceResponse struct {
	UserAddress string `json:"userAddress" example:"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"`
	ChainID     int64  `json:"chainId" example:"84532"`
	Nonce       string `json:"nonce" example:"3"`
}

// MinFlipsResponse compares the contract requirement with the service policy
type MinFlipsResponse struct {
	ChainID          int64  `json:"chainId" example:"84532"`
	MinFlipsRequired string `json:"minFlipsRequired" example:"5"`
	Policy           uint64 `json:"policy" example:"5"`
}

// AttemptResponse represents one audited claim attempt
type AttemptResponse struct {
	ID          string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ChainID     int64     `json:"chainId" example:"84532"`
	UserAddress string    `json:"userAddress" example:"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"`
	Nonce       uint64    `json:"nonce" example:"3"`
	FlipCount   uint64    `json:"flipCount" example:"12"`
	Method      string    `json:"method" example:"ecdsa"`
	State       string    `json:"state" example:"TX_CONFIRMED"`
	TxHash      string    `json:"txHash,omitempty"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	ErrorReason string    `json:"errorReason,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListClaimsResponse represents the audit list response
type ListClaimsResponse struct {
	Claims []AttemptResponse `json:"claims"`
	Total  int64             `json:"total"`
}

// ============================================================================
// Converters
// ============================================================================

// missingFields lists absent required fields in request order
func (r *VerifyRequest) missingFields() []string {
	var missing []string
	if r.Address == "" {
		missing = append(missing, "address")
	}
	std := r.SignedTypedData
	if std == nil || std.Message == nil {
		missing = append(missing, "message")
	}
	if r.Signature == "" {
		missing = append(missing, "signature")
	}
	if std == nil || std.Domain == nil {
		missing = append(missing, "domain")
	}
	if std == nil || len(std.Types) == 0 {
		missing = append(missing, "types")
	}
	if len(missing) > 0 {
		return missing
	}

	msg := std.Message
	for _, field := range []struct {
		name    string
		present bool
	}{
		{"message.userAddress", msg.UserAddress != ""},
		{"message.flipCount", msg.FlipCount != nil},
		{"message.minFlipsRequired", msg.MinFlipsRequired != nil},
		{"message.timestamp", msg.Timestamp != nil},
		{"message.nonce", msg.Nonce != nil},
		{"domain.chainId", std.Domain.ChainID != nil},
		{"domain.verifyingContract", std.Domain.VerifyingContract != ""},
	} {
		if !field.present {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// typedData converts a complete request into eip712.ClaimTypedData.
// Call only after missingFields returned nothing.
func (s *SignedTypedData) typedData() *eip712.ClaimTypedData {
	return &eip712.ClaimTypedData{
		Domain: eip712.ClaimDomain{
			Name:              s.Domain.Name,
			Version:           s.Domain.Version,
			ChainID:           int64(*s.Domain.ChainID),
			VerifyingContract: s.Domain.VerifyingContract,
		},
		Types:       s.Types,
		PrimaryType: s.PrimaryType,
		Message: eip712.ClaimMessage{
			UserAddress:      s.Message.UserAddress,
			FlipCount:        uint64(*s.Message.FlipCount),
			MinFlipsRequired: uint64(*s.Message.MinFlipsRequired),
			Timestamp:        uint64(*s.Message.Timestamp),
			Nonce:            uint64(*s.Message.Nonce),
		},
	}
}

// ToAttemptResponse converts an Attempt to AttemptResponse
func ToAttemptResponse(a *Attempt) AttemptResponse {
	resp := AttemptResponse{
		ID:          a.ExternalID,
		ChainID:     a.ChainID,
		UserAddress: a.UserAddress,
		Nonce:       a.Nonce,
		FlipCount:   a.FlipCount,
		Method:      a.Method,
		State:       string(a.State),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.TxHash.Valid {
		resp.TxHash = a.TxHash.String
	}
	if a.ErrorCode.Valid {
		resp.ErrorCode = a.ErrorCode.String
	}
	if a.ErrorReason.Valid {
		resp.ErrorReason = a.ErrorReason.String
	}
	return resp
}

// ToListClaimsResponse converts attempts to ListClaimsResponse
func ToListClaimsResponse(attempts []Attempt) *ListClaimsResponse {
	claims := make([]AttemptResponse, 0, len(attempts))
	for i := range attempts {
		claims = append(claims, ToAttemptResponse(&attempts[i]))
	}
	return &ListClaimsResponse{
		Claims: claims,
		Total:  int64(len(claims)),
	}
}
