package claim

import (
	"github.com/gin-gonic/gin"

	"github.com/ahwlsqja/coinflip-claim-engine/internal/common/errors"
	"github.com/ahwlsqja/coinflip-claim-engine/internal/common/middleware"
)

// Handler handles HTTP requests for claim operations
type Handler struct {
	service *Service
}

// NewHandler creates a new claim handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers claim routes on the router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	claim := rg.Group("/claim")
	{
		claim.POST("/message", h.BuildMessage)
		claim.POST("/verify", h.VerifyAndClaim)
		claim.GET("/min-flips", h.MinFlips)
	}
	rg.GET("/nonce", h.GetNonce)
	rg.GET("/claims", h.ListClaims)
}

// BuildMessage godoc
// @Summary Build claim typed data
// @Description Build the EIP-712 ClaimData payload for the user's wallet to sign. The nonce is read from the faucet contract.
// @Tags claim
// @Accept json
// @Produce json
// @Param request body MessageRequest true "Claim message parameters"
// @Success 200 {object} middleware.SuccessResponse{data=eip712.ClaimTypedData} "Typed data to sign"
// @Failure 400 {object} middleware.ErrorResponse "Invalid input"
// @Failure 429 {object} middleware.ErrorResponse "Rate limited"
// @Failure 503 {object} middleware.ErrorResponse "Chain RPC unavailable"
// @Router /api/v1/claim/message [post]
func (h *Handler) BuildMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, errors.InvalidArgument("Invalid request body: "+err.Error()))
		return
	}

	td, err := h.service.BuildMessage(c.Request.Context(), &req)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	middleware.RespondOK(c, td)
}

// VerifyAndClaim godoc
// @Summary Verify a signed claim and pay the reward
// @Description Normalize and verify the wallet signature (ECDSA or ERC-1271), then submit claimReward to the faucet contract.
// @Description A receipt that does not arrive within the confirm timeout is reported with status SUBMITTED.
// @Tags claim
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Signed claim"
// @Success 200 {object} middleware.SuccessResponse{data=VerifyResponse} "Claim submitted"
// @Failure 400 {object} middleware.ErrorResponse "Missing field, invalid input or malformed signature"
// @Failure 401 {object} middleware.ErrorResponse "Invalid signature"
// @Failure 409 {object} middleware.ErrorResponse "Claim already in flight"
// @Failure 422 {object} middleware.ErrorResponse "Contract reverted"
// @Failure 429 {object} middleware.ErrorResponse "Rate limited"
// @Failure 503 {object} middleware.ErrorResponse "Chain RPC unavailable or faucet not serviceable"
// @Router /api/v1/claim/verify [post]
func (h *Handler) VerifyAndClaim(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, errors.InvalidArgument("Invalid request body: "+err.Error()))
		return
	}

	resp, err := h.service.VerifyAndClaim(c.Request.Context(), &req)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	middleware.RespondOK(c, resp)
}

// GetNonce godoc
// @Summary Get claim nonce
// @Description Read the user's current claim nonce from the faucet contract
// @Tags claim
// @Produce json
// @Param userAddress query string true "User address"
// @Param chainId query int false "Chain ID (defaults to DEFAULT_CHAIN_ID)"
// @Success 200 {object} middleware.SuccessResponse{data=NonceResponse}
// @Failure 400 {object} middleware.ErrorResponse "Invalid input"
// @Failure 503 {object} middleware.ErrorResponse "Chain RPC unavailable"
// @Router /api/v1/nonce [get]
func (h *Handler) GetNonce(c *gin.Context) {
	var query NonceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.RespondError(c, errors.InvalidArgument("Invalid query: "+err.Error()))
		return
	}

	resp, err := h.service.GetNonce(c.Request.Context(), &query)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	middleware.RespondOK(c, resp)
}

// MinFlips godoc
// @Summary Get minimum flips required
// @Description Read minFlipsRequired from the faucet contract next to the service policy
// @Tags claim
// @Produce json
// @Param chainId query int false "Chain ID (defaults to DEFAULT_CHAIN_ID)"
// @Success 200 {object} middleware.SuccessResponse{data=MinFlipsResponse}
// @Failure 400 {object} middleware.ErrorResponse "Invalid input"
// @Failure 503 {object} middleware.ErrorResponse "Chain RPC unavailable"
// @Router /api/v1/claim/min-flips [get]
func (h *Handler) MinFlips(c *gin.Context) {
	var query MinFlipsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.RespondError(c, errors.InvalidArgument("Invalid query: "+err.Error()))
		return
	}

	resp, err := h.service.MinFlips(c.Request.Context(), &query)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	middleware.RespondOK(c, resp)
}

// ListClaims godoc
// @Summary List claim attempts
// @Description List the audited claim attempts of a user, newest first
// @Tags claim
// @Produce json
// @Param userAddress query string true "User address"
// @Param chainId query int false "Chain ID (all chains when omitted)"
// @Param limit query int false "Maximum rows (1-100, default 20)"
// @Success 200 {object} middleware.SuccessResponse{data=ListClaimsResponse}
// @Failure 400 {object} middleware.ErrorResponse "Invalid input"
// @Failure 503 {object} middleware.ErrorResponse "Audit store unavailable"
// @Router /api/v1/claims [get]
func (h *Handler) ListClaims(c *gin.Context) {
	var query ListClaimsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.RespondError(c, errors.InvalidArgument("Invalid query: "+err.Error()))
		return
	}

	resp, err := h.service.ListClaims(c.Request.Context(), &query)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	middleware.RespondOK(c, resp)
}
