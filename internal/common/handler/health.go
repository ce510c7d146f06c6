package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	statusOK       = "ok"
	statusError    = "error"
	statusDisabled = "disabled"
	statusDegraded = "degraded"
)

// ChainPinger reports reachability of every configured chain, nil meaning healthy
type ChainPinger interface {
	Ping(ctx context.Context) map[int64]error
}

// HealthHandler handles health check endpoints.
// db and rdb may be nil when the corresponding store is disabled.
type HealthHandler struct {
	db     *sql.DB
	rdb    redis.UniversalClient
	chains ChainPinger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *sql.DB, rdb redis.UniversalClient, chains ChainPinger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		rdb:    rdb,
		chains: chains,
	}
}

// RegisterRoutes registers health routes
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Status string            `json:"status" example:"ok"`
	DB     string            `json:"db" example:"ok"`
	Redis  string            `json:"redis" example:"ok"`
	Chains map[string]string `json:"chains"`
}

// Health godoc
// @Summary Health check
// @Description Returns server health status
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: statusOK})
}

// Ready godoc
// @Summary Readiness check
// @Description Returns readiness including DB, Redis and per-chain RPC connectivity
// @Tags health
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	response := ReadyResponse{
		Status: statusOK,
		DB:     statusDisabled,
		Redis:  statusDisabled,
		Chains: map[string]string{},
	}
	statusCode := http.StatusOK
	degrade := func() {
		response.Status = statusDegraded
		statusCode = http.StatusServiceUnavailable
	}

	if h.db != nil {
		response.DB = statusOK
		if err := h.db.PingContext(ctx); err != nil {
			response.DB = statusError
			degrade()
		}
	}

	if h.rdb != nil {
		response.Redis = statusOK
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			response.Redis = statusError
			degrade()
		}
	}

	// the service stays ready while at least one chain answers
	if h.chains != nil {
		healthy := 0
		results := h.chains.Ping(ctx)
		for chainID, err := range results {
			key := strconv.FormatInt(chainID, 10)
			if err != nil {
				response.Chains[key] = statusError
				continue
			}
			response.Chains[key] = statusOK
			healthy++
		}
		if len(results) > 0 && healthy == 0 {
			degrade()
		}
	}

	c.JSON(statusCode, response)
}
