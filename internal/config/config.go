package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"

	"github.com/ahwlsqja/coinflip-claim-engine/pkg/chain"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/db"
	"github.com/ahwlsqja/coinflip-claim-engine/pkg/redis"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Chain     ChainConfig
	Claim     ClaimConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"90s"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

type DatabaseConfig struct {
	Enabled         bool          `envconfig:"DB_ENABLED" default:"true"`
	AutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"3306"`
	User            string        `envconfig:"DB_USER" default:"app"`
	Password        string        `envconfig:"DB_PASSWORD" default:"apppassword"`
	Name            string        `envconfig:"DB_NAME" default:"coinflip_claims"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

func (d DatabaseConfig) DB() db.Config {
	return db.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Name:            d.Name,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
	}
}

type RedisConfig struct {
	Enabled     bool          `envconfig:"REDIS_ENABLED" default:"true"`
	Host        string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port        int           `envconfig:"REDIS_PORT" default:"6379"`
	Password    string        `envconfig:"REDIS_PASSWORD" default:""`
	DB          int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize    int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Redis() redis.Config {
	return redis.Config{
		Host:        r.Host,
		Port:        r.Port,
		Password:    r.Password,
		DB:          r.DB,
		PoolSize:    r.PoolSize,
		DialTimeout: r.DialTimeout,
	}
}

type ChainConfig struct {
	SignerPrivateKey         string        `envconfig:"CLAIM_SIGNER_PRIVATE_KEY" default:""`
	DefaultChainID           int64         `envconfig:"DEFAULT_CHAIN_ID" default:"84532"`
	BaseRPCURL               string        `envconfig:"BASE_RPC_URL" default:""`
	BaseFaucetAddress        string        `envconfig:"BASE_FAUCET_ADDRESS" default:""`
	BaseSepoliaRPCURL        string        `envconfig:"BASE_SEPOLIA_RPC_URL" default:"https://sepolia.base.org"`
	BaseSepoliaFaucetAddress string        `envconfig:"BASE_SEPOLIA_FAUCET_ADDRESS" default:""`
	LocalRPCURL              string        `envconfig:"LOCAL_RPC_URL" default:""`
	LocalFaucetAddress       string        `envconfig:"LOCAL_FAUCET_ADDRESS" default:""`
	GasLimit                 uint64        `envconfig:"CHAIN_GAS_LIMIT" default:"300000"`
	TxTimeout                time.Duration `envconfig:"CHAIN_TX_TIMEOUT" default:"30s"`
	PollingInterval          time.Duration `envconfig:"CHAIN_POLLING_INTERVAL" default:"2s"`
	SigValidatorAddress      string        `envconfig:"CHAIN_SIG_VALIDATOR_ADDRESS" default:""`
}

// Networks maps the per-chain settings onto chain.DefaultNetworks
func (c ChainConfig) Networks() ([]chain.Network, error) {
	endpoints := map[int64][2]string{
		8453:  {c.BaseRPCURL, c.BaseFaucetAddress},
		84532: {c.BaseSepoliaRPCURL, c.BaseSepoliaFaucetAddress},
		31337: {c.LocalRPCURL, c.LocalFaucetAddress},
	}

	networks := make([]chain.Network, 0, len(chain.DefaultNetworks))
	for _, network := range chain.DefaultNetworks {
		endpoint := endpoints[network.ChainID]
		network.RPCURL = endpoint[0]
		if endpoint[1] != "" {
			if !common.IsHexAddress(endpoint[1]) {
				return nil, fmt.Errorf("invalid faucet address for %s: %q", network.Name, endpoint[1])
			}
			network.FaucetAddress = common.HexToAddress(endpoint[1])
		}
		networks = append(networks, network)
	}
	return networks, nil
}

func (c ChainConfig) FaucetOptions() (chain.FaucetOptions, error) {
	opts := chain.FaucetOptions{
		GasLimit:     c.GasLimit,
		PollInterval: c.PollingInterval,
	}
	if c.SigValidatorAddress != "" {
		if !common.IsHexAddress(c.SigValidatorAddress) {
			return chain.FaucetOptions{}, fmt.Errorf("invalid signature validator address: %q", c.SigValidatorAddress)
		}
		opts.SigValidator = common.HexToAddress(c.SigValidatorAddress)
	}
	return opts, nil
}

type ClaimConfig struct {
	MinFlipsRequired uint64        `envconfig:"CLAIM_MIN_FLIPS_REQUIRED" default:"5"`
	ConfirmTimeout   time.Duration `envconfig:"CLAIM_CONFIRM_TIMEOUT" default:"45s"`
	GuardTTL         time.Duration `envconfig:"CLAIM_GUARD_TTL" default:"5m"`
	StaleAfter       time.Duration `envconfig:"CLAIM_STALE_AFTER" default:"10m"`
}

type RateLimitConfig struct {
	Enabled           bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerSecond float64       `envconfig:"RATE_LIMIT_RPS" default:"2"`
	Burst             int           `envconfig:"RATE_LIMIT_BURST" default:"10"`
	IdleTTL           time.Duration `envconfig:"RATE_LIMIT_IDLE_TTL" default:"10m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
