package nonce

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// keyPrefix is the Redis key prefix for claim nonces
	keyPrefix = "claim-nonce"

	valueReserved = "reserved"
	valueUsedPref = "used:"
)

// RedisStore implements Store interface using Redis
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// Compile-time interface compliance check
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-based nonce store with default TTL
func NewRedisStore(client redis.UniversalClient, logger *zap.Logger) *RedisStore {
	return NewRedisStoreWithTTL(client, DefaultTTL, logger)
}

// NewRedisStoreWithTTL creates a new Redis-based nonce store with custom TTL
func NewRedisStoreWithTTL(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// buildKey creates a Redis key
// Format: claim-nonce:{chainId}:{lowercase_address}:{nonce}
func buildKey(key Key) string {
	return keyPrefix + ":" + key.String()
}

func keyFields(key Key) []zap.Field {
	return []zap.Field{
		zap.Int64("chain_id", key.ChainID),
		zap.String("address", key.Address),
		zap.Uint64("nonce", key.Nonce),
	}
}

// Reserve attempts to reserve a nonce using SETNX
func (s *RedisStore) Reserve(ctx context.Context, key Key) error {
	// SETNX with TTL - only succeeds if key doesn't exist
	ok, err := s.client.SetNX(ctx, buildKey(key), valueReserved, s.ttl).Result()
	if err != nil {
		s.logger.Error("failed to reserve nonce", append(keyFields(key), zap.Error(err))...)
		return fmt.Errorf("failed to reserve nonce: %w", err)
	}

	if !ok {
		s.logger.Warn("nonce already used or reserved", keyFields(key)...)
		return ErrNonceAlreadyUsed
	}

	s.logger.Debug("nonce reserved", keyFields(key)...)
	return nil
}

// MarkUsed marks a reserved nonce as used by txHash
func (s *RedisStore) MarkUsed(ctx context.Context, key Key, txHash string) error {
	err := s.client.Set(ctx, buildKey(key), valueUsedPref+txHash, s.ttl).Err()
	if err != nil {
		s.logger.Error("failed to mark nonce as used", append(keyFields(key), zap.Error(err))...)
		return fmt.Errorf("failed to mark nonce as used: %w", err)
	}

	s.logger.Debug("nonce marked as used", append(keyFields(key), zap.String("tx_hash", txHash))...)
	return nil
}

// Release releases a reserved nonce, allowing retry
func (s *RedisStore) Release(ctx context.Context, key Key) error {
	deleted, err := s.client.Del(ctx, buildKey(key)).Result()
	if err != nil {
		s.logger.Error("failed to release nonce", append(keyFields(key), zap.Error(err))...)
		return fmt.Errorf("failed to release nonce: %w", err)
	}
	if deleted == 0 {
		return ErrNonceNotFound
	}

	s.logger.Debug("nonce released", keyFields(key)...)
	return nil
}
