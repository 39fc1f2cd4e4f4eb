// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gogama/pipex/auth"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisKey is the key used by Redis when no key is given.
const DefaultRedisKey = "pipex:token"

// Redis is a token store keeping the record as JSON under one Redis
// key, so that several processes can share a credential.
//
// A record with a known expiry is stored with a matching TTL, so an
// expired credential disappears from the store on its own.
type Redis struct {
	client redis.Cmdable
	key    string
	logger *zap.Logger
}

// NewRedis returns a store using client. If key is empty,
// DefaultRedisKey is used. If logger is nil, nothing is logged.
func NewRedis(client redis.Cmdable, key string, logger *zap.Logger) *Redis {
	if client == nil {
		panic("pipex/tokenstore: nil redis client")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client: client,
		key:    key,
		logger: logger.With(zap.String("component", "tokenstore"), zap.String("key", key)),
	}
}

// Get returns the current record, or nil if the key does not exist.
func (s *Redis) Get(ctx context.Context) (*auth.TokenRecord, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("token get failed", zap.Error(err))
		return nil, fmt.Errorf("pipex/tokenstore: get: %w", err)
	}
	var rec auth.TokenRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("pipex/tokenstore: decode: %w", err)
	}
	return &rec, nil
}

// Set replaces the current record.
func (s *Redis) Set(ctx context.Context, rec auth.TokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("pipex/tokenstore: encode: %w", err)
	}
	var ttl time.Duration
	if !rec.Meta.ExpiresAt.IsZero() {
		ttl = time.Until(rec.Meta.ExpiresAt)
		if ttl < time.Millisecond {
			ttl = time.Millisecond
		}
	}
	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		s.logger.Error("token set failed", zap.Error(err))
		return fmt.Errorf("pipex/tokenstore: set: %w", err)
	}
	return nil
}

// Clear deletes the key.
func (s *Redis) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		s.logger.Error("token clear failed", zap.Error(err))
		return fmt.Errorf("pipex/tokenstore: clear: %w", err)
	}
	return nil
}

var _ auth.TokenStore = (*Redis)(nil)
