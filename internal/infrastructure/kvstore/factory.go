// Package kvstore selects the durable key-value backend from configuration.
package kvstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-push-relay/internal/config"
	"github.com/go-push-relay/internal/infrastructure/dynamo"
	"github.com/go-push-relay/internal/infrastructure/memory"
	"github.com/go-push-relay/internal/infrastructure/redisstore"
	s3infra "github.com/go-push-relay/internal/infrastructure/s3"
)

const (
	BackendMemory = "memory"
	BackendDynamo = "dynamo"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// Store is implemented by every backend. Get reports absent or expired keys
// with domain.ErrNotFound.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// New builds the backend named by cfg.StoreBackend. The returned close
// function releases backend connections and is never nil.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (Store, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case BackendMemory, "":
		log.Warn("using in-memory subscription store; registrations are lost on restart")
		return memory.NewStore(), noop, nil

	case BackendDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTable)
		log.Info("using DynamoDB subscription store", "table", cfg.DynamoTable)
		return dynamo.NewKVRepo(client, cfg.DynamoTable), noop, nil

	case BackendRedis:
		store, rdb, err := redisstore.New(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, noop, err
		}
		log.Info("using Redis subscription store", "prefix", cfg.RedisKeyPrefix)
		return store, func() { _ = rdb.Close() }, nil

	case BackendS3:
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		log.Info("using S3 subscription store", "bucket", cfg.S3BucketName, "prefix", cfg.S3Prefix)
		return s3infra.NewStore(client, cfg.S3BucketName, cfg.S3Prefix), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
