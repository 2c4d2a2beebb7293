package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"go-storefront/models"
)

// MongoTokenLedger keeps consumed token ids in a collection keyed by id. A TTL
// index on expires_at lets the server purge them.
type MongoTokenLedger struct {
	coll *mongo.Collection
}

func (l *MongoTokenLedger) Consume(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := l.coll.InsertOne(ctx, bson.M{"_id": jti, "expires_at": expiresAt.UTC()})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrTokenUsed
		}
		return wrap("consume token", err)
	}
	return nil
}

func (l *MongoTokenLedger) Release(ctx context.Context, jti string) error {
	if _, err := l.coll.DeleteOne(ctx, bson.M{"_id": jti}); err != nil {
		return wrap("release token", err)
	}
	return nil
}

const resetTokenKeyPrefix = "reset-token:"

// RedisTokenLedger marks token ids with SETNX and lets the key expire with
// the token.
type RedisTokenLedger struct {
	client *redis.Client
}

func NewRedisTokenLedger(url string) (*RedisTokenLedger, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisTokenLedger{client: redis.NewClient(opts)}, nil
}

func (l *RedisTokenLedger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w: %w", models.ErrUnavailable, err)
	}
	return nil
}

func (l *RedisTokenLedger) Consume(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return models.ErrInvalidToken
	}
	ok, err := l.client.SetNX(ctx, resetTokenKeyPrefix+jti, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("consume token: %w: %w", models.ErrUnavailable, err)
	}
	if !ok {
		return models.ErrTokenUsed
	}
	return nil
}

func (l *RedisTokenLedger) Release(ctx context.Context, jti string) error {
	if err := l.client.Del(ctx, resetTokenKeyPrefix+jti).Err(); err != nil {
		return fmt.Errorf("release token: %w: %w", models.ErrUnavailable, err)
	}
	return nil
}

func (l *RedisTokenLedger) Close() error {
	return l.client.Close()
}
