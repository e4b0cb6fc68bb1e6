package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/Nanai10a/genkai-point-server/internal/errors"
	redisclient "github.com/Nanai10a/genkai-point-server/internal/redis"
)

// RedisNameResolver reads display names from the member-name hash the
// gateway keeps up to date. A missing entry is a lookup failure, which
// callers treat as fail-closed.
type RedisNameResolver struct {
	redis *redisclient.Client
}

func NewRedisNameResolver(redisClient *redisclient.Client) *RedisNameResolver {
	return &RedisNameResolver{redis: redisClient}
}

var _ NameResolver = (*RedisNameResolver)(nil)

func (r *RedisNameResolver) ResolveName(ctx context.Context, userID uint64) (string, error) {
	name, err := r.redis.HGet(ctx, redisclient.MemberNamesKey(), strconv.FormatUint(userID, 10)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", apperrors.Lookup(userID, fmt.Errorf("no display name cached for user %d", userID))
	}
	if err != nil {
		return "", apperrors.Lookup(userID, err)
	}
	return name, nil
}
