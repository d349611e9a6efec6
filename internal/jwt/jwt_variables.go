package jwt

import (
	"chat-rooms-backend/internal/env"
	"time"

	"github.com/go-redis/redis/v8"
)

// Secret signs and verifies access tokens. Tests override it directly.
var (
	Secret      string
	RedisClient *redis.Client
)

const (
	AccessTokenTTL  = 30 * time.Minute
	RefreshTokenTTL = 24 * 30 * time.Hour
)

func init() {
	Secret = env.Get(env.UserSecretKey)

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get(env.AuthRedisURL),
		Password: env.Get(env.AuthRedisPass),
		DB:       0,
	})
}
