package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// InitRedis initializes the Redis client. It returns nil when Redis is
// unreachable so callers can fall back to static sequences.
func InitRedis(ctx context.Context, logger zerolog.Logger) *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	addr := viper.GetString("redis.host") + ":" + viper.GetString("redis.port")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("redis connection failed, continuing without redis")
		rdb.Close()
		return nil
	}

	logger.Info().Str("addr", addr).Msg("redis connection established")
	return rdb
}
