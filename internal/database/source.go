package database

import (
	"context"
	"fmt"

	"github.com/baitool/camt053/internal/config"
	"github.com/baitool/camt053/internal/services"
	"github.com/rs/zerolog"
)

// OpenSource returns the statement source selected by cfg.Source together
// with a function releasing its resources.
func OpenSource(cfg *config.StatementConfig, logger zerolog.Logger) (services.StatementSource, func(), error) {
	switch cfg.Source {
	case config.SourceFile:
		logger.Info().Str("data_dir", cfg.DataDir).Msg("reading statements from files")
		return NewFileSource(cfg.DataDir), func() {}, nil
	case config.SourcePostgres, "":
		db, err := InitDB(logger)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresSource(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown statement source %q", cfg.Source)
	}
}

// OpenSequence returns the message sequence allocator selected by
// cfg.Sequence. An unreachable Redis falls back to the static allocator.
func OpenSequence(ctx context.Context, cfg *config.StatementConfig, logger zerolog.Logger) (services.SequenceAllocator, func()) {
	if cfg.Sequence != config.SequenceRedis {
		return services.StaticSequence{}, func() {}
	}

	client := InitRedis(ctx, logger)
	if client == nil {
		logger.Warn().Msg("redis sequence unavailable, message ids use sequence 001")
		return services.StaticSequence{}, func() {}
	}
	return services.NewRedisSequence(client, 0), func() { client.Close() }
}
