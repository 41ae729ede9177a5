package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/list-pages/internal/config"
	"github.com/jonesrussell/north-cloud/list-pages/internal/database"
	"github.com/jonesrussell/north-cloud/list-pages/internal/events"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
)

// Storage holds the configuration store and the optional event publisher.
type Storage struct {
	DB         *sqlx.DB
	Repository *database.Repository
	Redis      *redis.Client
	Publisher  *events.Publisher
}

// SetupStorage connects to PostgreSQL and, when enabled, to Redis. An
// unreachable Redis disables events instead of failing start-up.
func SetupStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (*Storage, error) {
	db, err := database.Connect(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}

	st := &Storage{DB: db, Repository: database.NewRepository(db)}
	if !cfg.Redis.Enabled {
		return st, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, database.DefaultPingTimeout)
	defer cancel()
	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		log.Warn("Redis not available, events disabled", logger.Error(fmt.Errorf("ping redis: %w", pingErr)))
		_ = client.Close()
		return st, nil
	}

	st.Redis = client
	st.Publisher = events.NewPublisher(client, cfg.Redis.Stream, log)
	log.Info("Event publisher initialized",
		logger.String("redis_address", cfg.Redis.Address),
		logger.String("stream", cfg.Redis.Stream),
	)
	return st, nil
}

// Close releases the connections.
func (s *Storage) Close(log logger.Logger) {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Error("Failed to close redis", logger.Error(err))
		}
	}
	if err := database.Close(s.DB); err != nil {
		log.Error("Failed to close database", logger.Error(err))
	}
}
