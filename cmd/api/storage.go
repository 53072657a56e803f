package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"unsent/internal/config"
	"unsent/internal/db"
	"unsent/internal/repository"
)

type storage struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	pets          repository.PetRepository
	close         func()
}

// openStorage arma los repositorios segun STORAGE_DRIVER.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store := repository.NewInMemoryStore()
		return storage{
			conversations: store.Conversations(),
			messages:      store.Messages(),
			pets:          store.Pets(),
			close:         func() {},
		}, nil

	case config.StorageMongo:
		client, err := db.NewMongoClient(ctx, cfg)
		if err != nil {
			return storage{}, fmt.Errorf("open mongo: %w", err)
		}
		database := client.Database(cfg.MongoDatabase)
		if err := repository.EnsureMongoIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return storage{}, fmt.Errorf("mongo indexes: %w", err)
		}
		return storage{
			conversations: repository.NewMongoConversationRepository(database),
			messages:      repository.NewMongoMessageRepository(database),
			pets:          repository.NewMongoPetRepository(database),
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					logger.Warn("mongo disconnect", zap.Error(err))
				}
			},
		}, nil

	default:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return storage{}, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("db schema: %w", err)
		}
		return storage{
			conversations: repository.NewPgConversationRepository(pool),
			messages:      repository.NewPgMessageRepository(pool),
			pets:          repository.NewPgPetRepository(pool),
			close:         pool.Close,
		}, nil
	}
}
