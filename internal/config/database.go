package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	StoreDriverFile  = "file"
	StoreDriverMongo = "mongo"
)

// StoreConfig selects where the notification state is persisted.
type StoreConfig struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
}

func NewStoreConfig() (*StoreConfig, error) {
	cfg := &StoreConfig{
		Driver:        getEnv("STORE_DRIVER", StoreDriverFile),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "planner_edu"),
	}
	switch cfg.Driver {
	case StoreDriverFile:
	case StoreDriverMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI not set for STORE_DRIVER=%s", cfg.Driver)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
	}
	return cfg, nil
}

// NewMongoDatabase connects to MongoDB, verifies the connection and
// disconnects when the application stops.
func NewMongoDatabase(lc fx.Lifecycle, cfg *StoreConfig, log *zap.Logger) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing MongoDB connection")
			return client.Disconnect(ctx)
		},
	})
	return client.Database(cfg.MongoDatabase), nil
}
