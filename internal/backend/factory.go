package backend

import (
	"context"
	"fmt"
	"log/slog"

	"paydue/internal/amqp"
	"paydue/internal/storage"
)

// CleanupFunc releases the resources a Result holds.
type CleanupFunc func() error

// Result bundles the repository and the optional AMQP client.
type Result struct {
	Repo    *storage.Repository
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates storage backends based on configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create opens the configured database, runs migrations and connects
// the optional broker.
func (f *Factory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var repo *storage.Repository
	var err error

	switch config.Type {
	case SQLiteStore:
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
	case PostgresStore:
		repo, err = storage.NewPostgresRepository(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
		}
		f.logger.Info("Initialized postgres store")
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}

	// AMQP is optional
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	cleanup := func() error {
		var errs []error
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if err := repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
		if len(errs) > 0 {
			return fmt.Errorf("close backend: %v", errs)
		}
		return nil
	}

	return &Result{
		Repo:    repo,
		AMQP:    amqpClient,
		Cleanup: cleanup,
	}, nil
}
