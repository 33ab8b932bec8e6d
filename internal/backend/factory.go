// Package backend assembles the configured store and sync publisher.
package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"kaimono/internal/amqp"
	"kaimono/internal/config"
	"kaimono/internal/services"
	"kaimono/internal/storage"
	"kaimono/internal/store"
	"kaimono/internal/store/memory"
)

// Backend bundles the selected store with the optional purchase-sync
// publisher and owns their lifecycles.
type Backend struct {
	Store     store.Store
	Publisher services.SyncPublisher

	closers []io.Closer
}

// New builds the backend from config. An empty AMQP URL runs without a
// publisher; the worker's pending sweep still picks bought items up.
func New(cfg config.Config) (*Backend, error) {
	b := &Backend{}

	switch cfg.DataBackend {
	case config.BackendMemory:
		slog.Info("Using in-memory store; data is lost on restart")
		b.Store = memory.New()
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		slog.Info("Using sqlite store", "path", cfg.SQLiteDBPath)
		b.Store = repo
		b.closers = append(b.closers, repo)
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect AMQP: %w", err)
		}
		slog.Info("Purchase sync publishing enabled",
			"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		b.Publisher = client
		b.closers = append(b.closers, client)
	}

	return b, nil
}

func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
