package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/config"
	"github.com/flume-app/flume-backend/internal/docstore"
	fsstore "github.com/flume-app/flume-backend/internal/docstore/firestore"
	"github.com/flume-app/flume-backend/internal/docstore/memory"
	pgstore "github.com/flume-app/flume-backend/internal/docstore/postgres"
)

// Store is the opened document store plus whatever must be closed with it.
type Store struct {
	docstore.Store
	closers []func() error
}

func (s *Store) Close() error {
	errs := []error{s.Store.Close()}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenStore opens the backend named by cfg.Store.Backend. fb is required
// only for the firestore backend.
func OpenStore(ctx context.Context, cfg *config.Config, fb *firebase.App, log *zap.Logger) (*Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Warn("using in-memory document store, data is lost on restart")
		return &Store{Store: memory.New()}, nil

	case config.BackendFirestore:
		if fb == nil {
			return nil, fmt.Errorf("firestore backend needs a Firebase app")
		}
		client, err := fb.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get Firestore client: %w", err)
		}
		return &Store{Store: fsstore.New(client)}, nil

	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)

		opts := []pgstore.Option{pgstore.WithPollInterval(cfg.Store.PollInterval)}
		closers := []func() error{db.Close}

		notifier, err := pgstore.NewNotifier(cfg.Database.DSN, log)
		if err != nil {
			log.Warn("LISTEN/NOTIFY unavailable, streams fall back to polling", zap.Error(err))
		} else {
			opts = append(opts, pgstore.WithWaker(notifier))
			closers = append(closers, notifier.Close)
		}
		return &Store{Store: pgstore.New(db, opts...), closers: closers}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
