// Package session wires configuration, storage, the path store and the
// journal into one editing session shared by the CLI and the TUI.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pablasso/parcours/internal/config"
	"github.com/pablasso/parcours/internal/journal"
	"github.com/pablasso/parcours/internal/logging"
	"github.com/pablasso/parcours/internal/path"
	"github.com/pablasso/parcours/internal/persistence"
	"github.com/pablasso/parcours/internal/storage"
)

// Session is an open learning path with everything needed to persist it.
type Session struct {
	Config  config.Config
	Logger  *slog.Logger
	Store   *path.Store
	Adapter *persistence.Adapter
	Journal *journal.Journal

	// State is what was found in storage when the session opened.
	State persistence.StartupState

	kv        storage.KV
	logCloser io.Closer
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	logger    *slog.Logger
	storeOpts []path.Option
}

// WithLogger replaces the file logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(o *openOptions) {
		o.logger = l
	}
}

// WithStoreOptions passes options through to path.NewStore.
func WithStoreOptions(opts ...path.Option) Option {
	return func(o *openOptions) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// Open validates cfg, opens the configured store and restores the saved path,
// falling back to the default path when nothing usable is stored.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		Config:  cfg,
		Journal: journal.New(cfg.Storage.DataDir),
	}

	if o.logger != nil {
		s.Logger = o.logger
	} else {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		logger, closer, err := logging.OpenFile(cfg.LogFile(), level)
		if err != nil {
			return nil, err
		}
		s.Logger = logger
		s.logCloser = closer
	}

	kv, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		s.closeLog()
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}
	s.kv = kv

	s.Adapter = persistence.NewAdapter(kv, cfg.Storage.Key, s.Logger)
	s.Store = path.NewStore(o.storeOpts...)
	s.State = s.Adapter.Restore(ctx, s.Store)
	s.Logger.Debug("session opened",
		"backend", cfg.Storage.Backend,
		"state", s.State.String(),
		"steps", len(s.Store.Snapshot().Steps),
	)

	return s, nil
}

// Commit saves the current snapshot synchronously.
func (s *Session) Commit(ctx context.Context) error {
	return s.Adapter.Save(ctx, s.Store.Snapshot())
}

// Record runs a journal write, logging rather than returning its failure.
func (s *Session) Record(write func(*journal.Journal) error) {
	if err := write(s.Journal); err != nil {
		s.Logger.Warn("failed to write journal", "path", s.Journal.Path(), "error", err)
	}
}

// Lock takes the session lock for the data directory. Callers that change
// the stored path must hold it; it fails with storage.ErrLocked while another
// live process is editing.
func (s *Session) Lock() (*storage.SessionLock, error) {
	if err := os.MkdirAll(s.Config.Storage.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	lock := storage.NewSessionLock(s.Config.Storage.DataDir)
	reclaimed, err := lock.Acquire()
	if err != nil {
		return nil, fmt.Errorf("%w: remove %s if no other editor is running", err, lock.Path())
	}
	if reclaimed {
		s.Logger.Warn("reclaimed stale session lock", "path", lock.Path())
	}
	return lock, nil
}

// Close releases the store and the log file.
func (s *Session) Close() error {
	var errs []error
	if s.kv != nil {
		if err := s.kv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.closeLog(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Session) closeLog() error {
	if s.logCloser == nil {
		return nil
	}
	err := s.logCloser.Close()
	s.logCloser = nil
	return err
}
