package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/3leaps/nimbrowse/internal/config"
	"github.com/3leaps/nimbrowse/internal/observability"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

// ErrNoRunner is returned by Run when no interactive frontend was given.
var ErrNoRunner = errors.New("session: no runner configured")

// Runner drives the interactive loop over an engine until the user quits.
type Runner func(ctx context.Context, e *Engine) error

// Session is the single browsing context of the process.
type Session struct {
	engine *Engine
	run    Runner
}

type sessionOptions struct {
	runner Runner
	opener Opener
}

// Option configures OpenSession.
type Option func(*sessionOptions)

// WithRunner sets the interactive frontend.
func WithRunner(r Runner) Option {
	return func(o *sessionOptions) { o.runner = r }
}

// WithOpener replaces backend construction (tests).
func WithOpener(open Opener) Option {
	return func(o *sessionOptions) { o.opener = open }
}

// ConfigOpener builds backends from the accounts in cfg via the provider
// registry.
func ConfigOpener(cfg *config.Config) Opener {
	return func(ctx context.Context, name string) (provider.Provider, error) {
		_, acct, err := cfg.Account(name)
		if err != nil {
			return nil, err
		}
		return provider.New(ctx, acct.Params())
	}
}

// EngineOptions derives engine options from the browse settings.
func EngineOptions(cfg *config.Config) Options {
	return Options{
		PageSize:        cfg.Browse.PageSize,
		OpTimeout:       cfg.Browse.OpTimeout,
		CacheTTL:        cfg.Browse.CacheTTL,
		PreviewMaxBytes: cfg.Browse.PreviewMaxBytes,
		DownloadDir:     cfg.Browse.DownloadDir,
	}
}

// OpenSession constructs the backend for accountOverride (or the default
// account) and an engine over it. Failing to construct the backend is
// fatal: no session is returned.
func OpenSession(ctx context.Context, cfg *config.Config, accountOverride string, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, &config.ConfigError{Field: "config", Message: "not loaded"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := sessionOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.opener == nil {
		o.opener = ConfigOpener(cfg)
	}

	name, _, err := cfg.Account(accountOverride)
	if err != nil {
		return nil, err
	}
	backend, err := o.opener(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open account %s: %w", name, err)
	}

	engine := New(name, backend, cfg.AccountNames(), o.opener, EngineOptions(cfg))
	observability.CLILogger.Info("Session opened",
		zap.String("session", engine.ID()),
		zap.String("account", name),
		zap.String("provider", backend.Kind().String()))

	return &Session{engine: engine, run: o.runner}, nil
}

// Engine returns the session's engine.
func (s *Session) Engine() *Engine { return s.engine }

// Run hands the engine to the runner and closes the session when the
// runner returns.
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		if err := s.engine.Close(); err != nil {
			observability.CLILogger.Warn("Closing backend failed", zap.Error(err))
		}
	}()
	if s.run == nil {
		return ErrNoRunner
	}
	return s.run(ctx, s.engine)
}
