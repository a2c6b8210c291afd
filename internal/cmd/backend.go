package cmd

import (
	"context"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3leaps/nimbrowse/internal/config"
	"github.com/3leaps/nimbrowse/internal/observability"
	"github.com/3leaps/nimbrowse/internal/session"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

// invocation is the shared setup of a non-interactive command.
type invocation struct {
	cfg      *config.Config
	account  string
	backend  provider.Provider
	runID    string
	closeLog func()
}

func (inv *invocation) Close() {
	if inv.backend != nil {
		if err := inv.backend.Close(); err != nil {
			observability.CLILogger.Warn("Closing backend failed", zap.Error(err))
		}
	}
	inv.closeLog()
}

// openBackend loads config, starts stderr logging and opens the account
// named by path (or --account, or the default).
func openBackend(ctx context.Context, path *ObjectPath) (*invocation, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	closeLog, err := initLogging(cfg, false)
	if err != nil {
		return nil, err
	}

	explicit := ""
	if path != nil {
		explicit = path.Account
	}
	name, _, err := cfg.Account(resolveAccount(explicit))
	if err != nil {
		closeLog()
		return nil, accountError(err)
	}

	runID := uuid.NewString()
	observability.CLILogger.Debug("Opening account",
		zap.String("run_id", runID),
		zap.String("account", name))

	backend, err := session.ConfigOpener(cfg)(ctx, name)
	if err != nil {
		closeLog()
		return nil, accountError(err)
	}
	return &invocation{cfg: cfg, account: name, backend: backend, runID: runID, closeLog: closeLog}, nil
}

// providerExit maps a provider failure onto an exit code.
func providerExit(message string, err error) error {
	switch {
	case provider.IsNotFound(err), provider.IsBucketNotFound(err):
		return exitError(foundry.ExitFileNotFound, message, err)
	case provider.IsConfiguration(err), provider.IsUnsupported(err):
		return exitError(foundry.ExitInvalidArgument, message, err)
	default:
		return exitError(foundry.ExitExternalServiceUnavailable, message, err)
	}
}
