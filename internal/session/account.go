package session

import (
	"go.uber.org/zap"

	"github.com/3leaps/nimbrowse/pkg/cache"
	"github.com/3leaps/nimbrowse/pkg/provider"
)

// SwitchAccount opens the account after the active one in cycling order.
func (e *Engine) SwitchAccount() Cmd {
	if len(e.accounts) <= 1 {
		e.info(LevelWarn, "no other accounts configured")
		return nil
	}
	next := e.accounts[0]
	for i, name := range e.accounts {
		if name == e.account {
			next = e.accounts[(i+1)%len(e.accounts)]
			break
		}
	}
	return e.SwitchTo(next)
}

// SwitchTo opens account. The current session stays fully usable until
// the new backend is constructed; a failure leaves it untouched.
func (e *Engine) SwitchTo(account string) Cmd {
	if e.open == nil {
		e.info(LevelWarn, "account switching is not available")
		return nil
	}
	gen, ctx := e.begin(chanAccount)
	e.loading.Account = true
	open := e.open
	return func() Msg {
		backend, err := open(ctx, account)
		return accountOpened{gen: gen, name: account, backend: backend, err: err}
	}
}

func (e *Engine) applyAccount(m accountOpened) Cmd {
	if !e.current(chanAccount, m.gen) {
		if m.backend != nil {
			_ = m.backend.Close()
		}
		return nil
	}
	e.loading.Account = false
	if m.err != nil {
		e.fail("switch to "+m.name, m.err)
		return nil
	}

	old := e.backend
	e.reset(m.name, m.backend)
	if old != nil {
		if err := old.Close(); err != nil {
			e.log.Warn("Closing previous backend failed", zap.Error(err))
		}
	}
	e.log.Info("Switched account",
		zap.String("account", m.name),
		zap.String("provider", m.backend.Kind().String()))
	e.info(LevelInfo, "switched to account %s (%s)", m.name, m.backend.Kind())
	return e.loadBuckets(true)
}

// reset installs a new backend with a fresh cache and empty navigation
// state. Outstanding loads and mutations of the old backend are
// superseded.
func (e *Engine) reset(account string, backend provider.Provider) {
	for ch := channel(0); ch < numChannels; ch++ {
		e.supersede(ch)
	}
	e.epoch++

	e.account = account
	e.backend = backend
	e.cache = cache.New(e.opts.CacheTTL, cache.WithClock(e.opts.Clock))

	e.mode = ModeBuckets
	e.focus = PaneBuckets
	e.buckets = nil
	e.bucketCursor = 0
	e.bucket = ""
	e.prefix = ""
	e.items = nil
	e.next = ""
	e.objectCursor = 0
	e.filter = nil
	e.selection = map[string]struct{}{}
	e.yanked = nil
	e.preview = nil
	e.confirm = nil
	e.loading = Loading{}
	e.busy = 0
	e.progress = nil
}
