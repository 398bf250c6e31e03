package flow

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionFunc fetches the current session from the auth provider
type SessionFunc func(ctx context.Context) (Session, error)

// LoginFunc starts the provider's interactive login. It returns once the
// prompt has been handed off; session establishment is observed by polling.
type LoginFunc func(ctx context.Context) error

// PollingGate adapts a request/response auth provider to the AuthGate
// contract by polling the session endpoint and broadcasting changes. A fetch
// error is treated as "not ready yet" rather than a hard failure, since the
// provider boots independently of the flow.
type PollingGate struct {
	fetch    SessionFunc
	login    LoginFunc
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	current Session

	updates chan Session
}

func NewPollingGate(fetch SessionFunc, login LoginFunc, interval time.Duration, logger *slog.Logger) *PollingGate {
	return &PollingGate{
		fetch:    fetch,
		login:    login,
		interval: interval,
		logger:   logger,
		updates:  make(chan Session, 16),
	}
}

// Session returns the last observed session
func (g *PollingGate) Session() Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Updates emits a session on every observed change
func (g *PollingGate) Updates() <-chan Session {
	return g.updates
}

// PromptLogin starts the interactive login
func (g *PollingGate) PromptLogin(ctx context.Context) error {
	return g.login(ctx)
}

// Run polls until ctx is cancelled. It fetches once immediately so a fast
// provider is observed without waiting a full interval.
func (g *PollingGate) Run(ctx context.Context) {
	g.poll(ctx)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (g *PollingGate) poll(ctx context.Context) {
	sess, err := g.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			g.logger.Debug("session fetch failed", slog.Any("error", err))
		}
		return
	}

	g.mu.Lock()
	changed := sess != g.current
	g.current = sess
	g.mu.Unlock()

	if !changed {
		return
	}

	select {
	case g.updates <- sess:
	default:
	}
}
