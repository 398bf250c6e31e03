package flow

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Verifier answers verification queries for a claim code. It is read-only and
// safe to call repeatedly. A returned error means the backend could not be
// consulted at all; the controller maps it to a terminal unexpected failure.
type Verifier interface {
	Verify(ctx context.Context, code string) (Outcome, error)
}

// AuthGate observes the external auth provider. Login completion is observed
// through the Updates channel, never through the PromptLogin return value,
// and a session established elsewhere (another tab, another flow) surfaces
// the same way.
type AuthGate interface {
	Session() Session
	Updates() <-chan Session
	PromptLogin(ctx context.Context) error
}

// ClaimExecutor performs the one-time claim mutation. The controller
// guarantees it is invoked at most once per lifetime, plus one extra
// invocation per explicit user retry after a failure.
type ClaimExecutor interface {
	Claim(ctx context.Context, code string, identity Identity) (ClaimResult, error)
}

// Config carries the flow timing parameters. The defaults match the shipped
// product behavior; they were tuned against webhook propagation latency and
// should be revisited together with the backend team's SLAs.
type Config struct {
	VerifyRetries int           // retries past the first verification attempt
	RetryDelay    time.Duration // spacing between not-found retries
	RedirectDelay time.Duration // pause on the success screen before navigating
}

// DefaultConfig returns the shipped timing defaults
func DefaultConfig() Config {
	return Config{
		VerifyRetries: 3,
		RetryDelay:    3 * time.Second,
		RedirectDelay: 2200 * time.Millisecond,
	}
}

// Controller drives a claim flow through its states:
//
//	loading → verifying → valid → claiming → claimed | error
//
// It owns the retry policy, the claim latch, and the post-success redirect
// timer. The presentation layer consumes Snapshot/Updates and calls Login or
// Retry on user action; it never transitions states itself.
type Controller struct {
	cfg      Config
	code     string
	verifier Verifier
	gate     AuthGate
	executor ClaimExecutor
	logger   *slog.Logger

	latch claimLatch

	mu   sync.Mutex
	snap Snapshot

	updates   chan Snapshot
	redirects chan string
	retries   chan struct{}
	done      chan struct{}
}

// New creates a controller for one claim code. An empty code is legal here;
// Run reports it as a malformed-input error without touching the network.
func New(code string, verifier Verifier, gate AuthGate, executor ClaimExecutor, cfg Config, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		code:      code,
		verifier:  verifier,
		gate:      gate,
		executor:  executor,
		logger:    logger,
		snap:      Snapshot{State: StateLoading},
		updates:   make(chan Snapshot, 16),
		redirects: make(chan string, 1),
		retries:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Snapshot returns the current externally visible state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Updates emits a snapshot on every state change. Slow consumers may miss
// intermediate snapshots; Snapshot always reflects the latest state.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Redirects emits the redirect target once, after the post-success delay
func (c *Controller) Redirects() <-chan string {
	return c.redirects
}

// Done is closed when the controller has stopped
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Login triggers the auth provider's interactive login. Completion is
// observed via the gate's session updates, not here.
func (c *Controller) Login(ctx context.Context) error {
	return c.gate.PromptLogin(ctx)
}

// Retry requests one more claim attempt after a claim failure. It is a no-op
// in every other state, including after success.
func (c *Controller) Retry() {
	if c.Snapshot().Reason != ReasonClaimFailed {
		return
	}
	select {
	case c.retries <- struct{}{}:
	default:
	}
}

// Run drives the flow until a terminal state is reached or ctx is cancelled
// (the unmount signal). All timers are stopped on cancellation; in-flight
// network calls are abandoned, which is safe because token consumption is
// idempotency-guarded server-side.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)

	if c.code == "" {
		c.fail(ReasonMalformedInput)
		return
	}

	if !c.waitForReady(ctx) {
		return
	}

	outcome, ok := c.verify(ctx)
	if !ok {
		return
	}

	identity, ok := c.waitForAuth(ctx, outcome.Context)
	if !ok {
		return
	}

	c.claim(ctx, identity, outcome.Context)
}

// waitForReady holds in loading until the auth provider reports ready
func (c *Controller) waitForReady(ctx context.Context) bool {
	if c.gate.Session().Ready {
		return true
	}

	for {
		select {
		case sess := <-c.gate.Updates():
			if sess.Ready {
				return true
			}
		case <-ctx.Done():
			return false
		}
	}
}

// verify runs the bounded retry loop. Only not-found retries: issuance is
// asynchronous and the record can lag, whereas expired or consumed answers
// can never change.
func (c *Controller) verify(ctx context.Context) (Outcome, bool) {
	c.transition(func(s *Snapshot) { s.State = StateVerifying })

	attempts := 1 + c.cfg.VerifyRetries
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if !c.sleep(ctx, c.cfg.RetryDelay) {
				return Outcome{}, false
			}
		}

		outcome, err := c.verifier.Verify(ctx, c.code)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, false
			}
			c.logger.Error("verification query failed", slog.Any("error", err))
			c.fail(ReasonUnexpected)
			return Outcome{}, false
		}

		switch outcome.Kind {
		case OutcomeValid:
			return outcome, true
		case OutcomeTerminal:
			c.fail(outcome.Reason)
			return Outcome{}, false
		case OutcomeNotFound:
			c.logger.Info("claim code not found, will retry",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", attempts))
		default:
			c.logger.Error("verifier returned an unknown outcome kind",
				slog.Int("kind", int(outcome.Kind)))
			c.fail(ReasonUnexpected)
			return Outcome{}, false
		}
	}

	c.fail(ReasonNotFoundExhausted)
	return Outcome{}, false
}

// waitForAuth re-derives the auth condition from the current session first,
// then watches updates. Verification and authentication may resolve in either
// order; no history is kept beyond the claim latch.
func (c *Controller) waitForAuth(ctx context.Context, tokenCtx Context) (Identity, bool) {
	sess := c.gate.Session()
	if sess.Authenticated {
		c.transition(func(s *Snapshot) {
			s.Context = tokenCtx
			s.Authenticated = true
		})
		return sess.Identity, true
	}

	c.transition(func(s *Snapshot) {
		s.State = StateValid
		s.Context = tokenCtx
		s.Authenticated = false
	})

	for {
		select {
		case sess := <-c.gate.Updates():
			if sess.Authenticated {
				c.transition(func(s *Snapshot) { s.Authenticated = true })
				return sess.Identity, true
			}
		case <-ctx.Done():
			return Identity{}, false
		}
	}
}

// claim issues the claim mutation under the latch. Failure releases the latch
// and parks in the error state until the user asks for one more attempt;
// success locks the latch permanently and schedules the redirect.
func (c *Controller) claim(ctx context.Context, identity Identity, tokenCtx Context) {
	for {
		if !c.latch.Begin() {
			return
		}

		c.transition(func(s *Snapshot) {
			s.State = StateClaiming
			s.Context = tokenCtx
		})

		result, err := c.executor.Claim(ctx, c.code, identity)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.latch.Fail()
			c.logger.Warn("claim mutation failed", slog.Any("error", err))
			c.transition(func(s *Snapshot) {
				s.State = StateError
				s.Reason = ReasonClaimFailed
				s.Message = err.Error()
			})

			select {
			case <-c.retries:
				continue
			case <-ctx.Done():
				return
			}
		}

		c.latch.Succeed()
		c.transition(func(s *Snapshot) {
			s.State = StateClaimed
			s.Reason = ""
			s.Message = ""
			s.RedirectTarget = result.RedirectTarget
		})

		c.scheduleRedirect(ctx, result.RedirectTarget)
		return
	}
}

// scheduleRedirect lets the success screen be perceived before navigating
func (c *Controller) scheduleRedirect(ctx context.Context, target string) {
	timer := time.NewTimer(c.cfg.RedirectDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		c.redirects <- target
	case <-ctx.Done():
	}
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Controller) fail(reason Reason) {
	c.transition(func(s *Snapshot) {
		s.State = StateError
		s.Reason = reason
		s.Message = reason.Message()
	})
}

func (c *Controller) transition(mutate func(*Snapshot)) {
	c.mu.Lock()
	mutate(&c.snap)
	snap := c.snap
	c.mu.Unlock()

	select {
	case c.updates <- snap:
	default:
	}
}
