// Package orchestrator drives the bounded retry loop around
// checkout-init, overlay application and sync, escalating to workspace
// recreation after repeated failure.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/repoprep/internal/config"
	preperrors "git.home.luguber.info/inful/repoprep/internal/errors"
	"git.home.luguber.info/inful/repoprep/internal/logfields"
	"git.home.luguber.info/inful/repoprep/internal/retry"
)

// DefaultMaxAttempts bounds the sync loop; a failure on the final attempt
// is terminal.
const DefaultMaxAttempts = 4

// escalationAttempt is the attempt preceded by workspace recreation: once
// two attempts have failed, the third runs against a fresh workspace.
const escalationAttempt = 3

// State labels for the run state machine, used in structured logs.
type State string

const (
	StateSyncing      State = "syncing"
	StateRetryBackoff State = "retry_backoff"
	StateEscalated    State = "escalated"
	StateSuccess      State = "success"
	StateFailed       State = "failed"
)

// CheckoutTool is the subset of the checkout tool the orchestrator drives.
type CheckoutTool interface {
	Init(ctx context.Context, manifestURL, revision string) error
	Sync(ctx context.Context, sync config.SyncConfig) error
}

// OverlayApplier reconciles the device manifest overlay with the target.
type OverlayApplier interface {
	Apply(target string) error
}

// RecreateFunc is the injected workspace-recreation capability; its
// implementation (full wipe and re-init) is an external collaborator.
type RecreateFunc func() error

// Orchestrator retries the init/overlay/sync triple as an atomic unit.
type Orchestrator struct {
	cfg      *config.Config
	tool     CheckoutTool
	overlay  OverlayApplier
	recreate RecreateFunc

	maxAttempts int
	policy      retry.Policy
	sleep       func(time.Duration)
}

// New creates an orchestrator with the default attempt bound and fixed
// 60-second backoff.
func New(cfg *config.Config, tool CheckoutTool, overlay OverlayApplier, recreate RecreateFunc) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		tool:        tool,
		overlay:     overlay,
		recreate:    recreate,
		maxAttempts: DefaultMaxAttempts,
		policy:      retry.DefaultPolicy(),
		sleep:       time.Sleep,
	}
}

// WithPolicy overrides the backoff policy (fluent helper).
func (o *Orchestrator) WithPolicy(p retry.Policy) *Orchestrator {
	o.policy = p
	return o
}

// WithSleep overrides the sleep function (fluent helper, used by tests).
func (o *Orchestrator) WithSleep(sleep func(time.Duration)) *Orchestrator {
	o.sleep = sleep
	return o
}

// WithMaxAttempts overrides the attempt bound (fluent helper, used by tests).
func (o *Orchestrator) WithMaxAttempts(n int) *Orchestrator {
	o.maxAttempts = n
	return o
}

// Run drives the retry loop. On success it emits the run's success marker
// and returns nil; all failures are terminal PrepErrors.
func (o *Orchestrator) Run(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return preperrors.InternalError("run cancelled", err)
		}

		slog.Info("Starting sync attempt",
			logfields.State(string(StateSyncing)),
			logfields.Attempt(attempt),
			logfields.Target(o.cfg.Target))

		err := o.attemptOnce(ctx, attempt)
		if err == nil {
			// The success marker: emitted only after sync succeeds,
			// never for the changeset or hook steps.
			slog.Info("Workspace sync completed",
				logfields.State(string(StateSuccess)),
				logfields.Attempt(attempt),
				logfields.Target(o.cfg.Target))
			return nil
		}

		if !preperrors.IsRetryable(err) {
			// Overlay download failures and other fatal conditions are
			// outside the retried unit.
			slog.Error("Fatal failure during sync attempt",
				logfields.State(string(StateFailed)),
				logfields.Attempt(attempt),
				logfields.Error(err))
			return err
		}
		lastErr = err

		if attempt == o.maxAttempts {
			slog.Error("Sync attempts exhausted",
				logfields.State(string(StateFailed)),
				logfields.Attempt(attempt),
				logfields.Error(lastErr))
			return preperrors.RetriesExhausted(o.maxAttempts, lastErr)
		}

		delay := o.policy.Delay(attempt)
		slog.Warn("Sync attempt failed, backing off",
			logfields.State(string(StateRetryBackoff)),
			logfields.Attempt(attempt),
			slog.Duration("delay", delay),
			logfields.Error(err))
		o.sleep(delay)

		if attempt+1 == escalationAttempt {
			slog.Warn("Escalating to workspace recreation",
				logfields.State(string(StateEscalated)),
				logfields.Attempt(attempt))
			if rerr := o.recreate(); rerr != nil {
				return preperrors.WorkspaceError("recreate", rerr)
			}
		}
	}
	return preperrors.RetriesExhausted(o.maxAttempts, lastErr)
}

// attemptOnce runs the init/overlay/sync triple. The three steps are an
// atomic unit per attempt; no partial-success state is retried on its own.
func (o *Orchestrator) attemptOnce(ctx context.Context, attempt int) error {
	if err := o.tool.Init(ctx, o.cfg.ManifestURL, o.cfg.ManifestRevision); err != nil {
		return preperrors.SyncFailed(attempt, err)
	}
	if err := o.overlay.Apply(o.cfg.Target); err != nil {
		return err
	}
	if err := o.tool.Sync(ctx, o.cfg.Sync); err != nil {
		return preperrors.SyncFailed(attempt, err)
	}
	return nil
}
