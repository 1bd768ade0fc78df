package orchestrator

import (
	"context"

	"git.home.luguber.info/inful/repoprep/internal/changeset"
	"git.home.luguber.info/inful/repoprep/internal/config"
)

// ChangesetApplier applies one pending change after a successful sync.
type ChangesetApplier interface {
	Apply(ctx context.Context, req changeset.Request) error
}

// PostInitHook runs the optional caller-supplied command at the end of a run.
type PostInitHook interface {
	Run(ctx context.Context, command string) error
}

// Pipeline sequences the whole run: sync loop, changeset application,
// post-init hook. Each stage only starts when the previous one succeeded.
type Pipeline struct {
	cfg     *config.Config
	orch    *Orchestrator
	changes ChangesetApplier
	hook    PostInitHook
}

// NewPipeline wires the run stages together.
func NewPipeline(cfg *config.Config, orch *Orchestrator, changes ChangesetApplier, hook PostInitHook) *Pipeline {
	return &Pipeline{cfg: cfg, orch: orch, changes: changes, hook: hook}
}

// Run executes the pipeline and returns the first stage failure.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.orch.Run(ctx); err != nil {
		return err
	}

	req := changeset.Request{
		Project:      p.cfg.Changeset.Project,
		ChangeNumber: p.cfg.Changeset.ChangeNumber,
		Patchset:     p.cfg.Changeset.Patchset,
		FetchMode:    p.cfg.Changeset.FetchMode,
	}
	if err := p.changes.Apply(ctx, req); err != nil {
		return err
	}

	return p.hook.Run(ctx, p.cfg.PostInitHook)
}
