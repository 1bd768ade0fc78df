// Package hook runs the optional caller-supplied command after the
// workspace is ready.
package hook

import (
	"context"
	"log/slog"

	preperrors "git.home.luguber.info/inful/repoprep/internal/errors"
	"git.home.luguber.info/inful/repoprep/internal/executor"
	"git.home.luguber.info/inful/repoprep/internal/logfields"
)

// Hook executes post-init commands inside the workspace directory.
type Hook struct {
	runner       executor.Runner
	workspaceDir string
	env          map[string]string
}

// New creates a Hook. The env map is passed through to the command so the
// pipeline can hand down values like the artifact directory.
func New(runner executor.Runner, workspaceDir string, env map[string]string) *Hook {
	return &Hook{runner: runner, workspaceDir: workspaceDir, env: env}
}

// Run executes the command string via the shell. An empty command is a
// no-op; a failing command surfaces its exit code so the run can
// propagate it as its own.
func (h *Hook) Run(ctx context.Context, command string) error {
	if command == "" {
		return nil
	}

	slog.Info("Running post-init hook", logfields.Command(command))
	res, err := h.runner.Run(ctx, executor.Spec{
		Program: "sh",
		Args:    []string{"-c", command},
		Dir:     h.workspaceDir,
		Env:     h.env,
	})
	if err != nil {
		return preperrors.HookFailed(res.ExitCode, err)
	}

	slog.Debug("Post-init hook completed", logfields.Command(command))
	return nil
}
