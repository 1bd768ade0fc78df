// Package repotool wraps the `repo` checkout tool as a typed adapter. The
// tool itself is a black box; only its arguments and exit codes are part
// of the contract here.
package repotool

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/repoprep/internal/config"
	"git.home.luguber.info/inful/repoprep/internal/executor"
	"git.home.luguber.info/inful/repoprep/internal/logfields"
)

const defaultProgram = "repo"

// Tool invokes the checkout tool inside a workspace directory.
type Tool struct {
	runner       executor.Runner
	workspaceDir string
	program      string
}

// New creates a Tool rooted at the workspace directory.
func New(runner executor.Runner, workspaceDir string) *Tool {
	return &Tool{runner: runner, workspaceDir: workspaceDir, program: defaultProgram}
}

// WithProgram overrides the checkout tool binary (fluent helper, used by tests).
func (t *Tool) WithProgram(program string) *Tool {
	t.program = program
	return t
}

// Init initializes the workspace against a manifest URL and revision with a
// shallow (depth 1) manifest checkout.
func (t *Tool) Init(ctx context.Context, manifestURL, revision string) error {
	slog.Debug("Initializing checkout", logfields.URL(manifestURL), slog.String("revision", revision))
	_, err := t.run(ctx, "init", "-u", manifestURL, "-b", revision, "--depth=1")
	if err != nil {
		return fmt.Errorf("checkout init: %w", err)
	}
	return nil
}

// Sync fetches all manifest projects. The flag set is fixed apart from the
// tuning knobs carried in SyncConfig.
func (t *Tool) Sync(ctx context.Context, sync config.SyncConfig) error {
	args := []string{
		"sync",
		"--no-tags",
		"--optimized-fetch",
		"--prune",
		fmt.Sprintf("--retry-fetches=%d", sync.FetchRetries),
		"--auto-gc",
		"--no-clone-bundle",
		"--fail-fast",
		"--force-sync",
		fmt.Sprintf("-j%d", sync.Jobs),
	}
	_, err := t.run(ctx, args...)
	if err != nil {
		return fmt.Errorf("checkout sync: %w", err)
	}
	return nil
}

// Download applies a pending change via the tool's built-in change-download
// primitive.
func (t *Tool) Download(ctx context.Context, project, changeNumber, patchset string) error {
	_, err := t.run(ctx, "download", project, fmt.Sprintf("%s/%s", changeNumber, patchset))
	if err != nil {
		return fmt.Errorf("checkout download: %w", err)
	}
	return nil
}

// ProjectPath resolves a project's local checkout path from the tool's
// project listing (`path : project` lines). The returned path is absolute
// within the workspace.
func (t *Tool) ProjectPath(ctx context.Context, project string) (string, error) {
	res, err := t.run(ctx, "list", project)
	if err != nil {
		return "", fmt.Errorf("checkout list: %w", err)
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		relPath, name, found := strings.Cut(line, " : ")
		if !found {
			continue
		}
		if strings.TrimSpace(name) == project {
			return filepath.Join(t.workspaceDir, strings.TrimSpace(relPath)), nil
		}
	}
	return "", fmt.Errorf("project %s not found in checkout listing", project)
}

func (t *Tool) run(ctx context.Context, args ...string) (*executor.Result, error) {
	return t.runner.Run(ctx, executor.Spec{
		Program: t.program,
		Args:    args,
		Dir:     t.workspaceDir,
	})
}
