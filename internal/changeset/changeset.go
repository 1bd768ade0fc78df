// Package changeset applies one pending Gerrit change on top of the
// synced workspace, either via the checkout tool's native download or by
// fetching the change ref and cherry-picking it.
package changeset

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"

	preperrors "git.home.luguber.info/inful/repoprep/internal/errors"
	"git.home.luguber.info/inful/repoprep/internal/executor"
	"git.home.luguber.info/inful/repoprep/internal/logfields"
)

// FetchMode is the tagged protocol selector.
type FetchMode int

const (
	// FetchCherryPick fetches the change ref directly and cherry-picks it.
	FetchCherryPick FetchMode = iota
	// NativeDownload delegates to the checkout tool's download primitive.
	NativeDownload
)

func (m FetchMode) String() string {
	if m == NativeDownload {
		return "native-download"
	}
	return "fetch-cherry-pick"
}

// ParseFetchMode maps the raw flag value to a protocol. Only an explicit
// boolean-false value selects native download; anything else, including
// an unset flag, selects fetch-and-cherry-pick.
func ParseFetchMode(raw string) FetchMode {
	if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil && !v {
		return NativeDownload
	}
	return FetchCherryPick
}

// Request identifies one pending change. The zero value is a no-op request.
type Request struct {
	Project      string
	ChangeNumber string
	Patchset     string
	// FetchMode carries the raw flag value; see ParseFetchMode.
	FetchMode string
}

// Complete reports whether all three identifying fields are present.
func (r Request) Complete() bool {
	return r.Project != "" && r.ChangeNumber != "" && r.Patchset != ""
}

// Ref returns the Gerrit ref path for the change.
func (r Request) Ref() string {
	return fmt.Sprintf("refs/changes/%s/%s/%s", Shard(r.ChangeNumber), r.ChangeNumber, r.Patchset)
}

// Shard computes the two-digit Gerrit ref bucket from a change number:
// the last two digits, left-padded with a zero for single-digit numbers.
func Shard(changeNumber string) string {
	if len(changeNumber) == 1 {
		return "0" + changeNumber
	}
	return changeNumber[len(changeNumber)-2:]
}

// FetchURL derives a project's fetch URL from the manifest URL: the first
// three /-separated segments (scheme plus host for the usual https form)
// with the project name appended.
func FetchURL(manifestURL, project string) string {
	parts := strings.SplitN(manifestURL, "/", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, "/") + "/" + project
}

// CheckoutTool is the subset of the checkout tool the fetcher needs.
type CheckoutTool interface {
	Download(ctx context.Context, project, changeNumber, patchset string) error
	ProjectPath(ctx context.Context, project string) (string, error)
}

// Fetcher applies change requests against a synced workspace.
type Fetcher struct {
	tool        CheckoutTool
	runner      executor.Runner
	manifestURL string

	// go-git backed inspection, replaceable in tests.
	verifyCheckout func(path string) error
	headCommit     func(path string) (string, error)
}

// NewFetcher creates a Fetcher using the given checkout tool and runner.
func NewFetcher(tool CheckoutTool, runner executor.Runner, manifestURL string) *Fetcher {
	return &Fetcher{
		tool:           tool,
		runner:         runner,
		manifestURL:    manifestURL,
		verifyCheckout: gitVerifyCheckout,
		headCommit:     gitHeadCommit,
	}
}

// Apply applies the request. An incomplete request is a no-op; every step
// of the fetch-and-cherry-pick sequence returns its own error so a partial
// failure names the step that broke.
func (f *Fetcher) Apply(ctx context.Context, req Request) error {
	if !req.Complete() {
		slog.Debug("Changeset application skipped, identifiers incomplete",
			logfields.Project(req.Project),
			logfields.Change(req.ChangeNumber),
			logfields.Patchset(req.Patchset))
		return nil
	}

	mode := ParseFetchMode(req.FetchMode)
	slog.Info("Applying changeset",
		logfields.Project(req.Project),
		logfields.Change(req.ChangeNumber),
		logfields.Patchset(req.Patchset),
		slog.String("mode", mode.String()))

	if mode == NativeDownload {
		if err := f.tool.Download(ctx, req.Project, req.ChangeNumber, req.Patchset); err != nil {
			return preperrors.ChangesetStepFailed("download", err)
		}
		return nil
	}
	return f.fetchCherryPick(ctx, req)
}

func (f *Fetcher) fetchCherryPick(ctx context.Context, req Request) error {
	path, err := f.tool.ProjectPath(ctx, req.Project)
	if err != nil {
		return preperrors.ChangesetStepFailed("resolve-path", err)
	}
	if err := f.verifyCheckout(path); err != nil {
		return preperrors.ChangesetStepFailed("verify-checkout", err)
	}

	url := FetchURL(f.manifestURL, req.Project)
	ref := req.Ref()
	slog.Debug("Fetching change ref", logfields.URL(url), logfields.Ref(ref), logfields.Path(path))

	if _, err := f.runner.Run(ctx, executor.Spec{Program: "git", Args: []string{"fetch", url, ref}, Dir: path}); err != nil {
		return preperrors.ChangesetStepFailed("fetch", err)
	}
	if _, err := f.runner.Run(ctx, executor.Spec{Program: "git", Args: []string{"cherry-pick", "FETCH_HEAD"}, Dir: path}); err != nil {
		return preperrors.ChangesetStepFailed("cherry-pick", err)
	}

	if head, herr := f.headCommit(path); herr == nil {
		slog.Info("Changeset applied", logfields.Project(req.Project), logfields.Ref(ref), slog.String("commit", head))
	} else {
		slog.Info("Changeset applied", logfields.Project(req.Project), logfields.Ref(ref))
	}
	return nil
}

// gitVerifyCheckout confirms the resolved path is a git checkout before
// any mutation happens in it.
func gitVerifyCheckout(path string) error {
	if _, err := git.PlainOpen(path); err != nil {
		return fmt.Errorf("open checkout %s: %w", path, err)
	}
	return nil
}

// gitHeadCommit resolves the checkout's HEAD for diagnostic logging.
func gitHeadCommit(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String()[:8], nil
}
