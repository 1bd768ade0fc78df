package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/repoprep/internal/changeset"
	"git.home.luguber.info/inful/repoprep/internal/config"
	preperrors "git.home.luguber.info/inful/repoprep/internal/errors"
	"git.home.luguber.info/inful/repoprep/internal/overlay"
)

type recordingChangeset struct {
	reqs []changeset.Request
	err  error
}

func (r *recordingChangeset) Apply(_ context.Context, req changeset.Request) error {
	r.reqs = append(r.reqs, req)
	return r.err
}

type recordingHook struct {
	commands []string
	err      error
}

func (r *recordingHook) Run(_ context.Context, command string) error {
	r.commands = append(r.commands, command)
	return r.err
}

func newTestPipeline(cfg *config.Config, tool *scriptedTool, ov OverlayApplier, changes *recordingChangeset, hk *recordingHook) *Pipeline {
	orch := New(cfg, tool, ov, func() error { return nil }).
		WithSleep(func(time.Duration) {})
	return NewPipeline(cfg, orch, changes, hk)
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	var events []string
	cfg := testConfig()
	cfg.Changeset = config.ChangesetConfig{Project: "platform/build", ChangeNumber: "42", Patchset: "1"}
	cfg.PostInitHook = "make prepare"

	tool := &scriptedTool{events: &events}
	changes := &recordingChangeset{}
	hk := &recordingHook{}
	p := newTestPipeline(cfg, tool, &recordingOverlay{events: &events}, changes, hk)

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, changes.reqs, 1)
	assert.Equal(t, "platform/build", changes.reqs[0].Project)
	assert.Equal(t, "42", changes.reqs[0].ChangeNumber)
	assert.Equal(t, []string{"make prepare"}, hk.commands)
}

func TestPipelineStopsOnSyncFailure(t *testing.T) {
	var events []string
	tool := &scriptedTool{events: &events, syncFails: map[int]bool{1: true, 2: true, 3: true, 4: true}}
	changes := &recordingChangeset{}
	hk := &recordingHook{}
	p := newTestPipeline(testConfig(), tool, &recordingOverlay{events: &events}, changes, hk)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, changes.reqs, "changeset must not run after sync failure")
	assert.Empty(t, hk.commands, "hook must not run after sync failure")
}

func TestPipelineStopsOnChangesetFailure(t *testing.T) {
	var events []string
	tool := &scriptedTool{events: &events}
	changes := &recordingChangeset{err: preperrors.ChangesetStepFailed("cherry-pick", errors.New("conflict"))}
	hk := &recordingHook{}
	p := newTestPipeline(testConfig(), tool, &recordingOverlay{events: &events}, changes, hk)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, hk.commands, "hook must not run after changeset failure")
}

func TestPipelineHookFailurePropagates(t *testing.T) {
	var events []string
	tool := &scriptedTool{events: &events}
	hk := &recordingHook{err: preperrors.HookFailed(9, errors.New("exit status 9"))}
	cfg := testConfig()
	cfg.PostInitHook = "exit 9"
	p := newTestPipeline(cfg, tool, &recordingOverlay{events: &events}, &recordingChangeset{}, hk)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, preperrors.IsCategory(err, preperrors.CategoryHook))
}

// TestPipelineDeviceTargetEndToEnd exercises the full happy path against a
// real overlay manager: first-attempt sync success on a device target
// leaves the overlay files in place, emits the success marker, and skips
// the changeset step entirely when its identifiers are absent.
func TestPipelineDeviceTargetEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<manifest/>"))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		ManifestURL:            "https://gerrit.example.com/platform/manifest",
		ManifestRevision:       "main",
		Target:                 "device-rpi-v2",
		WorkspaceDir:           t.TempDir(),
		DeviceManifestBaseURL:  srv.URL,
		DeviceManifestRevision: "v2.1",
	}
	cfg.Normalize()
	require.NoError(t, cfg.Validate())

	var logBuf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	var events []string
	tool := &scriptedTool{events: &events}
	changes := &recordingChangeset{}
	hk := &recordingHook{}
	p := newTestPipeline(cfg, tool, overlay.NewManager(cfg), changes, hk)

	err := p.Run(context.Background())
	require.NoError(t, err)

	// Exit code 0 for a clean run.
	adapter := preperrors.NewCLIErrorAdapter(false, nil)
	assert.Equal(t, 0, adapter.ExitCodeFor(err))

	// Overlay files present for the device target.
	overlayDir := filepath.Join(cfg.WorkspaceDir, overlay.LocalManifestsDir)
	_, statErr := os.Stat(filepath.Join(overlayDir, overlay.DeviceManifestName))
	require.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(overlayDir, overlay.RemoveListName))
	require.NoError(t, statErr)

	// Success marker emitted once sync succeeded.
	assert.Contains(t, logBuf.String(), "Workspace sync completed")

	// Changeset identifiers absent: the request reaches the applier but
	// is incomplete, so nothing would be fetched.
	require.Len(t, changes.reqs, 1)
	assert.False(t, changes.reqs[0].Complete())
}
