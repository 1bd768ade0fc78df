// Package overlay manages the device-specific manifest overlay layered on
// top of the base manifest before each sync attempt.
package overlay

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/repoprep/internal/config"
	preperrors "git.home.luguber.info/inful/repoprep/internal/errors"
	"git.home.luguber.info/inful/repoprep/internal/logfields"
)

// LocalManifestsDir is the checkout tool's overlay directory, relative to
// the workspace root.
const LocalManifestsDir = ".repo/local_manifests"

// Overlay file names, identical remotely and locally.
const (
	DeviceManifestName = "device-manifest.xml"
	RemoveListName     = "device-remove.xml"
)

// Manager downloads or removes the overlay pair. It owns the overlay
// directory for the duration of a run.
type Manager struct {
	cfg    *config.Config
	client *http.Client
}

// NewManager creates an overlay manager for the run configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg, client: http.DefaultClient}
}

// WithHTTPClient overrides the HTTP client (fluent helper, used by tests).
func (m *Manager) WithHTTPClient(client *http.Client) *Manager {
	m.client = client
	return m
}

// Dir returns the overlay directory inside the workspace.
func (m *Manager) Dir() string {
	return filepath.Join(m.cfg.WorkspaceDir, LocalManifestsDir)
}

// Apply reconciles the overlay with the target: device-family targets get
// both overlay files downloaded, all other targets get them removed.
// Running this before every sync attempt guarantees a stale overlay from a
// previous target never survives a target change.
func (m *Manager) Apply(target string) error {
	if strings.Contains(target, m.cfg.DeviceFamily) {
		return m.install(target)
	}
	return m.remove(target)
}

// install downloads the overlay pair. Any download failure is fatal for
// the whole run; the orchestrator does not retry it.
func (m *Manager) install(target string) error {
	slog.Info("Installing device manifest overlay",
		logfields.Target(target),
		slog.String("revision", m.cfg.DeviceManifestRevision))

	for _, name := range []string{DeviceManifestName, RemoveListName} {
		url := fmt.Sprintf("%s/%s/%s",
			strings.TrimRight(m.cfg.DeviceManifestBaseURL, "/"),
			m.cfg.DeviceManifestRevision,
			name)
		if err := m.download(url, filepath.Join(m.Dir(), name)); err != nil {
			return preperrors.DownloadFailed(url, err)
		}
	}
	return nil
}

// remove deletes both overlay files. Absence is not an error.
func (m *Manager) remove(target string) error {
	for _, name := range []string{DeviceManifestName, RemoveListName} {
		path := filepath.Join(m.Dir(), name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return preperrors.WorkspaceError("remove overlay", err)
		}
	}
	slog.Debug("Device manifest overlay absent", logfields.Target(target))
	return nil
}

func (m *Manager) download(url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}

	resp, err := m.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}

	slog.Debug("Overlay file downloaded", logfields.URL(url), logfields.Path(dest))
	return nil
}
