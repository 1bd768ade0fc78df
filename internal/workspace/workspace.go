package workspace

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/repoprep/internal/logfields"
)

// Manager handles the workspace directory. The directory is persistent:
// it survives across runs so incremental syncs stay cheap, and is only
// wiped via Recreate.
type Manager struct {
	dir string
}

// NewManager creates a manager for the given workspace directory.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Path returns the workspace directory path.
func (m *Manager) Path() string { return m.dir }

// Ensure creates the workspace directory if it does not exist.
func (m *Manager) Ensure() error {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	slog.Debug("Workspace directory ready", logfields.Path(m.dir))
	return nil
}

// Recreate tears the workspace down completely and creates it fresh. It
// backs the orchestrator's escalation step and the clean-before-build flag.
func (m *Manager) Recreate() error {
	slog.Warn("Recreating workspace", logfields.Path(m.dir))
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to remove workspace directory: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("failed to recreate workspace directory: %w", err)
	}
	slog.Info("Workspace recreated", logfields.Path(m.dir))
	return nil
}
