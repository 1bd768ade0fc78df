// Package config holds the immutable run configuration for repoprep.
// The record is constructed once at startup from the environment (plus an
// optional YAML profile) and passed by reference into each component.
package config

import (
	"strings"

	preperrors "git.home.luguber.info/inful/repoprep/internal/errors"
)

// Defaults applied when the environment or profile leaves a field unset.
const (
	DefaultDeviceFamily     = "rpi"
	DefaultSyncJobs         = 2
	DefaultSyncFetchRetries = 3
)

// RetryBackoffMode selects the delay-growth strategy for retry policies.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// Config is the run configuration record. It is not mutated after Normalize.
type Config struct {
	// Base manifest checkout.
	ManifestURL      string
	ManifestRevision string
	Target           string
	WorkspaceDir     string

	// Device-specific manifest overlay. BaseURL and Revision are required
	// only when Target matches the device family.
	DeviceFamily           string
	DeviceManifestBaseURL  string
	DeviceManifestRevision string

	// Optional run behavior.
	ArtifactDir  string
	CleanBuild   bool
	PostInitHook string

	Changeset ChangesetConfig
	Sync      SyncConfig
}

// ChangesetConfig identifies one pending Gerrit change to apply after sync.
// The step is a no-op unless Project, ChangeNumber and Patchset are all set.
type ChangesetConfig struct {
	Project      string
	ChangeNumber string
	Patchset     string
	// FetchMode is kept as the raw flag value: a "false"-equivalent value
	// selects the checkout tool's native download, anything else
	// (including unset) selects fetch-and-cherry-pick.
	FetchMode string
}

// SyncConfig carries tuning knobs passed through to the sync subprocess.
type SyncConfig struct {
	Jobs         int
	FetchRetries int
}

// Normalize fills defaulted fields in place. It is called once before Validate.
func (c *Config) Normalize() {
	if c.DeviceFamily == "" {
		c.DeviceFamily = DefaultDeviceFamily
	}
	if c.Sync.Jobs <= 0 {
		c.Sync.Jobs = DefaultSyncJobs
	}
	if c.Sync.FetchRetries <= 0 {
		c.Sync.FetchRetries = DefaultSyncFetchRetries
	}
}

// Validate checks required fields eagerly so a misconfigured pipeline fails
// before any network or filesystem work happens.
func (c *Config) Validate() error {
	required := []struct {
		value string
		field string
	}{
		{c.ManifestURL, "MANIFEST_URL"},
		{c.ManifestRevision, "MANIFEST_REVISION"},
		{c.Target, "TARGET"},
		{c.WorkspaceDir, "WORKSPACE_DIR"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return preperrors.ConfigRequired(r.field)
		}
	}

	if c.DeviceTarget() {
		if strings.TrimSpace(c.DeviceManifestBaseURL) == "" {
			return preperrors.ConfigRequired("DEVICE_MANIFEST_BASE_URL")
		}
		if strings.TrimSpace(c.DeviceManifestRevision) == "" {
			return preperrors.ConfigRequired("DEVICE_MANIFEST_REVISION")
		}
	}

	return nil
}

// DeviceTarget reports whether the build target selects the device-family
// manifest overlay variant.
func (c *Config) DeviceTarget() bool {
	return strings.Contains(c.Target, c.DeviceFamily)
}

// ChangesetRequested reports whether all three changeset identifiers are
// present. Partial presence disables the changeset step rather than failing.
func (c *Config) ChangesetRequested() bool {
	cs := c.Changeset
	return cs.Project != "" && cs.ChangeNumber != "" && cs.Patchset != ""
}
