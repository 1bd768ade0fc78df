package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultProfilePath is probed when no explicit profile path is given.
const DefaultProfilePath = "repoprep.yaml"

// Profile is an optional YAML overlay for tuning knobs that rarely change
// per pipeline run. Environment values take precedence over profile values.
type Profile struct {
	DeviceFamily string `yaml:"device_family,omitempty"`
	Sync         struct {
		Jobs         int `yaml:"jobs,omitempty"`
		FetchRetries int `yaml:"fetch_retries,omitempty"`
	} `yaml:"sync,omitempty"`
}

// LoadProfile reads a profile file. A missing file at the default path is
// not an error; a missing file at an explicitly requested path is.
func LoadProfile(path string, explicit bool) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// ApplyProfile merges profile values into unset config fields.
func (c *Config) ApplyProfile(p *Profile) {
	if p == nil {
		return
	}
	if c.DeviceFamily == "" && p.DeviceFamily != "" {
		c.DeviceFamily = p.DeviceFamily
	}
	if c.Sync.Jobs <= 0 && p.Sync.Jobs > 0 {
		c.Sync.Jobs = p.Sync.Jobs
	}
	if c.Sync.FetchRetries <= 0 && p.Sync.FetchRetries > 0 {
		c.Sync.FetchRetries = p.Sync.FetchRetries
	}
}
