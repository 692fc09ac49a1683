package config

import (
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

// ProfilesConfig holds a map of named connection profile overrides, e.g. one
// per deployment environment ("staging", "prod-eu", ...).
type ProfilesConfig struct {
	Profiles map[string]ConnectionConfig `yaml:"profiles"`
}

// Manager resolves the effective connection configuration for a named
// profile, overlaying profile-specific overrides on top of the stage's
// default connection settings.
type Manager struct {
	defaultConn ConnectionConfig
	profiles    map[string]ConnectionConfig
	mu          sync.RWMutex
}

// NewManager loads the default config and an optional profiles file. A
// missing profiles file is not an error; it simply yields no overrides.
func NewManager(masterPath, profilesPath string) (*Manager, error) {
	master, err := LoadConfig(masterPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(profilesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manager{defaultConn: master.Connection, profiles: make(map[string]ConnectionConfig)}, nil
		}
		return nil, err
	}
	defer f.Close()

	var pc ProfilesConfig
	if err := yaml.NewDecoder(f).Decode(&pc); err != nil {
		return nil, err
	}

	return &Manager{defaultConn: master.Connection, profiles: pc.Profiles}, nil
}

// Get returns the effective ConnectionConfig for a named profile, merging
// any non-zero override fields on top of the default connection config. An
// unknown profile name returns the default unchanged.
func (m *Manager) Get(profile string) ConnectionConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	effective := m.defaultConn
	override, ok := m.profiles[profile]
	if !ok {
		return effective
	}

	if override.Type != "" {
		effective.Type = override.Type
	}
	if override.Address != "" {
		effective.Address = override.Address
	}
	if override.Port != 0 {
		effective.Port = override.Port
	}
	if override.GRPCAddress != "" {
		effective.GRPCAddress = override.GRPCAddress
	}
	return effective
}
