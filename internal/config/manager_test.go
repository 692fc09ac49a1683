package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerWithoutProfilesFileUsesDefaultOnly(t *testing.T) {
	masterPath := writeYAML(t, `
connection:
  type: unix
  address: /tmp/default.sock
`)
	m, err := NewManager(masterPath, filepath.Join(t.TempDir(), "missing-profiles.yaml"))
	require.NoError(t, err)

	got := m.Get("staging")
	assert.Equal(t, "unix", got.Type)
	assert.Equal(t, "/tmp/default.sock", got.Address)
}

func TestManagerGetOverlaysProfileFields(t *testing.T) {
	masterPath := writeYAML(t, `
connection:
  type: unix
  address: /tmp/default.sock
  port: 1
`)
	profilesPath := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(profilesPath, []byte(`
profiles:
  staging:
    address: /tmp/staging.sock
  prod:
    type: inet
    address: prod.example.com
    port: 9000
`), 0o644))

	m, err := NewManager(masterPath, profilesPath)
	require.NoError(t, err)

	staging := m.Get("staging")
	assert.Equal(t, "unix", staging.Type, "unset override fields fall back to the default")
	assert.Equal(t, "/tmp/staging.sock", staging.Address)
	assert.EqualValues(t, 1, staging.Port)

	prod := m.Get("prod")
	assert.Equal(t, "inet", prod.Type)
	assert.Equal(t, "prod.example.com", prod.Address)
	assert.EqualValues(t, 9000, prod.Port)
}

func TestManagerGetUnknownProfileReturnsDefault(t *testing.T) {
	masterPath := writeYAML(t, `
connection:
  type: unix
  address: /tmp/default.sock
`)
	m, err := NewManager(masterPath, filepath.Join(t.TempDir(), "missing-profiles.yaml"))
	require.NoError(t, err)

	got := m.Get("nonexistent")
	assert.Equal(t, "unix", got.Type)
	assert.Equal(t, "/tmp/default.sock", got.Address)
}
