package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	original := DefaultConfig()
	original.EndpointClientName = "plug-01"
	original.BootstrapServer = "[fd00::1]:5683"

	require.NoError(t, SaveConfig(path, original))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
